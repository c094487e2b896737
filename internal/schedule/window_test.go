package schedule

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	next := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	tolerance := time.Minute
	upcoming := 5 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want Window
	}{
		{"well before", next.Add(-time.Hour), NotYet},
		{"just outside upcoming", next.Add(-upcoming - time.Second), NotYet},
		{"inside upcoming", next.Add(-3 * time.Minute), Upcoming},
		{"upcoming boundary", next.Add(-upcoming), Upcoming},
		{"just before tolerance band", next.Add(-tolerance - time.Second), Upcoming},
		{"early edge of tolerance", next.Add(-tolerance), DueNow},
		{"exactly due", next, DueNow},
		{"thirty seconds late", next.Add(30 * time.Second), DueNow},
		{"late edge of tolerance", next.Add(tolerance), DueNow},
		{"past tolerance", next.Add(tolerance + time.Second), Overdue},
		{"hours late", next.Add(3 * time.Hour), Overdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.now, next, tolerance, upcoming)
			if got != tt.want {
				t.Errorf("Classify(now=%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	next := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	now := next.Add(20 * time.Second)

	first := Classify(now, next, DefaultTolerance, DefaultUpcomingWindow)
	for i := 0; i < 10; i++ {
		if got := Classify(now, next, DefaultTolerance, DefaultUpcomingWindow); got != first {
			t.Fatalf("classification changed between calls: %s then %s", first, got)
		}
	}
	if first != DueNow {
		t.Fatalf("expected DueNow, got %s", first)
	}
}
