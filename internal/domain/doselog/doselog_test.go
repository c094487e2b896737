package doselog

import "testing"

func TestAdherenceRate(t *testing.T) {
	tests := []struct {
		name         string
		taken, total int64
		want         int
	}{
		{"no history counts as full adherence", 0, 0, 100},
		{"all taken", 30, 30, 100},
		{"none taken", 0, 12, 0},
		{"two thirds rounds up", 2, 3, 67},
		{"one third rounds down", 1, 3, 33},
		{"half", 15, 30, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdherenceRate(tt.taken, tt.total); got != tt.want {
				t.Errorf("AdherenceRate(%d, %d) = %d, want %d", tt.taken, tt.total, got, tt.want)
			}
		})
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusTaken, StatusMissed, StatusSkipped} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("forgotten").IsValid() {
		t.Error("unknown status should be invalid")
	}
}
