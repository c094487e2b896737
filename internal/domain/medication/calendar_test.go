package medication

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parsing %q: %v", value, err)
	}
	return ts
}

func TestNextDose(t *testing.T) {
	at := DoseTime{Hour: 8, Minute: 0}

	tests := []struct {
		name   string
		freq   Frequency
		anchor string
		at     DoseTime
		want   string
	}{
		{
			// Half-interval arithmetic lands at 20:00, normalization snaps
			// back to 08:00 and the forward-progress rule pushes to the next
			// day.
			name:   "twice daily normalizes to dose time next day",
			freq:   FreqTwiceDaily,
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-02T08:00:00Z",
		},
		{
			name:   "once daily",
			freq:   FreqOnceDaily,
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-02T08:00:00Z",
		},
		{
			name:   "four times daily still advances a full day after normalization",
			freq:   FreqFourDaily,
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-02T08:00:00Z",
		},
		{
			name:   "once weekly",
			freq:   FreqOnceWeekly,
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-08T08:00:00Z",
		},
		{
			name:   "twice weekly",
			freq:   FreqTwiceWeekly,
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-04T08:00:00Z",
		},
		{
			name:   "every other day",
			freq:   FreqEveryOtherDay,
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-03T08:00:00Z",
		},
		{
			name:   "twice monthly",
			freq:   FreqTwiceMonthly,
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-16T08:00:00Z",
		},
		{
			name:   "once monthly clamps jan 31 to feb 29 in a leap year",
			freq:   FreqOnceMonthly,
			anchor: "2024-01-31T08:00:00Z",
			at:     at,
			want:   "2024-02-29T08:00:00Z",
		},
		{
			name:   "once monthly clamps jan 31 to feb 28 otherwise",
			freq:   FreqOnceMonthly,
			anchor: "2023-01-31T08:00:00Z",
			at:     at,
			want:   "2023-02-28T08:00:00Z",
		},
		{
			name:   "unknown frequency falls back to daily",
			freq:   Frequency("whenever"),
			anchor: "2024-03-01T08:00:00Z",
			at:     at,
			want:   "2024-03-02T08:00:00Z",
		},
		{
			name:   "anchor off the dose-time grid snaps onto it",
			freq:   FreqOnceDaily,
			anchor: "2024-03-01T11:23:45Z",
			at:     at,
			want:   "2024-03-02T08:00:00Z",
		},
		{
			// Anchor at 07:00, interval lands at 07:00 next day, dose time
			// 20:00 keeps it the same calendar day.
			name:   "normalization can stay on the arithmetic day",
			freq:   FreqOnceDaily,
			anchor: "2024-03-01T07:00:00Z",
			at:     DoseTime{Hour: 20, Minute: 0},
			want:   "2024-03-02T20:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchor := mustParse(t, tt.anchor)
			got := NextDose(tt.freq, anchor, tt.at)
			want := mustParse(t, tt.want)
			if !got.Equal(want) {
				t.Errorf("NextDose(%s, %s) = %s, want %s", tt.freq, anchor, got, want)
			}
		})
	}
}

func TestNextDoseAlwaysAdvances(t *testing.T) {
	freqs := []Frequency{
		FreqOnceDaily, FreqTwiceDaily, FreqThreeDaily, FreqFourDaily,
		FreqOnceWeekly, FreqTwiceWeekly, FreqThreeWeekly,
		FreqOnceMonthly, FreqTwiceMonthly, FreqEveryOtherDay,
	}
	anchors := []string{
		"2024-03-01T08:00:00Z",
		"2024-03-01T23:59:00Z",
		"2024-02-29T08:00:00Z",
		"2024-12-31T08:00:00Z",
	}
	at := DoseTime{Hour: 8, Minute: 0}

	for _, freq := range freqs {
		for _, raw := range anchors {
			anchor := mustParse(t, raw)
			next := NextDose(freq, anchor, at)
			if !next.After(anchor) {
				t.Errorf("NextDose(%s, %s) = %s, not after anchor", freq, anchor, next)
			}
			if next.Hour() != at.Hour || next.Minute() != at.Minute {
				t.Errorf("NextDose(%s, %s) = %s, not normalized to %s", freq, anchor, next, at)
			}
		}
	}
}

func TestNextDoseChainStaysMonotonic(t *testing.T) {
	at := DoseTime{Hour: 9, Minute: 30}
	cur := mustParse(t, "2024-01-31T09:30:00Z")

	for i := 0; i < 24; i++ {
		next := NextDose(FreqOnceMonthly, cur, at)
		if !next.After(cur) {
			t.Fatalf("step %d: %s not after %s", i, next, cur)
		}
		cur = next
	}
}

func TestParseDoseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    DoseTime
		wantErr bool
	}{
		{in: "08:00", want: DoseTime{Hour: 8, Minute: 0}},
		{in: "23:59", want: DoseTime{Hour: 23, Minute: 59}},
		{in: "0:5", want: DoseTime{Hour: 0, Minute: 5}},
		{in: " 12:30 ", want: DoseTime{Hour: 12, Minute: 30}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDoseTime(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDoseTime(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDoseTime(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDoseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
