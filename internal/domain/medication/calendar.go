package medication

import "time"

// Frequency determines the interval between consecutive doses.
type Frequency string

const (
	FreqOnceDaily     Frequency = "once-daily"
	FreqTwiceDaily    Frequency = "twice-daily"
	FreqThreeDaily    Frequency = "three-daily"
	FreqFourDaily     Frequency = "four-daily"
	FreqOnceWeekly    Frequency = "once-weekly"
	FreqTwiceWeekly   Frequency = "twice-weekly"
	FreqThreeWeekly   Frequency = "three-weekly"
	FreqOnceMonthly   Frequency = "once-monthly"
	FreqTwiceMonthly  Frequency = "twice-monthly"
	FreqEveryOtherDay Frequency = "every-other-day"
	FreqAsNeeded      Frequency = "as-needed"
	FreqCustom        Frequency = "custom"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FreqOnceDaily, FreqTwiceDaily, FreqThreeDaily, FreqFourDaily,
		FreqOnceWeekly, FreqTwiceWeekly, FreqThreeWeekly,
		FreqOnceMonthly, FreqTwiceMonthly, FreqEveryOtherDay,
		FreqAsNeeded, FreqCustom:
		return true
	}
	return false
}

// NextDose computes the next due timestamp for a medication: anchor plus
// the frequency's interval, with the clock time overwritten by the
// medication's dose time. The result is always strictly after the anchor;
// when normalization lands on or before the anchor the date rolls forward
// until it is not. Unrecognized frequencies (including as-needed and
// custom) fall back to a 24-hour interval rather than failing, so a bad
// frequency value can never stall the reminder pipeline.
func NextDose(freq Frequency, anchor time.Time, at DoseTime) time.Time {
	var next time.Time

	switch freq {
	case FreqOnceDaily:
		next = anchor.Add(24 * time.Hour)
	case FreqTwiceDaily:
		next = anchor.Add(12 * time.Hour)
	case FreqThreeDaily:
		next = anchor.Add(8 * time.Hour)
	case FreqFourDaily:
		next = anchor.Add(6 * time.Hour)
	case FreqOnceWeekly:
		next = anchor.AddDate(0, 0, 7)
	case FreqTwiceWeekly:
		next = anchor.AddDate(0, 0, 3)
	case FreqThreeWeekly:
		next = anchor.AddDate(0, 0, 2)
	case FreqOnceMonthly:
		next = addMonthClamped(anchor)
	case FreqTwiceMonthly:
		next = anchor.AddDate(0, 0, 15)
	case FreqEveryOtherDay:
		next = anchor.AddDate(0, 0, 2)
	default:
		next = anchor.Add(24 * time.Hour)
	}

	next = at.On(next)
	for !next.After(anchor) {
		next = at.On(next.AddDate(0, 0, 1))
	}
	return next
}

// addMonthClamped advances one calendar month, clamping the day of month
// to the target month's length. Jan 31 advances to Feb 28 (or 29), never
// overflowing into March the way naive AddDate arithmetic would.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	if last := daysIn(year, month+1, t.Location()); day > last {
		day = last
	}
	return time.Date(year, month+1, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
