package schedule

import "time"

// Window classifies where "now" sits relative to a medication's next due
// timestamp. Classification is pure and idempotent; it never mutates
// state. Acting on the class is the scheduler's job.
type Window int

const (
	// NotYet: the dose is further out than the upcoming window.
	NotYet Window = iota
	// Upcoming: due within the advance-notice window, but not yet due.
	Upcoming
	// DueNow: inside the tolerance band around the due timestamp. The
	// scheduler must fire exactly once in this band.
	DueNow
	// Overdue: past the tolerance band without firing, eligible for
	// catch-up.
	Overdue
)

func (w Window) String() string {
	switch w {
	case Upcoming:
		return "upcoming"
	case DueNow:
		return "due_now"
	case Overdue:
		return "overdue"
	default:
		return "not_yet"
	}
}

const (
	DefaultTolerance      = time.Minute
	DefaultUpcomingWindow = 5 * time.Minute
)

// Classify evaluates next against now. DueNow when |now-next| is within
// the tolerance, Overdue when next is further than the tolerance in the
// past, Upcoming when next falls within the advance window, NotYet
// otherwise.
func Classify(now, next time.Time, tolerance, upcoming time.Duration) Window {
	diff := next.Sub(now)
	switch {
	case diff >= -tolerance && diff <= tolerance:
		return DueNow
	case diff < -tolerance:
		return Overdue
	case diff <= upcoming:
		return Upcoming
	default:
		return NotYet
	}
}
