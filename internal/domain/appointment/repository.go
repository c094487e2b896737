package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error)

	// NextAfter returns the earliest appointment strictly after the given
	// instant, or nil when there is none.
	NextAfter(ctx context.Context, userID uuid.UUID, after time.Time) (*Appointment, error)
}
