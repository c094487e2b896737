package medication

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *ListMedicationsQuery) (*PagedMedications, error)

	// ListReminderEnabled returns every active medication with reminders
	// on, across all users. The reminder scheduler polls through this.
	ListReminderEnabled(ctx context.Context) ([]*Medication, error)

	// UpdateNextDoseTime persists an advanced due timestamp. The write
	// must be visible before the scheduler re-arms the medication.
	UpdateNextDoseTime(ctx context.Context, id uuid.UUID, next time.Time) error

	// DueBetween returns medications whose next dose falls in [from, to],
	// ordered by next dose time ascending.
	DueBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Medication, error)

	CountDueToday(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	CountLowSupply(ctx context.Context, userID uuid.UUID) (int64, error)
	DecrementRemainingPills(ctx context.Context, id uuid.UUID) error
}
