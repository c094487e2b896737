package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Prescription, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
