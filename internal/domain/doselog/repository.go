package doselog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, q *ListEntriesQuery) (*PagedEntries, error)

	// CountSince returns (taken, total) over logs scheduled after the
	// cutoff, for adherence-rate aggregation.
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (taken, total int64, err error)
}
