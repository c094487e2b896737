package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/pkg/metrics"
)

type ActivityRepository interface {
	Append(ctx context.Context, a *domain.Activity) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Activity, error)
}

// ActivityService writes dashboard feed entries off the request path.
// Record hands the entry to a buffered channel; a single worker persists
// in the background so a slow insert never delays the mutation that
// produced it. The feed is best-effort by contract: when the buffer is
// full the entry is dropped and counted, never blocked on.
type ActivityService struct {
	repo    ActivityRepository
	metrics *metrics.Collector
	log     *zap.Logger

	ch   chan *domain.Activity
	wg   sync.WaitGroup
	once sync.Once
}

const activityBufferSize = 256

func NewActivityService(repo ActivityRepository, m *metrics.Collector, log *zap.Logger) *ActivityService {
	s := &ActivityService{
		repo:    repo,
		metrics: m,
		log:     log,
		ch:      make(chan *domain.Activity, activityBufferSize),
	}

	s.wg.Add(1)
	go s.worker()

	return s
}

func (s *ActivityService) worker() {
	defer s.wg.Done()

	for a := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.repo.Append(ctx, a)
		cancel()

		if err != nil {
			s.log.Error("failed to persist activity entry",
				zap.String("type", string(a.Type)),
				zap.String("user_id", a.UserID.String()),
				zap.Error(err),
			)
			continue
		}
		if s.metrics != nil {
			s.metrics.ActivityEntriesTotal.Inc()
		}
	}
}

// Record enqueues a feed entry. Never blocks.
func (s *ActivityService) Record(a *domain.Activity) {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now()
	}

	select {
	case s.ch <- a:
	default:
		if s.metrics != nil {
			s.metrics.ActivityBufferDropped.Inc()
		}
		s.log.Warn("activity buffer full, dropping entry", zap.String("type", string(a.Type)))
	}
}

func (s *ActivityService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// Shutdown stops accepting entries and drains the buffer.
func (s *ActivityService) Shutdown() {
	s.once.Do(func() {
		close(s.ch)
	})
	s.wg.Wait()
}
