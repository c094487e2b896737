package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asclep-health/asclep/internal/domain"
)

type ActivityRepo struct {
	db *gorm.DB
}

func NewActivityRepo(db *gorm.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Append(ctx context.Context, a *domain.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ActivityRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Activity, error) {
	var out []*domain.Activity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
