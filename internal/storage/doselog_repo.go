package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asclep-health/asclep/internal/domain/doselog"
)

type DoseLogRepo struct {
	db *gorm.DB
}

func NewDoseLogRepo(db *gorm.DB) *DoseLogRepo {
	return &DoseLogRepo{db: db}
}

func (r *DoseLogRepo) Append(ctx context.Context, e *doselog.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *DoseLogRepo) List(ctx context.Context, q *doselog.ListEntriesQuery) (*doselog.PagedEntries, error) {
	query := r.db.WithContext(ctx).
		Model(&doselog.Entry{}).
		Where("user_id = ?", q.UserID)

	if q.MedicationID != nil {
		query = query.Where("medication_id = ?", *q.MedicationID)
	}
	if q.Since != nil {
		query = query.Where("scheduled_time >= ?", *q.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []*doselog.Entry
	err := query.
		Order("scheduled_time DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &doselog.PagedEntries{
		Entries:    entries,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *DoseLogRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (taken, total int64, err error) {
	base := r.db.WithContext(ctx).
		Model(&doselog.Entry{}).
		Where("user_id = ? AND scheduled_time >= ?", userID, since)

	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).Where("status = ?", doselog.StatusTaken).Count(&taken).Error; err != nil {
		return 0, 0, err
	}
	return taken, total, nil
}
