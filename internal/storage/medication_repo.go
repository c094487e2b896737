package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asclep-health/asclep/internal/domain/medication"
)

type MedicationRepo struct {
	db *gorm.DB
}

func NewMedicationRepo(db *gorm.DB) *MedicationRepo {
	return &MedicationRepo{db: db}
}

func (r *MedicationRepo) Create(ctx context.Context, m *medication.Medication) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MedicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	var m medication.Medication
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, medication.ErrMedicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MedicationRepo) Update(ctx context.Context, m *medication.Medication) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Delete is a soft delete; the row stays for dose-log referential history.
func (r *MedicationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return medication.ErrMedicationNotFound
	}
	return nil
}

func (r *MedicationRepo) List(ctx context.Context, q *medication.ListMedicationsQuery) (*medication.PagedMedications, error) {
	query := r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("user_id = ? AND deleted_at IS NULL", q.UserID)

	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var meds []*medication.Medication
	err := query.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&meds).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &medication.PagedMedications{
		Medications: meds,
		TotalCount:  total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		TotalPages:  totalPages,
	}, nil
}

func (r *MedicationRepo) ListReminderEnabled(ctx context.Context) ([]*medication.Medication, error) {
	var meds []*medication.Medication
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND status = ? AND reminder_enabled", medication.StatusActive).
		Order("next_dose_time ASC").
		Find(&meds).Error
	if err != nil {
		return nil, err
	}
	return meds, nil
}

func (r *MedicationRepo) UpdateNextDoseTime(ctx context.Context, id uuid.UUID, next time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("next_dose_time", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return medication.ErrMedicationNotFound
	}
	return nil
}

func (r *MedicationRepo) DueBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*medication.Medication, error) {
	var meds []*medication.Medication
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL AND status = ?", userID, medication.StatusActive).
		Where("next_dose_time BETWEEN ? AND ?", from, to).
		Order("next_dose_time ASC").
		Find(&meds).Error
	if err != nil {
		return nil, err
	}
	return meds, nil
}

func (r *MedicationRepo) CountDueToday(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("user_id = ? AND deleted_at IS NULL AND status = ?", userID, medication.StatusActive).
		Where("next_dose_time >= ? AND next_dose_time < ?", dayStart, dayEnd).
		Count(&count).Error
	return count, err
}

func (r *MedicationRepo) CountLowSupply(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("user_id = ? AND deleted_at IS NULL AND status = ?", userID, medication.StatusActive).
		Where("remaining_pills <= ?", medication.LowSupplyThreshold).
		Count(&count).Error
	return count, err
}

// DecrementRemainingPills clamps at zero in SQL so concurrent takes
// cannot drive the count negative.
func (r *MedicationRepo) DecrementRemainingPills(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("id = ? AND deleted_at IS NULL AND remaining_pills > 0", id).
		Update("remaining_pills", gorm.Expr("remaining_pills - 1")).Error
}
