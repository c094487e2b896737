package medication

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusCompleted    Status = "completed"
	StatusDiscontinued Status = "discontinued"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDiscontinued:
		return true
	}
	return false
}

// DoseTime is the wall-clock time of day every computed due timestamp is
// normalized to, independent of the interval arithmetic that produced it.
type DoseTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseDoseTime accepts "HH:MM".
func ParseDoseTime(s string) (DoseTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return DoseTime{}, fmt.Errorf("invalid dose time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return DoseTime{}, fmt.Errorf("invalid dose time hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return DoseTime{}, fmt.Errorf("invalid dose time minute %q", parts[1])
	}
	return DoseTime{Hour: h, Minute: m}, nil
}

func (t DoseTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On places the dose time onto the given day, zeroing seconds.
func (t DoseTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

const LowSupplyThreshold = 7

type Medication struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	Dosage    string    `gorm:"column:dosage;type:varchar(100);not null"` // e.g. "500mg"
	Frequency Frequency `gorm:"column:frequency;type:varchar(30);not null"`
	DoseTime  DoseTime  `gorm:"column:dosage_time;serializer:json;not null"`

	StartDate time.Time  `gorm:"column:start_date;not null"`
	EndDate   *time.Time `gorm:"column:end_date"`

	// The single authoritative next-due timestamp. Advanced exactly once
	// per dose-taken event; no future schedule is stored.
	NextDoseTime *time.Time `gorm:"column:next_dose_time;index"`

	Status          Status `gorm:"column:status;type:varchar(20);not null;default:'active';index"`
	ReminderEnabled bool   `gorm:"column:reminder_enabled;default:false;index"`

	RemainingPills int    `gorm:"column:remaining_pills;default:0"`
	Notes          string `gorm:"column:notes;type:text"`
}

func (Medication) TableName() string {
	return "meds.medications"
}

func (m *Medication) IsActive() bool {
	return m.Status == StatusActive
}

// RemindersOn reports whether the reminder scheduler should track this
// medication at all.
func (m *Medication) RemindersOn() bool {
	return m.Status == StatusActive && m.ReminderEnabled
}

func (m *Medication) IsLowSupply() bool {
	return m.RemainingPills <= LowSupplyThreshold
}

// Ended reports whether the course is over at the given instant.
func (m *Medication) Ended(now time.Time) bool {
	return m.EndDate != nil && now.After(*m.EndDate)
}

type CreateMedicationCommand struct {
	UserID          uuid.UUID
	Name            string
	Dosage          string
	Frequency       Frequency
	DoseTime        DoseTime
	StartDate       time.Time
	EndDate         *time.Time
	RemainingPills  int
	Notes           string
	ReminderEnabled bool
}

type UpdateMedicationCommand struct {
	Name            *string
	Dosage          *string
	Frequency       *Frequency
	DoseTime        *DoseTime
	EndDate         *time.Time
	RemainingPills  *int
	Notes           *string
	Status          *Status
	ReminderEnabled *bool
}

type ListMedicationsQuery struct {
	UserID   uuid.UUID
	Status   *Status
	Page     int
	PageSize int
}

type PagedMedications struct {
	Medications []*Medication
	TotalCount  int64
	Page        int
	PageSize    int
	TotalPages  int
}
