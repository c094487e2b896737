package doselog

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusTaken   Status = "taken"
	StatusMissed  Status = "missed"
	StatusSkipped Status = "skipped"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusTaken, StatusMissed, StatusSkipped:
		return true
	}
	return false
}

// Entry is one dose event. Rows are append-only history and are never
// mutated after creation.
type Entry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	MedicationID uuid.UUID `gorm:"column:medication_id;type:uuid;not null;index"`

	Status        Status     `gorm:"column:status;type:varchar(20);not null;index"`
	ScheduledTime time.Time  `gorm:"column:scheduled_time;not null;index"`
	TakenTime     *time.Time `gorm:"column:taken_time"`
	Notes         string     `gorm:"column:notes;type:text"`
}

func (Entry) TableName() string {
	return "meds.dose_logs"
}

// AdherenceRate is the percentage of logged doses with status taken over
// a window, rounded to the nearest whole percent. No history counts as
// full adherence.
func AdherenceRate(taken, total int64) int {
	if total == 0 {
		return 100
	}
	return int((float64(taken)/float64(total))*100 + 0.5)
}

type ListEntriesQuery struct {
	UserID       uuid.UUID
	MedicationID *uuid.UUID
	Since        *time.Time
	Page         int
	PageSize     int
}

type PagedEntries struct {
	Entries    []*Entry
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
