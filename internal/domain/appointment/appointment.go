package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is the user's own record of an upcoming visit. The
// dashboard surfaces the next one; there is no clinic-side scheduling
// here.
type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Date       time.Time `gorm:"column:date;not null;index"`
	DoctorName string    `gorm:"column:doctor_name;type:varchar(200)"`
	Location   string    `gorm:"column:location;type:varchar(255)"`
	Purpose    string    `gorm:"column:purpose;type:varchar(255)"`
	Notes      string    `gorm:"column:notes;type:text"`
}

func (Appointment) TableName() string {
	return "meds.appointments"
}
