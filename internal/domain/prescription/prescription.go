package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is an uploaded document (photo or PDF of the paper
// prescription). The bytes live in the blob store; this row holds the
// object key and display metadata. Downloads go through short-lived
// signed URLs minted on demand.
type Prescription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Filename    string `gorm:"column:filename;type:varchar(255);not null"`
	ObjectKey   string `gorm:"column:object_key;type:varchar(512);not null"`
	ContentType string `gorm:"column:content_type;type:varchar(100);not null"`
	SizeBytes   int64  `gorm:"column:size_bytes"`
}

func (Prescription) TableName() string {
	return "meds.prescriptions"
}

type UploadPrescriptionCommand struct {
	UserID      uuid.UUID
	Filename    string
	ContentType string
	Data        []byte
}
