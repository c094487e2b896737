package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleMember    Role = "member"
	RoleCaregiver Role = "caregiver"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleCaregiver:
		return true
	}
	return false
}

// PushSubscription is the descriptor handed to the push gateway. It is
// opaque to us beyond the endpoint and the two encryption keys the Web
// Push protocol requires.
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *PushSubscription) IsValid() bool {
	return s != nil && s.Endpoint != "" && s.Keys.P256DH != "" && s.Keys.Auth != ""
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Name         string `gorm:"column:name;type:varchar(200);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	Phone            string            `gorm:"column:phone;type:varchar(30)"`
	DateOfBirth      *time.Time        `gorm:"column:date_of_birth"`
	Allergies        []string          `gorm:"column:allergies;serializer:json"`
	Conditions       []string          `gorm:"column:conditions;serializer:json"`
	EmergencyContact *EmergencyContact `gorm:"column:emergency_contact;serializer:json"`

	// Set by the subscription manager when push reminders are enabled.
	PushSubscription *PushSubscription `gorm:"column:push_subscription;serializer:json"`

	IsActive    bool       `gorm:"column:is_active;default:true;index"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "auth.users"
}

func (u *User) PushEnabled() bool {
	return u.PushSubscription.IsValid()
}

type ActivityType string

const (
	ActivityMedicationTaken      ActivityType = "MEDICATION_TAKEN"
	ActivityMedicationAdded      ActivityType = "MEDICATION_ADDED"
	ActivityMedicationUpdated    ActivityType = "MEDICATION_UPDATED"
	ActivityPrescriptionUploaded ActivityType = "PRESCRIPTION_UPLOADED"
)

// Activity is an append-only feed entry shown on the dashboard.
type Activity struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	UserID      uuid.UUID    `gorm:"column:user_id;type:uuid;not null;index"`
	Type        ActivityType `gorm:"column:type;type:varchar(40);not null;index"`
	Description string       `gorm:"column:description;type:text;not null"`

	MedicationID   *uuid.UUID `gorm:"column:medication_id;type:uuid;index"`
	PrescriptionID *uuid.UUID `gorm:"column:prescription_id;type:uuid"`
}

func (Activity) TableName() string {
	return "activity.entries"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}
