package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a profile can hold within its company.
const (
	RoleAdmin     = "admin"
	RoleUser      = "user"
	RoleSuperUser = "super_user"
)

// Profile represents a user identity. The password hash never leaves
// the server; role lives in UserRole so it can be replaced without
// touching the profile row.
type Profile struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID    *string   `json:"company_id,omitempty" gorm:"type:uuid;index"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"type:varchar(255)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255)"`
	AvatarURL    *string   `json:"avatar_url,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// UserRole associates a profile with its role. Deleting the profile
// removes the row as well.
type UserRole struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	CreatedAt time.Time `json:"created_at"`

	Profile Profile `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// UserSettings stores per-user preferences created with defaults on
// signup.
type UserSettings struct {
	ID                 string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID             string    `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	EmailNotifications bool      `json:"email_notifications" gorm:"default:true"`
	MarketingEmails    bool      `json:"marketing_emails" gorm:"default:false"`
	Theme              string    `json:"theme" gorm:"type:varchar(20);default:'system'"`
	Language           string    `json:"language" gorm:"type:varchar(10);default:'pt'"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Profile Profile `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
