package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company represents the tenant model stored in the database.
// It is the billing and data-isolation unit: profiles, clients and
// (transitively) projects all trace back to exactly one company, and
// its active/soft-deleted pair is what the tenant gate consults.
type Company struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Document      string    `json:"document" gorm:"type:varchar(50);uniqueIndex"`
	Telephone     string    `json:"telephone" gorm:"type:varchar(30)"`
	Plan          string    `json:"plan" gorm:"type:varchar(50);default:'free'"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	IsSoftDeleted bool      `json:"is_soft_deleted" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
