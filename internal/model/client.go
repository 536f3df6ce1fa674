package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a customer of a company. Rows are soft-deleted to preserve
// the projects that reference them.
type Client struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID     string    `json:"company_id" gorm:"type:uuid;index;not null"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Document      *string   `json:"document,omitempty" gorm:"type:varchar(50)"`
	Telephone     *string   `json:"telephone,omitempty" gorm:"type:varchar(30)"`
	Contact       *string   `json:"contact,omitempty" gorm:"type:varchar(255)"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	IsSoftDeleted bool      `json:"is_soft_deleted" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
