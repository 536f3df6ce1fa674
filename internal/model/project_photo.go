package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectPhoto holds the metadata row for a photo blob. DisplayOrder
// is insertion-ordered per project.
type ProjectPhoto struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID    string    `json:"project_id" gorm:"type:uuid;index;not null"`
	PhotoURL     string    `json:"photo_url" gorm:"type:text;not null"`
	Description  *string   `json:"description,omitempty" gorm:"type:text"`
	DisplayOrder int       `json:"display_order" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *ProjectPhoto) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
