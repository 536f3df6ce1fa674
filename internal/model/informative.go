package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InformativeType is a company-scoped category for project
// informatives.
type InformativeType struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID    string    `json:"company_id" gorm:"type:uuid;index;not null"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	DisplayOrder int       `json:"display_order" gorm:"default:0"`
	CreatedBy    string    `json:"created_by" gorm:"type:uuid"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *InformativeType) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ProjectInformative is a free-form attachment on a project, tagged
// with an informative type.
type ProjectInformative struct {
	ID                string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID         string    `json:"project_id" gorm:"type:uuid;index;not null"`
	InformativeTypeID string    `json:"informative_type_id" gorm:"type:uuid;index;not null"`
	Content           *string   `json:"content,omitempty" gorm:"type:text"`
	CreatedBy         string    `json:"created_by" gorm:"type:uuid"`
	UpdatedBy         *string   `json:"updated_by,omitempty" gorm:"type:uuid"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	InformativeType *InformativeType `json:"informative_type,omitempty" gorm:"foreignKey:InformativeTypeID"`
}

func (i *ProjectInformative) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
