package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project status values.
const (
	ProjectNotStarted = "not_started"
	ProjectInProgress = "in_progress"
	ProjectDelayed    = "delayed"
	ProjectDone       = "done"
	ProjectInactive   = "inactive"
)

// Project belongs to exactly one client and, through it, one company.
// Location is stored as a "(lat,long)" pair in the original textual
// encoding so the weather sync can parse it back.
type Project struct {
	ID                   string     `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID            string     `json:"company_id" gorm:"type:uuid;index;not null"`
	ClientID             string     `json:"client_id" gorm:"type:uuid;index;not null"`
	Name                 string     `json:"name" gorm:"type:varchar(255);not null"`
	Address              string     `json:"address" gorm:"type:text"`
	Location             string     `json:"location" gorm:"type:varchar(100)"`
	Status               string     `json:"status" gorm:"type:varchar(20);default:'not_started'"`
	CompletionPercentage int        `json:"completion_percentage" gorm:"default:0"`
	PlannedStart         *time.Time `json:"planned_start,omitempty" gorm:"type:date"`
	PlannedEnd           *time.Time `json:"planned_end,omitempty" gorm:"type:date"`
	ActualStart          *time.Time `json:"actual_start,omitempty" gorm:"type:date"`
	ActualEnd            *time.Time `json:"actual_end,omitempty" gorm:"type:date"`
	Variance             *int       `json:"variance,omitempty"`
	IsActive             bool       `json:"is_active" gorm:"default:true"`
	IsSoftDeleted        bool       `json:"is_soft_deleted" gorm:"default:false"`
	CreatedBy            string     `json:"created_by" gorm:"type:uuid"`
	UpdatedBy            *string    `json:"updated_by,omitempty" gorm:"type:uuid"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Client *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
