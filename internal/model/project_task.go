package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectTask is a node in the per-project WBS tree, capped at three
// levels. DisplayOrder establishes the sibling ordering; the composite
// unique index makes duplicate orders within a sibling group a
// database error, which the task service turns into a recompute-and-
// retry. Postgres treats NULLs as distinct, so root tasks (nil
// parent) get their own partial unique index on (project_id,
// display_order) WHERE parent_task_id IS NULL — without it two
// concurrent root inserts would both land on the same order cleanly.
// Children are removed by the database when the parent goes
// (ON DELETE CASCADE).
type ProjectTask struct {
	ID                   string     `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID            string     `json:"project_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_task_sibling_order;uniqueIndex:idx_task_root_order,where:parent_task_id IS NULL"`
	ParentTaskID         *string    `json:"parent_task_id,omitempty" gorm:"type:uuid;uniqueIndex:idx_task_sibling_order"`
	WBS                  *string    `json:"wbs,omitempty" gorm:"type:varchar(50)"`
	Level                int        `json:"level" gorm:"not null"`
	Name                 string     `json:"name" gorm:"type:varchar(500);not null"`
	CompletionPercentage int        `json:"completion_percentage" gorm:"default:0"`
	PlannedStart         *time.Time `json:"planned_start,omitempty" gorm:"type:date"`
	PlannedEnd           *time.Time `json:"planned_end,omitempty" gorm:"type:date"`
	ActualStart          *time.Time `json:"actual_start,omitempty" gorm:"type:date"`
	ActualEnd            *time.Time `json:"actual_end,omitempty" gorm:"type:date"`
	Variance             *int       `json:"variance,omitempty"`
	DisplayOrder         int        `json:"display_order" gorm:"not null;uniqueIndex:idx_task_sibling_order;uniqueIndex:idx_task_root_order,where:parent_task_id IS NULL"`
	CreatedBy            string     `json:"created_by" gorm:"type:uuid"`
	UpdatedBy            *string    `json:"updated_by,omitempty" gorm:"type:uuid"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Parent *ProjectTask `json:"-" gorm:"foreignKey:ParentTaskID;constraint:OnDelete:CASCADE"`
}

func (t *ProjectTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
