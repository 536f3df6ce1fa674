package repository

import (
	"context"
	"time"

	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/prometheus"
	"gorm.io/gorm"
)

// TaskRepository is the gorm-backed store for project tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID, taskID string) ([]model.ProjectTask, error) {
	query := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("display_order ASC")
	if taskID != "" {
		query = query.Where("id = ?", taskID)
	}

	var tasks []model.ProjectTask
	err := query.Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) MaxSiblingOrder(ctx context.Context, projectID string, parentID *string) (int, bool, error) {
	query := r.db.WithContext(ctx).Model(&model.ProjectTask{}).
		Where("project_id = ?", projectID)
	if parentID == nil {
		query = query.Where("parent_task_id IS NULL")
	} else {
		query = query.Where("parent_task_id = ?", *parentID)
	}

	var max *int
	if err := query.Select("MAX(display_order)").Scan(&max).Error; err != nil {
		return 0, false, err
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *model.ProjectTask) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.ProjectTask{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ProjectTask{}).Error
}
