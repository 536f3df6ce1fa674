package service

import (
	"context"
	"errors"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sibling-order insertion retries this many times before giving up.
// Each retry recomputes max(display_order) after a duplicate-key
// rejection from the unique (project, parent, order) index.
const maxOrderRetries = 3

// TaskStore is the persistence surface of the task tree.
type TaskStore interface {
	// ListByProject returns the project's tasks, narrowed to a single
	// task when taskID is non-empty.
	ListByProject(ctx context.Context, projectID, taskID string) ([]model.ProjectTask, error)
	// MaxSiblingOrder returns the highest display_order among tasks of
	// the project sharing parentID (nil for root tasks). found is
	// false when the sibling set is empty.
	MaxSiblingOrder(ctx context.Context, projectID string, parentID *string) (max int, found bool, err error)
	Insert(ctx context.Context, task *model.ProjectTask) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// TaskInsertInput is the validated payload for task creation.
type TaskInsertInput struct {
	ProjectID            string     `json:"project_id"`
	ParentTaskID         *string    `json:"parent_task_id,omitempty"`
	WBS                  *string    `json:"wbs,omitempty"`
	Level                int        `json:"level"`
	Name                 string     `json:"name"`
	CompletionPercentage *int       `json:"completion_percentage,omitempty"`
	PlannedStart         *time.Time `json:"planned_start,omitempty"`
	PlannedEnd           *time.Time `json:"planned_end,omitempty"`
	ActualStart          *time.Time `json:"actual_start,omitempty"`
	ActualEnd            *time.Time `json:"actual_end,omitempty"`
}

// TaskUpdateInput is the partial payload for task updates. Nil fields
// are left untouched.
type TaskUpdateInput struct {
	ID                   string     `json:"id"`
	Name                 *string    `json:"name,omitempty"`
	WBS                  *string    `json:"wbs,omitempty"`
	CompletionPercentage *int       `json:"completion_percentage,omitempty"`
	PlannedStart         *time.Time `json:"planned_start,omitempty"`
	PlannedEnd           *time.Time `json:"planned_end,omitempty"`
	ActualStart          *time.Time `json:"actual_start,omitempty"`
	ActualEnd            *time.Time `json:"actual_end,omitempty"`
	DisplayOrder         *int       `json:"display_order,omitempty"`
}

// TaskService maintains the per-project WBS tree with stable sibling
// ordering.
type TaskService struct {
	store TaskStore
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

// List returns the tasks of a project ordered by display_order.
// projectID is required; taskID optionally narrows to one task.
func (s *TaskService) List(ctx context.Context, projectID, taskID string) ([]model.ProjectTask, error) {
	if projectID == "" {
		return nil, apperr.New(apperr.Validation, "project_id é obrigatório")
	}
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, apperr.New(apperr.Validation, "project_id inválido")
	}
	if taskID != "" {
		if _, err := uuid.Parse(taskID); err != nil {
			return nil, apperr.New(apperr.Validation, "task_id inválido")
		}
	}

	tasks, err := s.store.ListByProject(ctx, projectID, taskID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Query, "Erro ao carregar tarefas", err)
	}
	return tasks, nil
}

// Create validates the payload, assigns the next sibling display_order
// (max+1, or 0 for the first sibling) and inserts. A concurrent insert
// into the same sibling group surfaces as a duplicate key on the
// unique order index; the order is then recomputed and the insert
// retried.
func (s *TaskService) Create(ctx context.Context, userID string, in TaskInsertInput) (*model.ProjectTask, error) {
	if err := validateTaskInsert(in); err != nil {
		return nil, err
	}

	completion := 0
	if in.CompletionPercentage != nil {
		completion = *in.CompletionPercentage
	}

	task := &model.ProjectTask{
		ProjectID:            in.ProjectID,
		ParentTaskID:         in.ParentTaskID,
		WBS:                  in.WBS,
		Level:                in.Level,
		Name:                 in.Name,
		CompletionPercentage: completion,
		PlannedStart:         in.PlannedStart,
		PlannedEnd:           in.PlannedEnd,
		ActualStart:          in.ActualStart,
		ActualEnd:            in.ActualEnd,
		CreatedBy:            userID,
	}

	var err error
	for attempt := 0; attempt < maxOrderRetries; attempt++ {
		var order int
		order, err = s.nextDisplayOrder(ctx, in.ProjectID, in.ParentTaskID)
		if err != nil {
			return nil, err
		}

		task.DisplayOrder = order
		err = s.store.Insert(ctx, task)
		if err == nil {
			return task, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(apperr.Query, "Erro ao criar tarefa", err)
		}
		logger.FromContext(ctx).Warn("Sibling order conflict, retrying",
			zap.String("project_id", in.ProjectID),
			zap.Int("display_order", order))
	}
	return nil, apperr.Wrap(apperr.Query, "Erro ao criar tarefa", err)
}

// Update applies the non-nil fields of in to the task row.
func (s *TaskService) Update(ctx context.Context, userID string, in TaskUpdateInput) error {
	if _, err := uuid.Parse(in.ID); err != nil {
		return apperr.New(apperr.Validation, "id inválido")
	}
	if in.Name != nil && (*in.Name == "" || len(*in.Name) > 500) {
		return apperr.New(apperr.Validation, "O nome da tarefa deve ter entre 1 e 500 caracteres")
	}
	if in.CompletionPercentage != nil && (*in.CompletionPercentage < 0 || *in.CompletionPercentage > 100) {
		return apperr.New(apperr.Validation, "O percentual de conclusão deve estar entre 0 e 100")
	}

	fields := map[string]interface{}{"updated_by": userID}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.WBS != nil {
		fields["wbs"] = *in.WBS
	}
	if in.CompletionPercentage != nil {
		fields["completion_percentage"] = *in.CompletionPercentage
	}
	if in.PlannedStart != nil {
		fields["planned_start"] = *in.PlannedStart
	}
	if in.PlannedEnd != nil {
		fields["planned_end"] = *in.PlannedEnd
	}
	if in.ActualStart != nil {
		fields["actual_start"] = *in.ActualStart
	}
	if in.ActualEnd != nil {
		fields["actual_end"] = *in.ActualEnd
	}
	if in.DisplayOrder != nil {
		fields["display_order"] = *in.DisplayOrder
	}

	if err := s.store.Update(ctx, in.ID, fields); err != nil {
		return apperr.Wrap(apperr.Query, "Erro ao atualizar tarefa", err)
	}
	return nil
}

// Delete removes the task row. Children are removed by the database
// cascade on parent_task_id.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.New(apperr.Validation, "id inválido")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return apperr.Wrap(apperr.Query, "Erro ao excluir tarefa", err)
	}
	return nil
}

func (s *TaskService) nextDisplayOrder(ctx context.Context, projectID string, parentID *string) (int, error) {
	max, found, err := s.store.MaxSiblingOrder(ctx, projectID, parentID)
	if err != nil {
		return 0, apperr.Wrap(apperr.Query, "Erro ao calcular a ordem da tarefa", err)
	}
	if !found {
		return 0, nil
	}
	return max + 1, nil
}

func validateTaskInsert(in TaskInsertInput) error {
	if _, err := uuid.Parse(in.ProjectID); err != nil {
		return apperr.New(apperr.Validation, "project_id inválido")
	}
	if in.ParentTaskID != nil {
		if _, err := uuid.Parse(*in.ParentTaskID); err != nil {
			return apperr.New(apperr.Validation, "parent_task_id inválido")
		}
	}
	if in.Level < 1 || in.Level > 3 {
		return apperr.New(apperr.Validation, "O nível da tarefa deve estar entre 1 e 3")
	}
	if in.Name == "" || len(in.Name) > 500 {
		return apperr.New(apperr.Validation, "O nome da tarefa deve ter entre 1 e 500 caracteres")
	}
	if in.CompletionPercentage != nil && (*in.CompletionPercentage < 0 || *in.CompletionPercentage > 100) {
		return apperr.New(apperr.Validation, "O percentual de conclusão deve estar entre 0 e 100")
	}
	return nil
}
