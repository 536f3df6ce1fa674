package handler

import (
	"net/http"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/realtime"
	"github.com/cicotti/reportfy-api/internal/service"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TaskHandler exposes the WBS task tree of a project.
type TaskHandler struct {
	tasks *service.TaskService
	hub   *realtime.Hub
}

func NewTaskHandler(tasks *service.TaskService, hub *realtime.Hub) *TaskHandler {
	return &TaskHandler{tasks: tasks, hub: hub}
}

func (h *TaskHandler) List(c echo.Context) error {
	tasks, err := h.tasks.List(reqCtx(c), c.Param("projectId"), c.QueryParam("task_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req service.TaskInsertInput
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	task, err := h.tasks.Create(reqCtx(c), userID(c), req)
	if err != nil {
		return fail(c, err)
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventInsert, Table: "project_tasks", New: task})
	log.Info("Task created",
		zap.String("task_id", task.ID),
		zap.String("project_id", task.ProjectID),
		zap.Int("display_order", task.DisplayOrder))
	return c.JSON(http.StatusCreated, idMessage(task.ID, "Tarefa criada com sucesso"))
}

func (h *TaskHandler) Update(c echo.Context) error {
	var req service.TaskUpdateInput
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	if err := h.tasks.Update(reqCtx(c), userID(c), req); err != nil {
		return fail(c, err)
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventUpdate, Table: "project_tasks", New: echo.Map{"id": req.ID}})
	return c.JSON(http.StatusOK, idMessage(req.ID, "Tarefa atualizada com sucesso"))
}

func (h *TaskHandler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	if err := h.tasks.Delete(reqCtx(c), req.ID); err != nil {
		return fail(c, err)
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventDelete, Table: "project_tasks", Old: echo.Map{"id": req.ID}})
	return c.JSON(http.StatusOK, idMessage(req.ID, "Tarefa excluída com sucesso"))
}
