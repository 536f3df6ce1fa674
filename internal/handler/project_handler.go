package handler

import (
	"fmt"
	"net/http"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/internal/realtime"
	"github.com/cicotti/reportfy-api/internal/service"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Location is the latitude/longitude pair accepted on project writes
// and expanded on reads. It is stored as the "(lat,long)" text.
type Location struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

func (l Location) encode() string {
	if l.Lat == "" || l.Long == "" {
		return "(0,0)"
	}
	return fmt.Sprintf("(%s,%s)", l.Lat, l.Long)
}

// ProjectHandler handles project CRUD with client enrichment.
type ProjectHandler struct {
	db  *gorm.DB
	hub *realtime.Hub
}

func NewProjectHandler(db *gorm.DB, hub *realtime.Hub) *ProjectHandler {
	return &ProjectHandler{db: db, hub: hub}
}

type projectResponse struct {
	model.Project
	ClientName   string `json:"client_name"`
	LocationLat  string `json:"location_lat,omitempty"`
	LocationLong string `json:"location_long,omitempty"`
}

func toProjectResponse(p model.Project) projectResponse {
	resp := projectResponse{Project: p}
	if p.Client != nil {
		resp.ClientName = p.Client.Name
	}
	if lat, long, ok := service.ParseLocation(p.Location); ok {
		resp.LocationLat = lat
		resp.LocationLong = long
	}
	return resp
}

// List returns non-deleted projects ordered by name, optionally
// filtered by client_id or narrowed to a single project_id.
func (h *ProjectHandler) List(c echo.Context) error {
	query := h.db.WithContext(reqCtx(c)).
		Preload("Client").
		Where("is_soft_deleted = ?", false).
		Order("name ASC")

	if clientID := c.QueryParam("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	if projectID := c.QueryParam("project_id"); projectID != "" {
		query = query.Where("id = ?", projectID)
	}

	var projects []model.Project
	if err := query.Find(&projects).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar projetos", err))
	}

	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		CompanyID string   `json:"company_id"`
		ClientID  string   `json:"client_id"`
		Name      string   `json:"name"`
		Address   string   `json:"address"`
		Location  Location `json:"location"`
		IsActive  *bool    `json:"is_active,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.CompanyID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "company_id inválido"))
	}
	if _, err := uuid.Parse(req.ClientID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "client_id inválido"))
	}
	if req.Name == "" || req.Address == "" {
		return fail(c, apperr.New(apperr.Validation, "Nome e endereço do projeto são obrigatórios"))
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	project := model.Project{
		CompanyID: req.CompanyID,
		ClientID:  req.ClientID,
		Name:      req.Name,
		Address:   req.Address,
		Location:  req.Location.encode(),
		Status:    model.ProjectNotStarted,
		IsActive:  active,
		CreatedBy: userID(c),
	}
	if err := h.db.WithContext(reqCtx(c)).Create(&project).Error; err != nil {
		log.Error("Failed to create project", zap.String("name", req.Name), zap.Error(err))
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao criar projeto", err))
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventInsert, Table: "projects", New: project})
	log.Info("Project created", zap.String("project_id", project.ID), zap.String("name", project.Name))
	return c.JSON(http.StatusCreated, idMessage(project.ID, "Projeto criado com sucesso"))
}

func (h *ProjectHandler) Update(c echo.Context) error {
	var req struct {
		ID                   string    `json:"id"`
		Name                 *string   `json:"name,omitempty"`
		Address              *string   `json:"address,omitempty"`
		Location             *Location `json:"location,omitempty"`
		Status               *string   `json:"status,omitempty"`
		CompletionPercentage *int      `json:"completion_percentage,omitempty"`
		IsActive             *bool     `json:"is_active,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	fields := map[string]interface{}{"updated_by": userID(c)}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.Location != nil && req.Location.Lat != "" && req.Location.Long != "" {
		fields["location"] = req.Location.encode()
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.CompletionPercentage != nil {
		fields["completion_percentage"] = *req.CompletionPercentage
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.Project{}).
		Where("id = ?", req.ID).
		Updates(fields).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar projeto", err))
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventUpdate, Table: "projects", New: echo.Map{"id": req.ID}})
	return c.JSON(http.StatusOK, idMessage(req.ID, "Projeto atualizado com sucesso"))
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.Project{}).
		Where("id = ?", req.ID).
		Updates(map[string]interface{}{"is_active": false, "is_soft_deleted": true}).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao excluir projeto", err))
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventDelete, Table: "projects", Old: echo.Map{"id": req.ID}})
	return c.JSON(http.StatusOK, idMessage(req.ID, "Projeto excluído com sucesso"))
}
