package handler

import (
	"net/http"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/internal/realtime"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InformativeTypeHandler manages the company-scoped informative
// categories.
type InformativeTypeHandler struct {
	db *gorm.DB
}

func NewInformativeTypeHandler(db *gorm.DB) *InformativeTypeHandler {
	return &InformativeTypeHandler{db: db}
}

func (h *InformativeTypeHandler) List(c echo.Context) error {
	query := h.db.WithContext(reqCtx(c)).
		Order("display_order ASC, name ASC")

	if companyID := c.QueryParam("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}

	var types []model.InformativeType
	if err := query.Find(&types).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar tipos de informativo", err))
	}
	return c.JSON(http.StatusOK, types)
}

func (h *InformativeTypeHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		CompanyID    string `json:"company_id"`
		Name         string `json:"name"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.CompanyID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "company_id inválido"))
	}
	if req.Name == "" {
		return fail(c, apperr.New(apperr.Validation, "O nome do tipo de informativo é obrigatório"))
	}

	infoType := model.InformativeType{
		CompanyID:    req.CompanyID,
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		CreatedBy:    userID(c),
	}
	if err := h.db.WithContext(reqCtx(c)).Create(&infoType).Error; err != nil {
		log.Error("Failed to create informative type", zap.String("name", req.Name), zap.Error(err))
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao criar tipo de informativo", err))
	}
	return c.JSON(http.StatusCreated, idMessage(infoType.ID, "Tipo de informativo criado com sucesso"))
}

func (h *InformativeTypeHandler) Update(c echo.Context) error {
	var req struct {
		ID           string  `json:"id"`
		Name         *string `json:"name,omitempty"`
		DisplayOrder *int    `json:"display_order,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.DisplayOrder != nil {
		fields["display_order"] = *req.DisplayOrder
	}
	if len(fields) == 0 {
		return fail(c, apperr.New(apperr.Validation, "Nenhum campo para atualizar"))
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.InformativeType{}).
		Where("id = ?", req.ID).
		Updates(fields).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar tipo de informativo", err))
	}
	return c.JSON(http.StatusOK, idMessage(req.ID, "Tipo de informativo atualizado com sucesso"))
}

func (h *InformativeTypeHandler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	if err := h.db.WithContext(reqCtx(c)).
		Where("id = ?", req.ID).
		Delete(&model.InformativeType{}).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao excluir tipo de informativo", err))
	}
	return c.JSON(http.StatusOK, idMessage(req.ID, "Tipo de informativo excluído com sucesso"))
}

// InformativeHandler manages the free-form informatives attached to
// projects.
type InformativeHandler struct {
	db  *gorm.DB
	hub *realtime.Hub
}

func NewInformativeHandler(db *gorm.DB, hub *realtime.Hub) *InformativeHandler {
	return &InformativeHandler{db: db, hub: hub}
}

// List returns the informatives of a project with their type name
// attached, newest first.
func (h *InformativeHandler) List(c echo.Context) error {
	projectID := c.Param("projectId")
	if _, err := uuid.Parse(projectID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "project_id inválido"))
	}

	var informatives []model.ProjectInformative
	err := h.db.WithContext(reqCtx(c)).
		Preload("InformativeType").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&informatives).Error
	if err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar informativos", err))
	}
	return c.JSON(http.StatusOK, informatives)
}

func (h *InformativeHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		ProjectID         string  `json:"project_id"`
		InformativeTypeID string  `json:"informative_type_id"`
		Content           *string `json:"content,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ProjectID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "project_id inválido"))
	}
	if _, err := uuid.Parse(req.InformativeTypeID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "informative_type_id inválido"))
	}

	informative := model.ProjectInformative{
		ProjectID:         req.ProjectID,
		InformativeTypeID: req.InformativeTypeID,
		Content:           req.Content,
		CreatedBy:         userID(c),
	}
	if err := h.db.WithContext(reqCtx(c)).Create(&informative).Error; err != nil {
		log.Error("Failed to create informative", zap.String("project_id", req.ProjectID), zap.Error(err))
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao criar informativo", err))
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventInsert, Table: "project_informatives", New: informative})
	return c.JSON(http.StatusCreated, idMessage(informative.ID, "Informativo criado com sucesso"))
}

func (h *InformativeHandler) Update(c echo.Context) error {
	var req struct {
		ID                string  `json:"id"`
		InformativeTypeID *string `json:"informative_type_id,omitempty"`
		Content           *string `json:"content,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	fields := map[string]interface{}{"updated_by": userID(c)}
	if req.InformativeTypeID != nil {
		fields["informative_type_id"] = *req.InformativeTypeID
	}
	if req.Content != nil {
		fields["content"] = *req.Content
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.ProjectInformative{}).
		Where("id = ?", req.ID).
		Updates(fields).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar informativo", err))
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventUpdate, Table: "project_informatives", New: echo.Map{"id": req.ID}})
	return c.JSON(http.StatusOK, idMessage(req.ID, "Informativo atualizado com sucesso"))
}

func (h *InformativeHandler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	if err := h.db.WithContext(reqCtx(c)).
		Where("id = ?", req.ID).
		Delete(&model.ProjectInformative{}).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao excluir informativo", err))
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventDelete, Table: "project_informatives", Old: echo.Map{"id": req.ID}})
	return c.JSON(http.StatusOK, idMessage(req.ID, "Informativo excluído com sucesso"))
}
