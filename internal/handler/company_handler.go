package handler

import (
	"net/http"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompanyHandler handles company (tenant) lifecycle. Deactivating or
// soft-deleting a company blocks every protected request of its
// members on the next tenant check.
type CompanyHandler struct {
	db *gorm.DB
}

func NewCompanyHandler(db *gorm.DB) *CompanyHandler {
	return &CompanyHandler{db: db}
}

func (h *CompanyHandler) List(c echo.Context) error {
	var companies []model.Company
	err := h.db.WithContext(reqCtx(c)).
		Where("is_soft_deleted = ?", false).
		Order("name ASC").
		Find(&companies).Error
	if err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar empresas", err))
	}
	return c.JSON(http.StatusOK, companies)
}

func (h *CompanyHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Name      string `json:"name"`
		Document  string `json:"document"`
		Telephone string `json:"telephone"`
		Plan      string `json:"plan"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if req.Name == "" || req.Document == "" {
		return fail(c, apperr.New(apperr.Validation, "Nome e documento da empresa são obrigatórios"))
	}

	company := model.Company{
		Name:      req.Name,
		Document:  req.Document,
		Telephone: req.Telephone,
		Plan:      req.Plan,
		IsActive:  true,
	}
	if err := h.db.WithContext(reqCtx(c)).Create(&company).Error; err != nil {
		log.Error("Failed to create company", zap.String("name", req.Name), zap.Error(err))
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao criar empresa", err))
	}

	log.Info("Company created", zap.String("company_id", company.ID), zap.String("name", company.Name))
	return c.JSON(http.StatusCreated, idMessage(company.ID, "Empresa criada com sucesso"))
}

func (h *CompanyHandler) Update(c echo.Context) error {
	var req struct {
		ID        string  `json:"id"`
		Name      *string `json:"name,omitempty"`
		Document  *string `json:"document,omitempty"`
		Telephone *string `json:"telephone,omitempty"`
		Plan      *string `json:"plan,omitempty"`
		IsActive  *bool   `json:"is_active,omitempty"`
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
	if req.Document != nil {
		fields["document"] = *req.Document
	}
	if req.Telephone != nil {
		fields["telephone"] = *req.Telephone
	}
	if req.Plan != nil {
		fields["plan"] = *req.Plan
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.Company{}).
		Where("id = ?", req.ID).
		Updates(fields).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar empresa", err))
	}
	return c.JSON(http.StatusOK, idMessage(req.ID, "Empresa atualizada com sucesso"))
}

func (h *CompanyHandler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.Company{}).
		Where("id = ?", req.ID).
		Updates(map[string]interface{}{"is_active": false, "is_soft_deleted": true}).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao excluir empresa", err))
	}
	return c.JSON(http.StatusOK, idMessage(req.ID, "Empresa excluída com sucesso"))
}
