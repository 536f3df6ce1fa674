package handler

import (
	"context"
	"net/http"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ClientStore is the persistence surface the client endpoints need.
type ClientStore interface {
	List(ctx context.Context, companyID string) ([]model.Client, error)
	Insert(ctx context.Context, client *model.Client) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id string) error
}

// ClientHandler handles client CRUD. Clients are soft-deleted so the
// projects referencing them keep a valid owner.
type ClientHandler struct {
	store ClientStore
}

func NewClientHandler(store ClientStore) *ClientHandler {
	return &ClientHandler{store: store}
}

// List returns clients ordered by name, optionally filtered by
// company_id. Soft-deleted rows are excluded; an empty result is a
// valid answer, not an error.
func (h *ClientHandler) List(c echo.Context) error {
	clients, err := h.store.List(reqCtx(c), c.QueryParam("company_id"))
	if err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar clientes", err))
	}
	return c.JSON(http.StatusOK, clients)
}

func (h *ClientHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		CompanyID string  `json:"company_id"`
		Name      string  `json:"name"`
		Document  *string `json:"document,omitempty"`
		Telephone *string `json:"telephone,omitempty"`
		Contact   *string `json:"contact,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.CompanyID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "company_id inválido"))
	}
	if req.Name == "" {
		return fail(c, apperr.New(apperr.Validation, "O nome do cliente é obrigatório"))
	}

	client := model.Client{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Document:  req.Document,
		Telephone: req.Telephone,
		Contact:   req.Contact,
		IsActive:  true,
	}
	if err := h.store.Insert(reqCtx(c), &client); err != nil {
		log.Error("Failed to create client", zap.String("name", req.Name), zap.Error(err))
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao criar cliente", err))
	}

	log.Info("Client created", zap.String("client_id", client.ID), zap.String("name", client.Name))
	return c.JSON(http.StatusCreated, idMessage(client.ID, "Cliente criado com sucesso"))
}

func (h *ClientHandler) Update(c echo.Context) error {
	var req struct {
		ID        string  `json:"id"`
		Name      *string `json:"name,omitempty"`
		Document  *string `json:"document,omitempty"`
		Telephone *string `json:"telephone,omitempty"`
		Contact   *string `json:"contact,omitempty"`
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
	if req.Contact != nil {
		fields["contact"] = *req.Contact
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	if err := h.store.Update(reqCtx(c), req.ID, fields); err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar cliente", err))
	}
	return c.JSON(http.StatusOK, idMessage(req.ID, "Cliente atualizado com sucesso"))
}

// Delete soft-deletes the client. Deleting an already-deleted id
// affects zero rows and is not an error.
func (h *ClientHandler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	if err := h.store.SoftDelete(reqCtx(c), req.ID); err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao excluir cliente", err))
	}
	return c.JSON(http.StatusOK, idMessage(req.ID, "Cliente excluído com sucesso"))
}
