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

// PhotoHandler exposes the project photo gallery.
type PhotoHandler struct {
	photos *service.PhotoService
	hub    *realtime.Hub
}

func NewPhotoHandler(photos *service.PhotoService, hub *realtime.Hub) *PhotoHandler {
	return &PhotoHandler{photos: photos, hub: hub}
}

func (h *PhotoHandler) List(c echo.Context) error {
	photos, err := h.photos.List(reqCtx(c), c.Param("projectId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, photos)
}

// Upload stores the multipart file named "file" as a new gallery photo.
func (h *PhotoHandler) Upload(c echo.Context) error {
	log := logger.FromEcho(c)
	projectID := c.Param("projectId")

	up, err := uploadFromForm(c)
	if err != nil {
		return fail(c, err)
	}

	photo, err := h.photos.UploadProjectPhoto(reqCtx(c), projectID, *up)
	if err != nil {
		return fail(c, err)
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventInsert, Table: "project_photos", New: photo})
	log.Info("Photo uploaded",
		zap.String("photo_id", photo.ID),
		zap.String("project_id", projectID),
		zap.Int("display_order", photo.DisplayOrder))
	return c.JSON(http.StatusCreated, photo)
}

func (h *PhotoHandler) Delete(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	if err := h.photos.DeleteProjectPhoto(reqCtx(c), req.ID); err != nil {
		return fail(c, err)
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventDelete, Table: "project_photos", Old: echo.Map{"id": req.ID}})
	return c.JSON(http.StatusOK, idMessage(req.ID, "Foto excluída com sucesso"))
}
