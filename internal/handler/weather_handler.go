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

// WeatherHandler exposes the rolling two-week weather window.
type WeatherHandler struct {
	weather *service.WeatherService
	hub     *realtime.Hub
}

func NewWeatherHandler(weather *service.WeatherService, hub *realtime.Hub) *WeatherHandler {
	return &WeatherHandler{weather: weather, hub: hub}
}

// List returns the window's records, optionally scoped to project_id.
func (h *WeatherHandler) List(c echo.Context) error {
	records, err := h.weather.List(reqCtx(c), c.QueryParam("project_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// Sync refreshes the project's window from the forecast provider. The
// same-day quota gate inside the service makes repeated calls cheap.
func (h *WeatherHandler) Sync(c echo.Context) error {
	log := logger.FromEcho(c)

	var req service.WeatherSyncInput
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	if err := h.weather.Sync(reqCtx(c), userID(c), req); err != nil {
		log.Warn("Weather sync failed", zap.String("project_id", req.ProjectID), zap.Error(err))
		return fail(c, err)
	}

	h.hub.Publish(realtime.Event{Type: realtime.EventUpdate, Table: "project_weathers", New: echo.Map{"project_id": req.ProjectID}})
	return c.JSON(http.StatusOK, idMessage(req.ProjectID, "Clima sincronizado com sucesso"))
}
