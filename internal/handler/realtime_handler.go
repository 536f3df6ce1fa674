package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/middleware"
	"github.com/cicotti/reportfy-api/internal/realtime"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// heartbeatInterval keeps intermediaries from timing out idle SSE
// streams.
const heartbeatInterval = 30 * time.Second

// RealtimeHandler streams table change events over SSE.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Subscribe opens an SSE stream for one table. A "connected" event is
// sent first, then one "database_change" event per mutation, with a
// comment heartbeat every 30s. The stream ends when the client goes
// away.
func (h *RealtimeHandler) Subscribe(c echo.Context) error {
	log := logger.FromEcho(c)

	table := c.Param("table")
	if !realtime.SubscribableTables[table] {
		return fail(c, apperr.New(apperr.Validation, "Tabela não disponível para assinatura"))
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	events, cancel := h.hub.Subscribe(table)
	defer cancel()

	if err := writeSSE(res, "connected", echo.Map{"table": table}); err != nil {
		return nil
	}

	log.Info("Realtime subscriber connected", zap.String("table", table))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := c.Request().Context().Done()
	for {
		select {
		case <-done:
			log.Info("Realtime subscriber disconnected", zap.String("table", table))
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSE(res, "database_change", event); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": heartbeat\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

// AuthState opens an SSE stream that confirms the identity behind the
// stream token and then stays up with heartbeats, so clients can watch
// for their session going away.
func (h *RealtimeHandler) AuthState(c echo.Context) error {
	log := logger.FromEcho(c)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	err := writeSSE(res, "connected", echo.Map{
		"message":   "Conectado ao monitor de autenticação",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"user_id":   userID(c),
		"email":     c.Get(middleware.CtxEmail),
		"role":      c.Get(middleware.CtxRole),
	})
	if err != nil {
		return nil
	}

	log.Info("Auth monitor connected", zap.String("user_id", userID(c)))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := c.Request().Context().Done()
	for {
		select {
		case <-done:
			log.Info("Auth monitor disconnected", zap.String("user_id", userID(c)))
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": heartbeat\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSSE(res *echo.Response, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
