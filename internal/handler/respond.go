package handler

import (
	"context"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/middleware"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/labstack/echo/v4"
)

// fail writes the typed error envelope for err. Unknown errors come
// out as critical with a generic message; internals never leak.
func fail(c echo.Context, err error) error {
	e := apperr.From(err)
	return c.JSON(e.Kind.Status(), apperr.ToEnvelope(e))
}

// reqCtx returns the request context carrying the request-scoped
// logger, for handing down into services.
func reqCtx(c echo.Context) context.Context {
	return logger.WithContext(c.Request().Context(), logger.FromEcho(c))
}

// userID returns the authenticated user id set by the auth middleware.
func userID(c echo.Context) string {
	id, _ := c.Get(middleware.CtxUserID).(string)
	return id
}

// idMessage is the `{id, message}` success envelope for mutations.
func idMessage(id, message string) echo.Map {
	return echo.Map{"id": id, "message": message}
}
