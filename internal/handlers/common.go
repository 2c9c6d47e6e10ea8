// Package handlers adapts the lifecycle engine to HTTP. It owns request
// parsing and the single place where engine errors map to statuses; all
// burn and expiry semantics live below it.
package handlers

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/sealdrop/sealdrop/internal/blob"
	"github.com/sealdrop/sealdrop/internal/engine"
)

type Handler struct {
	engine *engine.Engine
}

func New(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Register mounts the v1 routes.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/secrets", h.CreateSecret)
	e.GET("/v1/secrets/:id", h.GetSecret)
	e.POST("/v1/files", h.CreateFile)
	e.GET("/v1/files/:id", h.GetFile)
	e.GET("/healthz", h.Health)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse maps engine errors to statuses without leaking why an
// entry is gone: absent, expired, and burned all present as the same 404.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, blob.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, blob.ErrInvalidTTL):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid expiration"})
	case errors.Is(err, blob.ErrPayloadTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
	case errors.Is(err, blob.ErrStorageTimeout):
		return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": "storage timeout"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
	}
}

func peekRequested(c echo.Context) bool {
	return c.QueryParam("peek") == "true"
}
