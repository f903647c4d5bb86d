package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// TokenSource is the part of the eBay token provider readiness depends on.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	tokens TokenSource
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(tokens TokenSource) *HealthHandler {
	return &HealthHandler{tokens: tokens}
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 once an eBay access token can be obtained, 503
// otherwise. Tokens are cached, so probes rarely reach eBay.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if _, err := h.tokens.Token(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}
