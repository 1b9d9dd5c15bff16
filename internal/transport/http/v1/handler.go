// Package v1 provides the JSON API for web chat and filed reports.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/service"
)

// AudioPath is the URL prefix synthesized replies are served under.
const AudioPath = "/static/audio/"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Web chat
	e.POST("/v1/chat/sessions", h.CreateSession)
	e.POST("/v1/chat/sessions/:session_id/messages", h.PostMessage)
	e.GET("/v1/chat/sessions/:session_id/messages", h.GetMessages)

	// Filed reports
	e.GET("/v1/reports", h.ListReports)
	e.GET("/v1/reports/:id", h.GetReport)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAudio):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), map[string]string{"error": err.Error()})
}

func audioURL(file string) string {
	if file == "" {
		return ""
	}
	return AudioPath + file
}
