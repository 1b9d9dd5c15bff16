// Package http assembles the fieldwise HTTP server.
package http

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/fieldwise/internal/config"
	"github.com/xiaot623/fieldwise/internal/service"
	v1 "github.com/xiaot623/fieldwise/internal/transport/http/v1"
	"github.com/xiaot623/fieldwise/internal/transport/http/voice"
	"github.com/xiaot623/fieldwise/internal/transport/ws"
)

// NewServer creates and configures the HTTP server. It serves the web chat
// and reports API, the Twilio voice webhook, the websocket chat and the
// synthesized audio files.
func NewServer(cfg *config.Config, svc *service.Service, hub *ws.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)
	voiceHandler := voice.NewHandler(svc, cfg.PublicBaseURL, v1.AudioPath)
	wsServer := ws.NewServer(cfg, hub, svc, v1.AudioPath)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	voiceHandler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)
	e.Static(strings.TrimSuffix(v1.AudioPath, "/"), cfg.AudioDir)

	return e
}
