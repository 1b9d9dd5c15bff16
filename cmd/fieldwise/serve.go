package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/fieldwise/internal/adapter/llm"
	"github.com/xiaot623/fieldwise/internal/adapter/speech"
	"github.com/xiaot623/fieldwise/internal/conversation"
	"github.com/xiaot623/fieldwise/internal/logger"
	"github.com/xiaot623/fieldwise/internal/policy"
	store "github.com/xiaot623/fieldwise/internal/repository"
	"github.com/xiaot623/fieldwise/internal/service"
	handler "github.com/xiaot623/fieldwise/internal/transport/http"
	"github.com/xiaot623/fieldwise/internal/transport/ws"
)

func (app *App) addServeCommand(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, websocket and voice server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.serve(cmd.Context())
		},
	}
	serveCmd.Flags().IntVar(&app.Config.HTTPPort, "port", app.Config.HTTPPort, "HTTP port")
	rootCmd.AddCommand(serveCmd)
}

func (app *App) serve(ctx context.Context) error {
	cfg := app.Config

	logger.Info("starting fieldwise",
		"port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"public_base_url", cfg.PublicBaseURL,
		"mode", cfg.Mode)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	filing, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	if err := os.MkdirAll(cfg.AudioDir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio dir: %w", err)
	}

	llmClient := llm.NewLLMClient(cfg)
	transcriber, synthesizer := speech.NewGateways(cfg)
	engine := conversation.NewEngine(conversation.NewLLMPolicy(llmClient, ""))
	svc := service.New(engine, db, store.NewSessionRegistry(), filing, transcriber, synthesizer)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub()
	go hub.Run(hubCtx)

	server := handler.NewServer(cfg, svc, hub)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down fieldwise")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", "error", err)
	}

	logger.Info("fieldwise stopped")
	return nil
}
