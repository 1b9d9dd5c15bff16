package main

import (
	"github.com/spf13/cobra"

	"github.com/xiaot623/fieldwise/internal/config"
	"github.com/xiaot623/fieldwise/internal/logger"
)

// App represents the fieldwise CLI application.
type App struct {
	Config *config.Config

	logLevel string
	logFile  string
}

// NewApp creates the application with configuration read from the
// environment.
func NewApp() *App {
	return &App{Config: config.Load()}
}

// CreateRootCommand creates and configures the root command.
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fieldwise",
		Short: "Conversational maintenance report assistant",
		Long: `fieldwise walks field technicians through a maintenance report over web
chat, websocket or a phone call, and files the summarized report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logger.Configure(app.logLevel, app.logFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", app.Config.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&app.logFile, "log-file", app.Config.LogFile, "Write logs to this file instead of stderr")

	app.addServeCommand(rootCmd)
	app.addInitDBCommand(rootCmd)
	app.addReportsCommand(rootCmd)
	app.addChatCommand(rootCmd)

	return rootCmd
}
