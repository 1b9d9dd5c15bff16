package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/logger"
	store "github.com/xiaot623/fieldwise/internal/repository"
)

func (app *App) addInitDBCommand(rootCmd *cobra.Command) {
	initCmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the reports table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := store.NewSQLiteStore(app.Config.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			logger.Info("database initialized", "database", app.Config.DatabaseURL)
			return nil
		},
	}
	rootCmd.AddCommand(initCmd)
}

func (app *App) addReportsCommand(rootCmd *cobra.Command) {
	reportsCmd := &cobra.Command{
		Use:   "reports [id]",
		Short: "List filed reports, newest first, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.NewSQLiteStore(app.Config.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid report id %q", args[0])
				}
				return showReport(cmd.Context(), out, db, id)
			}
			return listReports(cmd.Context(), out, db, asJSON)
		},
	}
	reportsCmd.Flags().Bool("json", false, "Print raw report payloads as JSON lines")
	rootCmd.AddCommand(reportsCmd)
}

func listReports(ctx context.Context, out io.Writer, db store.ReportStore, asJSON bool) error {
	reports, err := db.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(out, "No reports filed yet.")
		return nil
	}

	for _, r := range reports {
		if asJSON {
			line, err := json.Marshal(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(line))
			continue
		}
		site := r.Site()
		if site == "" {
			site = "-"
		}
		status := ""
		if r.Err != nil {
			status = "  (malformed)"
		}
		fmt.Fprintf(out, "#%-4d %s  %s%s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), site, status)
	}
	return nil
}

func showReport(ctx context.Context, out io.Writer, db store.ReportStore, id int64) error {
	r, err := db.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Report #%d filed %s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintln(out, formatPayload(r))
	return nil
}

// formatPayload indents a structured payload and leaves anything else as
// stored.
func formatPayload(r *domain.Report) string {
	if r.Data == nil {
		return r.Payload
	}
	pretty, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return r.Payload
	}
	return string(pretty)
}
