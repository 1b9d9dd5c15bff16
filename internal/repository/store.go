// Package store provides persistence for fieldwise.
package store

import (
	"context"

	"github.com/xiaot623/fieldwise/internal/domain"
)

// ReportStore is the durable append-only log of completed reports.
type ReportStore interface {
	// Initialize creates the backing schema if it does not exist.
	Initialize(ctx context.Context) error
	// Save appends payload and returns the assigned report id.
	Save(ctx context.Context, payload string) (int64, error)
	// ListAll returns every report, newest first. Undecodable payloads are
	// reported per record through Report.Err.
	ListAll(ctx context.Context) ([]domain.Report, error)
	// Get returns one report or domain.ErrReportNotFound.
	Get(ctx context.Context, id int64) (*domain.Report, error)
	Close() error
}

// Ensure SQLiteStore implements ReportStore.
var _ ReportStore = (*SQLiteStore)(nil)
