package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/fieldwise/internal/domain"
)

// SQLiteStore implements ReportStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite store and initializes its schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// Initialize creates the reports table if it doesn't exist.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			report_data TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores payload verbatim as a new report.
func (s *SQLiteStore) Save(ctx context.Context, payload string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO reports (report_data) VALUES (?)`, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}
	return id, nil
}

// ListAll retrieves all reports, newest first.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_data, timestamp
		FROM reports
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// Get retrieves a report by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, report_data, timestamp FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanner) (*domain.Report, error) {
	var (
		r  domain.Report
		ts sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.Payload, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	if ts.Valid {
		r.CreatedAt = ts.Time
	} else {
		r.CreatedAt = time.Time{}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(r.Payload), &data); err != nil {
		r.Err = &domain.MalformedRecordError{ReportID: r.ID, Err: err}
	} else {
		r.Data = data
	}
	return &r, nil
}
