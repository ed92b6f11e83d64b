package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reportconv/internal/model"
)

// FileName is the name of the SQLite database file inside the store directory.
const FileName = "reportconv.db"

// ErrRunNotFound is returned when a run ID does not exist in the store.
var ErrRunNotFound = errors.New("run not found")

// ReportDB provides SQLite-based storage for conversion runs and their
// deduplicated reports.
//
// One database file holds every run. Runs are listed, rendered again or
// deleted; they are never diffed against each other.
type ReportDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ReportDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ReportDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ReportDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReportDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ReportDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ReportDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ReportDB) createTables() error {
	schema := `
	-- One row per convert invocation
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		source_root TEXT NOT NULL,
		input_count INTEGER NOT NULL,
		report_count INTEGER NOT NULL,
		diagnostic_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	-- Deduplicated reports of a run; report_json holds the full report
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		hash TEXT NOT NULL,
		checker TEXT NOT NULL,
		severity TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		"column" INTEGER NOT NULL,
		message TEXT NOT NULL,
		analyzer TEXT,
		category TEXT,
		duplicates INTEGER DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_run ON reports(run_id);
	CREATE INDEX IF NOT EXISTS idx_reports_hash ON reports(hash);
	CREATE INDEX IF NOT EXISTS idx_reports_checker ON reports(checker);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the metadata of one stored conversion run.
type RunRecord struct {
	// ID is a UUID assigned by SaveRun when empty.
	ID string

	// CreatedAt is when the run was converted. SaveRun uses the current
	// time when zero.
	CreatedAt time.Time

	SourceRoot      string
	InputCount      int
	ReportCount     int
	DiagnosticCount int
}

// NewRunRecord builds run metadata from a conversion result.
func NewRunRecord(result *model.ConversionResult) *RunRecord {
	return &RunRecord{
		CreatedAt:       result.StartedAt,
		SourceRoot:      result.SourceRoot,
		InputCount:      len(result.Files),
		ReportCount:     len(result.Reports),
		DiagnosticCount: len(result.Diagnostics),
	}
}

// SaveRun stores the run and its reports in one transaction and returns
// the run ID.
func (rdb *ReportDB) SaveRun(ctx context.Context, run *RunRecord, reports []*model.Report) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, created_at, source_root, input_count, report_count, diagnostic_count)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.SourceRoot,
		run.InputCount,
		run.ReportCount,
		run.DiagnosticCount,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO reports (run_id, hash, checker, severity, file, line, "column", message, analyzer, category, duplicates, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare report insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		reportJSON, err := json.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("failed to serialize report: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			run.ID,
			r.Hash(),
			r.CheckerName,
			r.Severity.String(),
			r.Location.File,
			r.Location.Line,
			r.Location.Column,
			r.Message,
			r.AnalyzerName,
			r.Category,
			r.Duplicates,
			string(reportJSON),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// GetRun retrieves run metadata by ID. It returns ErrRunNotFound when the
// run does not exist.
func (rdb *ReportDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `
	SELECT id, created_at, source_root, input_count, report_count, diagnostic_count
	FROM runs
	WHERE id = ?
	`

	run, err := scanRun(rdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns stored runs, newest first. A positive limit caps the
// number of runs returned.
func (rdb *ReportDB) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `
	SELECT id, created_at, source_root, input_count, report_count, diagnostic_count
	FROM runs
	ORDER BY created_at DESC, rowid DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListReports returns the reports of a run in the order they were saved.
func (rdb *ReportDB) ListReports(ctx context.Context, runID string) ([]*model.Report, error) {
	query := `
	SELECT report_json FROM reports
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var r model.Report
		if err := json.Unmarshal([]byte(reportJSON), &r); err != nil {
			return nil, fmt.Errorf("failed to parse report: %w", err)
		}
		reports = append(reports, &r)
	}

	return reports, rows.Err()
}

// DeleteRun removes a run and its reports.
func (rdb *ReportDB) DeleteRun(ctx context.Context, id string) error {
	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reports WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete reports: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var run RunRecord
	var createdAt string

	err := row.Scan(
		&run.ID,
		&createdAt,
		&run.SourceRoot,
		&run.InputCount,
		&run.ReportCount,
		&run.DiagnosticCount,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = parseTimestamp(createdAt)
	return &run, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
