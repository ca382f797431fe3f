package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/exposcan/internal/model"
)

// DBFile is the database file name inside the database directory.
const DBFile = "exposcan.db"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02 15:04:05.000000000"

// HistoryDB stores scan runs and their findings.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
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

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFile)

	const pragmas = "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	dsn := dbPath + "?mode=rwc" + pragmas
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw" + pragmas
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(context.Background()); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		seeds INTEGER NOT NULL DEFAULT 0,
		scheduled INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		ignored INTEGER NOT NULL DEFAULT 0,
		branch_timeouts INTEGER NOT NULL DEFAULT 0,
		finding_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		rule TEXT NOT NULL,
		reason TEXT NOT NULL,
		severity TEXT NOT NULL,
		depth INTEGER NOT NULL DEFAULT 0,
		detected_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_url ON findings(url);
	`

	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// RunSummary is a stored run without its findings.
type RunSummary struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
	Seeds       int
	Stats       model.Stats
}

// Duration returns the wall-clock length of the run.
func (r RunSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SaveRun stores a run and its findings in one transaction.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // original error is returned
		}
	}()

	s := report.Stats
	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, finished_at, interrupted, seeds, scheduled, succeeded,
		failed, rejected, duplicates, ignored, branch_timeouts, finding_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Interrupted,
		report.Seeds,
		s.Scheduled,
		s.Succeeded,
		s.Failed,
		s.Rejected,
		s.Duplicates,
		s.Ignored,
		s.BranchTimeouts,
		len(report.Findings),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO findings (run_id, url, rule, reason, severity, depth, detected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range report.Findings {
		if _, err = stmt.ExecContext(ctx,
			report.RunID,
			f.URL,
			string(f.Rule),
			f.Reason,
			f.Severity.Label(),
			f.Depth,
			formatTimestamp(f.DetectedAt),
		); err != nil {
			return fmt.Errorf("failed to save finding: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, interrupted, seeds, scheduled, succeeded,
	failed, rejected, duplicates, ignored, branch_timeouts, finding_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var r RunSummary
	var started, finished string
	err := row.Scan(
		&r.ID,
		&started,
		&finished,
		&r.Interrupted,
		&r.Seeds,
		&r.Stats.Scheduled,
		&r.Stats.Succeeded,
		&r.Stats.Failed,
		&r.Stats.Rejected,
		&r.Stats.Duplicates,
		&r.Stats.Ignored,
		&r.Stats.BranchTimeouts,
		&r.Stats.Findings,
	)
	if err != nil {
		return RunSummary{}, err
	}
	r.StartedAt = parseTimestamp(started)
	r.FinishedAt = parseTimestamp(finished)
	r.Stats.StartedAt = r.StartedAt
	r.Stats.Elapsed = r.Duration()
	return r, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (h *HistoryDB) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// GetRunFindings returns the findings of a run ordered by URL.
func (h *HistoryDB) GetRunFindings(ctx context.Context, runID string) ([]model.Finding, error) {
	return h.queryFindings(ctx, `
	SELECT url, rule, reason, severity, depth, detected_at
	FROM findings
	WHERE run_id = ?
	ORDER BY url
	`, runID)
}

// NewFindings returns the findings of a run whose URL was not reported by
// any earlier run.
func (h *HistoryDB) NewFindings(ctx context.Context, runID string) ([]model.Finding, error) {
	return h.queryFindings(ctx, `
	SELECT f.url, f.rule, f.reason, f.severity, f.depth, f.detected_at
	FROM findings f
	JOIN runs r ON r.id = f.run_id
	WHERE f.run_id = ?
	AND NOT EXISTS (
		SELECT 1 FROM findings f2
		JOIN runs r2 ON r2.id = f2.run_id
		WHERE f2.url = f.url AND r2.started_at < r.started_at
	)
	ORDER BY f.url
	`, runID)
}

func (h *HistoryDB) queryFindings(ctx context.Context, query string, args ...any) ([]model.Finding, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	findings := make([]model.Finding, 0)
	for rows.Next() {
		var f model.Finding
		var rule, severity, detected string
		if err := rows.Scan(&f.URL, &rule, &f.Reason, &severity, &f.Depth, &detected); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Rule = model.Rule(rule)
		if sev, ok := model.ParseSeverity(severity); ok {
			f.Severity = sev
		} else {
			f.Severity = model.GetSeverity(f.Rule)
		}
		f.DetectedAt = parseTimestamp(detected)
		findings = append(findings, f)
	}

	return findings, rows.Err()
}

// DeleteRun removes a run and its findings.
func (h *HistoryDB) DeleteRun(ctx context.Context, runID string) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // original error is returned
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM findings WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete findings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		err = fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp parses a stored timestamp as UTC. It returns the zero time
// when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
