package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/a11yscan/internal/model"
)

// dbFileName is the SQLite file created inside the database directory.
const dbFileName = "a11yscan.db"

// sqliteTimeLayout is the format used when writing timestamps. Reads go
// through parseTimestamp, which also accepts the formats older files may
// contain.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// ResultDB provides SQLite-based storage for run history: one row per run
// and one row per matrix cell. Cells are written incrementally while the
// run executes, so an interrupted run leaves its completed cells behind.
//
// Design decision: One database file holds every run rather than one file
// per run. Run comparison needs two runs side by side, and a single file
// keeps that a pair of queries instead of a file-discovery problem.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses URI-style modes: rw refuses to create a new
	// file, rwc creates one when missing.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer. The scheduler callback serializes
	// cell saves, so one connection is all the pool needs.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
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

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- Runs store one row per matrix run. Rollup columns stay zero until
	-- FinalizeRun; finished_at NULL marks an interrupted run.
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		targets INTEGER NOT NULL DEFAULT 0,
		variants INTEGER NOT NULL DEFAULT 0,
		cells INTEGER NOT NULL DEFAULT 0,
		completed_cells INTEGER NOT NULL DEFAULT 0,
		critical INTEGER NOT NULL DEFAULT 0,
		serious INTEGER NOT NULL DEFAULT 0,
		moderate INTEGER NOT NULL DEFAULT 0,
		minor INTEGER NOT NULL DEFAULT 0,
		info INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Cells store one row per (run, target, variant) with the probe
	-- outcomes serialized as JSON.
	CREATE TABLE IF NOT EXISTS cells (
		run_id TEXT NOT NULL,
		target TEXT NOT NULL,
		variant TEXT NOT NULL,
		state TEXT NOT NULL,
		started_at DATETIME,
		finished_at DATETIME,
		handle_error TEXT,
		source_digest TEXT,
		outcomes TEXT NOT NULL,
		critical INTEGER NOT NULL DEFAULT 0,
		serious INTEGER NOT NULL DEFAULT 0,
		moderate INTEGER NOT NULL DEFAULT 0,
		minor INTEGER NOT NULL DEFAULT 0,
		info INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, target, variant)
	);

	CREATE INDEX IF NOT EXISTS idx_cells_target ON cells(target);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord summarizes one stored run.
type RunRecord struct {
	// ID is the run identifier.
	ID string

	// StartedAt is when the run row was created.
	StartedAt time.Time

	// FinishedAt is when the run was finalized. Zero for a run that was
	// interrupted before FinalizeRun.
	FinishedAt time.Time

	// Targets is the number of targets the run planned.
	Targets int

	// Variants is the number of environment variants the run planned.
	Variants int

	// Cells is the number of cells the run planned (targets x variants).
	Cells int

	// CompletedCells is the number of cells that reached a terminal state.
	CompletedCells int

	// Counts is the run's global severity rollup, written at finalize time.
	Counts model.SeverityCounts
}

// Finished reports whether the run was finalized.
func (r *RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// CellRecord is one stored cell result.
type CellRecord struct {
	// RunID is the run this cell belongs to.
	RunID string

	// Target is the page URL.
	Target string

	// VariantKey is the environment variant key ("chrome-375x667").
	VariantKey string

	// State is the terminal cell state.
	State string

	// StartedAt is when the worker began the cell.
	StartedAt time.Time

	// FinishedAt is when the cell reached its terminal state.
	FinishedAt time.Time

	// HandleError holds the session acquisition or navigation error, if any.
	HandleError string

	// SourceDigest is the digest of the page source the cell evaluated.
	SourceDigest string

	// Outcomes maps probe ID to that probe's outcome in this cell.
	Outcomes map[string]model.ProbeOutcome

	// Counts tallies the cell's findings by severity.
	Counts model.SeverityCounts
}

// CreateRun inserts the run row. It must be called before the first
// SaveCell so incremental saves have a run to attach to.
func (rdb *ResultDB) CreateRun(ctx context.Context, runID string, targets, variants int) error {
	query := `
	INSERT INTO runs (id, targets, variants, cells)
	VALUES (?, ?, ?, ?)
	`

	_, err := rdb.db.ExecContext(ctx, query, runID, targets, variants, targets*variants)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// SaveCell inserts or updates one cell result. Uses UPSERT so a retried
// save is harmless.
func (rdb *ResultDB) SaveCell(ctx context.Context, runID string, result *model.CellResult) error {
	outcomesJSON, err := json.Marshal(result.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to serialize outcomes: %w", err)
	}

	counts := result.Counts()
	target, variantKey := result.Key()

	query := `
	INSERT INTO cells (run_id, target, variant, state, started_at, finished_at,
		handle_error, source_digest, outcomes, critical, serious, moderate, minor, info)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, target, variant) DO UPDATE SET
		state = excluded.state,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		handle_error = excluded.handle_error,
		source_digest = excluded.source_digest,
		outcomes = excluded.outcomes,
		critical = excluded.critical,
		serious = excluded.serious,
		moderate = excluded.moderate,
		minor = excluded.minor,
		info = excluded.info
	`

	_, err = rdb.db.ExecContext(ctx, query,
		runID,
		target,
		variantKey,
		result.State.String(),
		result.StartedAt.UTC().Format(sqliteTimeLayout),
		result.FinishedAt.UTC().Format(sqliteTimeLayout),
		result.HandleError,
		result.SourceDigest,
		string(outcomesJSON),
		counts.Critical,
		counts.Serious,
		counts.Moderate,
		counts.Minor,
		counts.Info,
	)
	if err != nil {
		return fmt.Errorf("failed to save cell: %w", err)
	}

	return nil
}

// FinalizeRun stamps the run finished and writes its rollups.
func (rdb *ResultDB) FinalizeRun(ctx context.Context, runID string, completedCells int, counts model.SeverityCounts) error {
	query := `
	UPDATE runs SET
		finished_at = CURRENT_TIMESTAMP,
		completed_cells = ?,
		critical = ?,
		serious = ?,
		moderate = ?,
		minor = ?,
		info = ?
	WHERE id = ?
	`

	result, err := rdb.db.ExecContext(ctx, query,
		completedCells,
		counts.Critical,
		counts.Serious,
		counts.Moderate,
		counts.Minor,
		counts.Info,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	return nil
}

// runColumns is the SELECT list matching scanRun.
const runColumns = "id, started_at, finished_at, targets, variants, cells, completed_cells, critical, serious, moderate, minor, info"

// scanRun reads one run row.
func scanRun(row interface{ Scan(dest ...any) error }) (*RunRecord, error) {
	var (
		record     RunRecord
		startedAt  string
		finishedAt sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&startedAt,
		&finishedAt,
		&record.Targets,
		&record.Variants,
		&record.Cells,
		&record.CompletedCells,
		&record.Counts.Critical,
		&record.Counts.Serious,
		&record.Counts.Moderate,
		&record.Counts.Minor,
		&record.Counts.Info,
	)
	if err != nil {
		return nil, err
	}

	record.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		record.FinishedAt = parseTimestamp(finishedAt.String)
	}

	return &record, nil
}

// RecentRuns returns up to limit runs, newest first.
func (rdb *ResultDB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT ` + runColumns + ` FROM runs
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := rdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, *record)
	}

	return results, rows.Err()
}

// RunsForTarget returns up to limit runs that recorded cells for the given
// target, newest first.
func (rdb *ResultDB) RunsForTarget(ctx context.Context, target string, limit int) ([]RunRecord, error) {
	query := `
	SELECT ` + runColumns + ` FROM runs
	WHERE id IN (SELECT DISTINCT run_id FROM cells WHERE target = ?)
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := rdb.db.QueryContext(ctx, query, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for target: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, *record)
	}

	return results, rows.Err()
}

// Run retrieves a run by ID. A unique prefix of the ID is accepted, so
// users can name runs by the first characters the report printed.
// Returns nil without error when no run matches.
func (rdb *ResultDB) Run(ctx context.Context, id string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	record, err := scanRun(rdb.db.QueryRowContext(ctx, query, id))
	if err == nil {
		return record, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	// No exact match; try the prefix. Two hits mean the prefix is ambiguous.
	prefixQuery := `
	SELECT ` + runColumns + ` FROM runs
	WHERE id LIKE ? || '%'
	LIMIT 2
	`

	rows, err := rdb.db.QueryContext(ctx, prefixQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var matches []*RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
}

// CellsForRun returns the cells recorded for a run, optionally filtered to
// one target, ordered by target then variant.
func (rdb *ResultDB) CellsForRun(ctx context.Context, runID, target string) ([]CellRecord, error) {
	query := `
	SELECT run_id, target, variant, state, started_at, finished_at,
		handle_error, source_digest, outcomes, critical, serious, moderate, minor, info
	FROM cells
	WHERE run_id = ?
	`
	args := []any{runID}

	if target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}

	query += " ORDER BY target, variant"

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer rows.Close()

	var results []CellRecord
	for rows.Next() {
		var (
			record       CellRecord
			startedAt    string
			finishedAt   string
			outcomesJSON string
		)

		err := rows.Scan(
			&record.RunID,
			&record.Target,
			&record.VariantKey,
			&record.State,
			&startedAt,
			&finishedAt,
			&record.HandleError,
			&record.SourceDigest,
			&outcomesJSON,
			&record.Counts.Critical,
			&record.Counts.Serious,
			&record.Counts.Moderate,
			&record.Counts.Minor,
			&record.Counts.Info,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}

		record.StartedAt = parseTimestamp(startedAt)
		record.FinishedAt = parseTimestamp(finishedAt)

		if err := json.Unmarshal([]byte(outcomesJSON), &record.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to parse outcomes: %w", err)
		}

		results = append(results, record)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
