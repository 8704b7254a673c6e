package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"renderport/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
// Users will need to delete the journal database after schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Outcome classifies how a single file left the ingest pipeline.
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// Event is one per-file row in the ingest history.
type Event struct {
	ID              int64
	BatchID         string
	SourcePath      string
	SceneName       string
	QualityLabel    string
	ContentHash     string
	DestinationPath string
	Outcome         Outcome
	ErrorMessage    string
	Duration        time.Duration
	CreatedAt       time.Time
}

// Store persists ingest history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and verifies the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "journal", "open", "journal path not configured", nil)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrPersistence, "journal", "open",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init", "check schema_version table", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init", "read schema version", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init", "begin schema tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init", "create schema", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init", "record schema version", err)
	}
	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init", "commit schema", err)
	}
	return nil
}

// Record appends one per-file event to the history.
func (s *Store) Record(ctx context.Context, event Event) (int64, error) {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ingest_events (
            batch_id, source_path, scene_name, quality_label,
            content_hash, destination_path, outcome, error_message,
            duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.BatchID,
		event.SourcePath,
		event.SceneName,
		event.QualityLabel,
		nullableString(event.ContentHash),
		nullableString(event.DestinationPath),
		string(event.Outcome),
		nullableString(event.ErrorMessage),
		event.Duration.Milliseconds(),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "journal", "record", "insert event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "journal", "record", "last insert id", err)
	}
	return id, nil
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, source_path, scene_name, quality_label,
            content_hash, destination_path, outcome, error_message,
            duration_ms, created_at
        FROM ingest_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "recent", "query events", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// BySource returns the full history for one source path, most recent first.
func (s *Store) BySource(ctx context.Context, sourcePath string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, source_path, scene_name, quality_label,
            content_hash, destination_path, outcome, error_message,
            duration_ms, created_at
        FROM ingest_events WHERE source_path = ? ORDER BY id DESC`, sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "by-source", "query events", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// OutcomeCounts aggregates event totals per outcome.
func (s *Store) OutcomeCounts(ctx context.Context) (map[Outcome]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT outcome, COUNT(1) FROM ingest_events GROUP BY outcome")
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "counts", "query counts", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[Outcome]int64)
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "journal", "counts", "scan counts", err)
		}
		counts[Outcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "counts", "iterate counts", err)
	}
	return counts, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event       Event
			contentHash sql.NullString
			destination sql.NullString
			errorMsg    sql.NullString
			outcome     string
			durationMs  int64
			createdAt   string
		)
		if err := rows.Scan(
			&event.ID, &event.BatchID, &event.SourcePath, &event.SceneName,
			&event.QualityLabel, &contentHash, &destination, &outcome,
			&errorMsg, &durationMs, &createdAt,
		); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "journal", "scan", "scan event", err)
		}
		event.ContentHash = contentHash.String
		event.DestinationPath = destination.String
		event.ErrorMessage = errorMsg.String
		event.Outcome = Outcome(outcome)
		event.Duration = time.Duration(durationMs) * time.Millisecond
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			event.CreatedAt = parsed
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "scan", "iterate events", err)
	}
	return events, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
