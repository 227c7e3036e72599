package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zoomy82/hailstorm-harness/pregel"
)

// SQLiteSaver persists snapshots in a single-file database. Zero-setup local
// persistence: development, single-process runs, prototyping before moving
// to a shared database.
//
// Schema:
//   - checkpoints: one row per superstep snapshot (checkpoint + values JSON).
//   - checkpoint_writes: partial-progress task writes toward the next
//     snapshot, cleared when it lands.
//
// WAL mode is enabled so readers do not block the single writer.
type SQLiteSaver struct {
	db *sql.DB
}

// NewSQLiteSaver opens (creating if needed) the database at path and
// migrates the schema. Use ":memory:" for an in-memory database.
func NewSQLiteSaver(path string) (*SQLiteSaver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time; keep the connection alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteSaver{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteSaver) Close() error { return s.db.Close() }

func (s *SQLiteSaver) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			checkpoint_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			checkpoint TEXT NOT NULL,
			channel_values TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(run_id, checkpoint_id, step)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id, id)`,
		`CREATE TABLE IF NOT EXISTS checkpoint_writes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			value TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_writes_run ON checkpoint_writes(run_id, id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCheckpoint stores the snapshot and clears the run's partial writes in
// one transaction.
func (s *SQLiteSaver) SaveCheckpoint(ctx context.Context, runID string, cp *pregel.Checkpoint, values map[string]any, step int) error {
	cpJSON, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal channel values: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, checkpoint_id, step, checkpoint, channel_values, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, checkpoint_id, step)
		DO UPDATE SET checkpoint = excluded.checkpoint, channel_values = excluded.channel_values`,
		runID, cp.ID, step, string(cpJSON), string(valuesJSON),
		time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_writes WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear pending writes: %w", err)
	}
	return tx.Commit()
}

// SaveWrites appends one task's writes to the run's partial progress.
func (s *SQLiteSaver) SaveWrites(ctx context.Context, runID string, taskID string, writes []pregel.ChannelWrite) error {
	if len(writes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range writes {
		valueJSON, err := json.Marshal(w.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal write value: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO checkpoint_writes (run_id, task_id, channel, value, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			runID, taskID, w.Channel, string(valueJSON),
			time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to insert write: %w", err)
		}
	}
	return tx.Commit()
}

// Latest returns the run's most recent snapshot.
func (s *SQLiteSaver) Latest(ctx context.Context, runID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT checkpoint, channel_values, step, created_at
		FROM checkpoints WHERE run_id = ? ORDER BY id DESC LIMIT 1`, runID)
	return scanRecord(row)
}

// Get returns the run's snapshot with the given checkpoint id.
func (s *SQLiteSaver) Get(ctx context.Context, runID, checkpointID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT checkpoint, channel_values, step, created_at
		FROM checkpoints WHERE run_id = ? AND checkpoint_id = ?
		ORDER BY id DESC LIMIT 1`, runID, checkpointID)
	return scanRecord(row)
}

// PendingWrites returns the partial writes recorded since the run's latest
// snapshot, in insertion order.
func (s *SQLiteSaver) PendingWrites(ctx context.Context, runID string) ([]pregel.PendingWrite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, channel, value
		FROM checkpoint_writes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending writes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var writes []pregel.PendingWrite
	for rows.Next() {
		var w pregel.PendingWrite
		var valueJSON string
		if err := rows.Scan(&w.TaskID, &w.Channel, &valueJSON); err != nil {
			return nil, fmt.Errorf("failed to scan write: %w", err)
		}
		if err := json.Unmarshal([]byte(valueJSON), &w.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal write value: %w", err)
		}
		writes = append(writes, w)
	}
	return writes, rows.Err()
}

// List returns every snapshot of the run, oldest first.
func (s *SQLiteSaver) List(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT checkpoint, channel_values, step, created_at
		FROM checkpoints WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (Record, error) {
	rec, err := scanRecordRows(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func scanRecordRows(row rowScanner) (Record, error) {
	var cpJSON, valuesJSON string
	var step int
	var createdRaw any
	if err := row.Scan(&cpJSON, &valuesJSON, &step, &createdRaw); err != nil {
		return Record{}, err
	}
	rec := Record{Step: step, CreatedAt: coerceTime(createdRaw), Checkpoint: &pregel.Checkpoint{}}
	if err := json.Unmarshal([]byte(cpJSON), rec.Checkpoint); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if err := json.Unmarshal([]byte(valuesJSON), &rec.Values); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal channel values: %w", err)
	}
	return rec, nil
}

// coerceTime normalizes the created_at column across drivers: mysql with
// parseTime hands back time.Time, sqlite hands back the stored text.
func coerceTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimeText(t)
	case []byte:
		return parseTimeText(string(t))
	}
	return time.Time{}
}

func parseTimeText(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
