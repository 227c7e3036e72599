package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/zoomy82/hailstorm-harness/pregel"
)

// MySQLSaver persists snapshots in a MySQL database, for runs that must
// survive the process or be resumed from another one.
//
// The DSN must enable parseTime so timestamps scan into time.Time:
//
//	saver, err := store.NewMySQLSaver("user:pass@tcp(localhost:3306)/pregel?parseTime=true")
//
// Schema mirrors the SQLite backend: a checkpoints table of superstep
// snapshots and a checkpoint_writes table of partial progress cleared when
// the next snapshot lands.
type MySQLSaver struct {
	db *sql.DB
}

// NewMySQLSaver connects with the given DSN and migrates the schema.
func NewMySQLSaver(dsn string) (*MySQLSaver, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	s := &MySQLSaver{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *MySQLSaver) Close() error { return s.db.Close() }

func (s *MySQLSaver) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(191) NOT NULL,
			checkpoint_id VARCHAR(64) NOT NULL,
			step INT NOT NULL,
			checkpoint JSON NOT NULL,
			channel_values JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_run_checkpoint (run_id, checkpoint_id, step),
			KEY idx_checkpoints_run (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoint_writes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(191) NOT NULL,
			task_id VARCHAR(64) NOT NULL,
			channel VARCHAR(191) NOT NULL,
			value JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			KEY idx_writes_run (run_id, id)
		)`,
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
func (s *MySQLSaver) SaveCheckpoint(ctx context.Context, runID string, cp *pregel.Checkpoint, values map[string]any, step int) error {
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
		INSERT INTO checkpoints (run_id, checkpoint_id, step, checkpoint, channel_values)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE checkpoint = VALUES(checkpoint), channel_values = VALUES(channel_values)`,
		runID, cp.ID, step, string(cpJSON), string(valuesJSON)); err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_writes WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear pending writes: %w", err)
	}
	return tx.Commit()
}

// SaveWrites appends one task's writes to the run's partial progress.
func (s *MySQLSaver) SaveWrites(ctx context.Context, runID string, taskID string, writes []pregel.ChannelWrite) error {
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
			INSERT INTO checkpoint_writes (run_id, task_id, channel, value)
			VALUES (?, ?, ?, ?)`,
			runID, taskID, w.Channel, string(valueJSON)); err != nil {
			return fmt.Errorf("failed to insert write: %w", err)
		}
	}
	return tx.Commit()
}

// Latest returns the run's most recent snapshot.
func (s *MySQLSaver) Latest(ctx context.Context, runID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT checkpoint, channel_values, step, created_at
		FROM checkpoints WHERE run_id = ? ORDER BY id DESC LIMIT 1`, runID)
	return scanRecord(row)
}

// Get returns the run's snapshot with the given checkpoint id.
func (s *MySQLSaver) Get(ctx context.Context, runID, checkpointID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT checkpoint, channel_values, step, created_at
		FROM checkpoints WHERE run_id = ? AND checkpoint_id = ?
		ORDER BY id DESC LIMIT 1`, runID, checkpointID)
	return scanRecord(row)
}

// PendingWrites returns the partial writes recorded since the run's latest
// snapshot, in insertion order.
func (s *MySQLSaver) PendingWrites(ctx context.Context, runID string) ([]pregel.PendingWrite, error) {
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
		var valueJSON []byte
		if err := rows.Scan(&w.TaskID, &w.Channel, &valueJSON); err != nil {
			return nil, fmt.Errorf("failed to scan write: %w", err)
		}
		if err := json.Unmarshal(valueJSON, &w.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal write value: %w", err)
		}
		writes = append(writes, w)
	}
	return writes, rows.Err()
}

// List returns every snapshot of the run, oldest first.
func (s *MySQLSaver) List(ctx context.Context, runID string) ([]Record, error) {
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
