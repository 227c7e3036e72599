// Package store provides checkpoint persistence backends for the step
// engine.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/zoomy82/hailstorm-harness/pregel"
)

// ErrNotFound is returned when a requested run or checkpoint does not exist.
var ErrNotFound = errors.New("not found")

// Record is one persisted superstep snapshot: the checkpoint plus the
// channel values it corresponds to.
type Record struct {
	// Checkpoint is the state record at the end of the superstep.
	Checkpoint *pregel.Checkpoint `json:"checkpoint"`

	// Values snapshots the channel contents, keyed by channel name.
	Values map[string]any `json:"values"`

	// Step is the superstep number the snapshot was taken after.
	Step int `json:"step"`

	// CreatedAt records when the snapshot was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// Saver persists checkpoints and per-task writes, and loads them back for
// resumption. Every backend implements the pregel.CheckpointSaver side
// (SaveCheckpoint, SaveWrites) plus the load operations below.
//
// Backends:
//   - MemorySaver: in-process maps, for tests and short-lived runs.
//   - SQLiteSaver: single-file database, zero-setup local persistence.
//   - MySQLSaver: shared database for runs that outlive one process.
type Saver interface {
	// SaveCheckpoint persists a superstep snapshot under the run id.
	// Saving the same checkpoint id at the same step again replaces that
	// snapshot; a different step adds a new one.
	SaveCheckpoint(ctx context.Context, runID string, cp *pregel.Checkpoint, values map[string]any, step int) error

	// SaveWrites persists one task's writes as partial progress toward the
	// next checkpoint of the run.
	SaveWrites(ctx context.Context, runID string, taskID string, writes []pregel.ChannelWrite) error

	// Latest returns the most recent snapshot of the run, or ErrNotFound.
	Latest(ctx context.Context, runID string) (Record, error)

	// Get returns the most recent snapshot with the given checkpoint id, or
	// ErrNotFound.
	Get(ctx context.Context, runID, checkpointID string) (Record, error)

	// PendingWrites returns the partial-progress writes recorded since the
	// run's latest snapshot, in insertion order.
	PendingWrites(ctx context.Context, runID string) ([]pregel.PendingWrite, error)

	// List returns every snapshot of the run, oldest first.
	List(ctx context.Context, runID string) ([]Record, error)
}
