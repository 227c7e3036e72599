package store

import (
	"context"
	"sync"
	"time"

	"github.com/zoomy82/hailstorm-harness/pregel"
)

// MemorySaver keeps snapshots and writes in process memory. Nothing survives
// a restart; use it for tests, development and runs whose lifetime matches
// the process.
//
// All methods are safe for concurrent use.
type MemorySaver struct {
	mu      sync.RWMutex
	records map[string][]Record
	writes  map[string][]pregel.PendingWrite
}

// NewMemorySaver returns an empty in-memory saver.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{
		records: make(map[string][]Record),
		writes:  make(map[string][]pregel.PendingWrite),
	}
}

// SaveCheckpoint stores a copy of the checkpoint and values. A snapshot
// supersedes the run's recorded partial writes: they were progress toward
// this checkpoint.
func (m *MemorySaver) SaveCheckpoint(_ context.Context, runID string, cp *pregel.Checkpoint, values map[string]any, step int) error {
	rec := Record{
		Checkpoint: cp.Copy(),
		Values:     copyValues(values),
		Step:       step,
		CreatedAt:  time.Now(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.records[runID]
	for i := range records {
		if records[i].Checkpoint.ID == cp.ID && records[i].Step == step {
			records[i] = rec
			delete(m.writes, runID)
			return nil
		}
	}
	m.records[runID] = append(records, rec)
	delete(m.writes, runID)
	return nil
}

// SaveWrites appends one task's writes to the run's partial progress.
func (m *MemorySaver) SaveWrites(_ context.Context, runID string, taskID string, writes []pregel.ChannelWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range writes {
		m.writes[runID] = append(m.writes[runID], pregel.PendingWrite{
			TaskID:  taskID,
			Channel: w.Channel,
			Value:   w.Value,
		})
	}
	return nil
}

// Latest returns the run's most recent snapshot.
func (m *MemorySaver) Latest(_ context.Context, runID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.records[runID]
	if len(records) == 0 {
		return Record{}, ErrNotFound
	}
	return records[len(records)-1], nil
}

// Get returns the run's most recent snapshot with the given checkpoint id.
func (m *MemorySaver) Get(_ context.Context, runID, checkpointID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.records[runID]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Checkpoint.ID == checkpointID {
			return records[i], nil
		}
	}
	return Record{}, ErrNotFound
}

// PendingWrites returns the partial writes recorded since the run's latest
// snapshot.
func (m *MemorySaver) PendingWrites(_ context.Context, runID string) ([]pregel.PendingWrite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	writes := m.writes[runID]
	out := make([]pregel.PendingWrite, len(writes))
	copy(out, writes)
	return out, nil
}

// List returns every snapshot of the run, oldest first.
func (m *MemorySaver) List(_ context.Context, runID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.records[runID]
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
