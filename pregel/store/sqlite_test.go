package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/zoomy82/hailstorm-harness/pregel"
)

func newTestSQLiteSaver(t *testing.T) *SQLiteSaver {
	t.Helper()
	saver, err := NewSQLiteSaver(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite saver: %v", err)
	}
	t.Cleanup(func() { _ = saver.Close() })
	return saver
}

func TestSQLiteSaver(t *testing.T) {
	ctx := context.Background()

	t.Run("latest of unknown run", func(t *testing.T) {
		saver := newTestSQLiteSaver(t)
		if _, err := saver.Latest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("checkpoint round trip", func(t *testing.T) {
		saver := newTestSQLiteSaver(t)
		cp := sampleCheckpoint()
		cp.VersionsSeen["A"] = map[string]pregel.Version{"in": 1}
		cp.PendingSends = []pregel.Send{{Node: "B", Arg: float64(7)}}
		values := map[string]any{"in": "x"}

		if err := saver.SaveCheckpoint(ctx, "run-1", cp, values, 0); err != nil {
			t.Fatal(err)
		}
		rec, err := saver.Latest(ctx, "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if rec.Checkpoint.ID != cp.ID {
			t.Errorf("checkpoint id = %s, want %s", rec.Checkpoint.ID, cp.ID)
		}
		if rec.Checkpoint.ChannelVersions["in"] != 1 {
			t.Errorf("channel versions = %v", rec.Checkpoint.ChannelVersions)
		}
		if rec.Checkpoint.VersionsSeen["A"]["in"] != 1 {
			t.Errorf("versions seen = %v", rec.Checkpoint.VersionsSeen)
		}
		if len(rec.Checkpoint.PendingSends) != 1 || rec.Checkpoint.PendingSends[0].Node != "B" {
			t.Errorf("pending sends = %v", rec.Checkpoint.PendingSends)
		}
		if rec.Values["in"] != "x" {
			t.Errorf("values = %v", rec.Values)
		}
	})

	t.Run("saving same checkpoint replaces", func(t *testing.T) {
		saver := newTestSQLiteSaver(t)
		cp := sampleCheckpoint()
		if err := saver.SaveCheckpoint(ctx, "run-1", cp, map[string]any{"in": "old"}, 0); err != nil {
			t.Fatal(err)
		}
		if err := saver.SaveCheckpoint(ctx, "run-1", cp, map[string]any{"in": "new"}, 0); err != nil {
			t.Fatal(err)
		}
		records, err := saver.List(ctx, "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 || records[0].Values["in"] != "new" {
			t.Errorf("records = %v", records)
		}
	})

	t.Run("writes cleared by next snapshot", func(t *testing.T) {
		saver := newTestSQLiteSaver(t)
		if err := saver.SaveWrites(ctx, "run-1", "task-1", []pregel.ChannelWrite{
			{Channel: "out", Value: "v"},
		}); err != nil {
			t.Fatal(err)
		}
		writes, err := saver.PendingWrites(ctx, "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(writes) != 1 || writes[0].Channel != "out" || writes[0].Value != "v" {
			t.Errorf("pending writes = %v", writes)
		}

		if err := saver.SaveCheckpoint(ctx, "run-1", sampleCheckpoint(), nil, 1); err != nil {
			t.Fatal(err)
		}
		writes, err = saver.PendingWrites(ctx, "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(writes) != 0 {
			t.Errorf("pending writes after snapshot = %v, want none", writes)
		}
	})

	t.Run("runs are isolated", func(t *testing.T) {
		saver := newTestSQLiteSaver(t)
		if err := saver.SaveCheckpoint(ctx, "run-1", sampleCheckpoint(), nil, 0); err != nil {
			t.Fatal(err)
		}
		if _, err := saver.Latest(ctx, "run-2"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound for the other run", err)
		}
	})
}
