package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, false)
		emitter.Emit(Event{RunID: "run-1", Step: 2, Node: "fetch", Msg: "task_start"})

		line := buf.String()
		for _, want := range []string{"[task_start]", "run=run-1", "step=2", "node=fetch"} {
			if !strings.Contains(line, want) {
				t.Errorf("line %q missing %q", line, want)
			}
		}
	})

	t.Run("json mode", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, true)
		emitter.Emit(Event{RunID: "run-1", Step: 0, Msg: "step_start", Meta: map[string]any{"tasks": 3}})

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded["msg"] != "step_start" || decoded["runID"] != "run-1" {
			t.Errorf("decoded = %v", decoded)
		}
	})

	t.Run("meta keys in stable order", func(t *testing.T) {
		var first, second bytes.Buffer
		meta := map[string]any{"b": 1, "a": 2, "c": 3}
		NewLogEmitter(&first, false).Emit(Event{RunID: "r", Msg: "m", Meta: meta})
		NewLogEmitter(&second, false).Emit(Event{RunID: "r", Msg: "m", Meta: meta})
		if first.String() != second.String() {
			t.Error("text output varies across emissions of the same event")
		}
	})

	t.Run("batch writes in order", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, true)
		err := emitter.EmitBatch(context.Background(), []Event{
			{RunID: "r", Step: 0, Msg: "first"},
			{RunID: "r", Step: 1, Msg: "second"},
		})
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 || !strings.Contains(lines[0], "first") {
			t.Errorf("batch output = %q", buf.String())
		}
	})
}

func TestBufferedEmitter(t *testing.T) {
	seed := func() *BufferedEmitter {
		b := NewBufferedEmitter()
		b.Emit(Event{RunID: "run-1", Step: 0, Node: "A", Msg: "task_start"})
		b.Emit(Event{RunID: "run-1", Step: 0, Node: "A", Msg: "task_end"})
		b.Emit(Event{RunID: "run-1", Step: 1, Node: "B", Msg: "task_error"})
		b.Emit(Event{RunID: "run-2", Step: 0, Node: "A", Msg: "task_start"})
		return b
	}

	t.Run("history per run", func(t *testing.T) {
		b := seed()
		if got := len(b.History("run-1")); got != 3 {
			t.Errorf("run-1 history = %d events, want 3", got)
		}
		if got := len(b.History("missing")); got != 0 {
			t.Errorf("unknown run history = %d events, want 0", got)
		}
	})

	t.Run("filters combine with and", func(t *testing.T) {
		b := seed()
		got := b.HistoryWithFilter("run-1", HistoryFilter{Node: "A", Msg: "task_end"})
		if len(got) != 1 || got[0].Msg != "task_end" {
			t.Errorf("filtered = %v", got)
		}
	})

	t.Run("step bounds", func(t *testing.T) {
		b := seed()
		min := 1
		got := b.HistoryWithFilter("run-1", HistoryFilter{MinStep: &min})
		if len(got) != 1 || got[0].Node != "B" {
			t.Errorf("filtered = %v", got)
		}
	})

	t.Run("clear one run", func(t *testing.T) {
		b := seed()
		b.Clear("run-1")
		if len(b.History("run-1")) != 0 {
			t.Error("run-1 events survived clear")
		}
		if len(b.History("run-2")) != 1 {
			t.Error("run-2 events lost by scoped clear")
		}
	})

	t.Run("history is a copy", func(t *testing.T) {
		b := seed()
		events := b.History("run-1")
		events[0].Msg = "mutated"
		if b.History("run-1")[0].Msg == "mutated" {
			t.Error("mutating returned history reached the buffer")
		}
	})
}
