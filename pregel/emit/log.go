package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// LogEmitter writes structured event output to a writer.
//
// Two output modes:
//   - Text (default): human-readable lines with key=value pairs.
//   - JSON: one JSON object per line (JSONL), for machine consumption.
//
// Example text output:
//
//	[task_start] run=run-001 step=0 node=fetch
//
// Example JSON output:
//
//	{"runID":"run-001","step":0,"taskID":"6ba7…","node":"fetch","msg":"task_start"}
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter returns an emitter writing to writer (os.Stdout when nil).
// jsonMode switches from text lines to JSONL.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one event in the configured format.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(event)
}

// EmitBatch writes the events in order.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range events {
		l.write(event)
	}
	return nil
}

// Flush is a no-op: every event is written as it arrives.
func (l *LogEmitter) Flush(context.Context) error { return nil }

func (l *LogEmitter) write(event Event) {
	if l.jsonMode {
		l.writeJSON(event)
		return
	}
	l.writeText(event)
}

func (l *LogEmitter) writeJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID  string         `json:"runID"`
		Step   int            `json:"step"`
		TaskID string         `json:"taskID,omitempty"`
		Node   string         `json:"node,omitempty"`
		Msg    string         `json:"msg"`
		Meta   map[string]any `json:"meta,omitempty"`
	}{event.RunID, event.Step, event.TaskID, event.Node, event.Msg, event.Meta})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = l.writer.Write(append(data, '\n'))
}

func (l *LogEmitter) writeText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] run=%s step=%d", event.Msg, event.RunID, event.Step)
	if event.Node != "" {
		_, _ = fmt.Fprintf(l.writer, " node=%s", event.Node)
	}
	if len(event.Meta) > 0 {
		keys := make([]string, 0, len(event.Meta))
		for k := range event.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(l.writer, " %s=%v", k, event.Meta[k])
		}
	}
	_, _ = fmt.Fprintln(l.writer)
}
