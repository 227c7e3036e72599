// Package emit provides event emission and observability for the step
// engine.
package emit

// Event is an observability event emitted while a run executes: superstep
// boundaries, task lifecycle, interrupts, checkpoint saves.
//
// Events flow to an Emitter, which can log them, turn them into spans, or
// buffer them for inspection.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Step is the superstep number the event belongs to.
	Step int

	// TaskID identifies the task for task-scoped events. Empty for
	// step-level events.
	TaskID string

	// Node is the node name for task-scoped events.
	Node string

	// Msg names the event: "step_start", "step_end", "task_start",
	// "task_end", "task_error", "interrupt".
	Msg string

	// Meta carries event-specific detail. Common keys: "tasks",
	// "duration_ms", "writes", "error", "nodes".
	Meta map[string]any
}
