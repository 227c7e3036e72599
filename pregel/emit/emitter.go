package emit

import "context"

// Emitter receives observability events from a run.
//
// Implementations should be thread-safe (task-scoped events arrive from
// concurrent task bodies), should not block the run, and should handle
// backend failures without panicking.
type Emitter interface {
	// Emit sends one event to the backend. Errors are handled internally;
	// Emit must not panic.
	Emit(event Event)

	// EmitBatch sends multiple events in order in a single operation.
	// Individual event failures are logged, not returned; the error is for
	// catastrophic failures only.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush delivers any buffered events, blocking until delivery or the
	// context ends. Safe to call repeatedly.
	Flush(ctx context.Context) error
}
