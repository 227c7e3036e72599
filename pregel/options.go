package pregel

import (
	"fmt"

	"github.com/zoomy82/hailstorm-harness/pregel/emit"
)

// Option configures a Loop at construction.
//
// Example:
//
//	loop, err := pregel.NewLoop(
//	    processes, channels,
//	    pregel.WithRunID("run-001"),
//	    pregel.WithMaxSteps(50),
//	    pregel.WithSaver(saver),
//	)
type Option func(*Loop) error

// WithRunID sets the identifier persisted checkpoints and emitted events are
// keyed by. Defaults to a fresh UUID.
func WithRunID(runID string) Option {
	return func(l *Loop) error {
		if runID == "" {
			return fmt.Errorf("run id cannot be empty")
		}
		l.runID = runID
		return nil
	}
}

// WithCheckpoint starts the loop from an existing checkpoint instead of a
// fresh one, resuming the run it records.
func WithCheckpoint(cp *Checkpoint, step int) Option {
	return func(l *Loop) error {
		if cp == nil {
			return fmt.Errorf("checkpoint cannot be nil")
		}
		l.checkpoint = cp
		l.step = step
		return nil
	}
}

// WithPendingWrites seeds the first superstep with writes recovered from a
// prior partial run of the same step, typically loaded from the saver's
// PendingWrites. They feed the planner's push pathway and each matching
// task's recovered-writes config entry, and are dropped once that step
// applies.
func WithPendingWrites(writes []PendingWrite) Option {
	return func(l *Loop) error {
		l.pendingWrites = writes
		return nil
	}
}

// WithConfig sets the run configuration tasks inherit from.
func WithConfig(cfg Config) Option {
	return func(l *Loop) error {
		l.config = cfg
		return nil
	}
}

// WithManaged registers managed-value producers, consulted when a node's
// input mapping names a key with no backing channel.
func WithManaged(managed ManagedValues) Option {
	return func(l *Loop) error {
		l.managed = managed
		return nil
	}
}

// WithManagedWriter registers the consumer for writes addressed to a managed
// value. Write application returns such writes instead of applying them; the
// loop hands them to the registered consumer after each superstep.
func WithManagedWriter(name string, apply func(values []any)) Option {
	return func(l *Loop) error {
		if l.managedWriters == nil {
			l.managedWriters = make(map[string]func(values []any))
		}
		l.managedWriters[name] = apply
		return nil
	}
}

// WithStore sets the opaque store collaborator handed to tasks under
// ConfigKeyStore.
func WithStore(store any) Option {
	return func(l *Loop) error {
		l.store = store
		return nil
	}
}

// WithCallbackManager sets the manager that hands out per-task callback
// handles.
func WithCallbackManager(manager CallbackManager) Option {
	return func(l *Loop) error {
		l.manager = manager
		return nil
	}
}

// WithSaver persists the checkpoint after seeding and after every superstep,
// and each task's writes as they complete.
func WithSaver(saver CheckpointSaver) Option {
	return func(l *Loop) error {
		l.saver = saver
		return nil
	}
}

// WithEmitter routes step and task lifecycle events to the emitter. Defaults
// to the null emitter.
func WithEmitter(emitter emit.Emitter) Option {
	return func(l *Loop) error {
		if emitter == nil {
			return fmt.Errorf("emitter cannot be nil")
		}
		l.emitter = emitter
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection for steps, tasks and
// interrupts.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(l *Loop) error {
		l.metrics = metrics
		return nil
	}
}

// WithNextVersion replaces the channel versioning function. The default
// increments integer versions from the highest current version.
func WithNextVersion(next NextVersion) Option {
	return func(l *Loop) error {
		if next == nil {
			return fmt.Errorf("next version function cannot be nil")
		}
		l.nextVersion = next
		return nil
	}
}

// WithMaxSteps limits the number of supersteps before Run fails with
// ErrMaxStepsExceeded. Loops in the graph are expected; the limit is the
// guard against a missing exit condition.
func WithMaxSteps(n int) Option {
	return func(l *Loop) error {
		if n < 1 {
			return fmt.Errorf("max steps must be at least 1")
		}
		l.maxSteps = n
		return nil
	}
}

// WithMaxConcurrent bounds how many task bodies run at once within a
// superstep.
func WithMaxConcurrent(n int) Option {
	return func(l *Loop) error {
		if n < 1 {
			return fmt.Errorf("max concurrent must be at least 1")
		}
		l.maxConcurrent = n
		return nil
	}
}

// WithInterruptNodes halts the run before executing a superstep that
// prepared a task for any of the named nodes, once some channel has advanced
// since the last interrupt. A single AllNodes entry interrupts before every
// non-hidden task.
func WithInterruptNodes(nodes ...string) Option {
	return func(l *Loop) error {
		l.interruptNodes = nodes
		return nil
	}
}
