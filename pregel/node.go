package pregel

import (
	"context"
	"time"
)

// Runnable is a task body. The engine never invokes it; the driver does,
// with the input the planner bound and the merged task configuration.
type Runnable interface {
	Invoke(ctx context.Context, input any, cfg Config) (any, error)
}

// RunnableFunc adapts a plain function to the Runnable interface.
type RunnableFunc func(ctx context.Context, input any, cfg Config) (any, error)

// Invoke implements Runnable.
func (f RunnableFunc) Invoke(ctx context.Context, input any, cfg Config) (any, error) {
	return f(ctx, input, cfg)
}

// Node is a process registered with the planner. It subscribes to trigger
// channels, binds its input from channels or managed values, and carries the
// execution policy the driver applies to its tasks.
type Node struct {
	// Name identifies the process. It must be unique within the registry.
	Name string

	// Triggers are the channels whose version advance makes the node
	// runnable.
	Triggers []string

	// InputChannels binds the input to the first non-empty channel in
	// order. Mutually exclusive with InputMapping.
	InputChannels []string

	// InputMapping binds the input to a map of key to channel value. A
	// trigger channel read that comes up empty suppresses the task;
	// non-trigger reads that come up empty leave the key out. A channel
	// name absent from the channel map is read from managed values under
	// the key instead.
	InputMapping map[string]string

	// Mapper transforms the bound input before the body sees it. Applied
	// only when preparing tasks for execution.
	Mapper func(any) any

	// Retry is the policy the driver should apply to the node's tasks.
	Retry *RetryPolicy

	// Tags annotate the node's tasks. TagHidden excludes the node from
	// wildcard interrupt selection.
	Tags []string

	// Metadata is merged into the metadata of the node's tasks.
	Metadata map[string]any

	// Body is the underlying executable.
	Body Runnable

	// Writers are side-effect hooks run by the driver with the body's
	// return value to produce the task's channel writes.
	Writers []Runnable
}

// RetryPolicy declares how a driver should retry a failed task body. The
// engine attaches it to executable tasks and does not enforce it: Loop runs
// each body once and surfaces the first failure.
type RetryPolicy struct {
	// MaxAttempts is the number of attempts including the first. A value of
	// 1 disables retries.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration

	// Retryable decides whether an error is worth another attempt. Nil
	// treats every error as final.
	Retryable func(error) bool
}
