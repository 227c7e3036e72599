package pregel

import (
	"sort"
	"strings"
	"sync"
)

// PathPrefix is the flattened first-three-component form of a task path. Its
// elements are strings, ints, or nested PathPrefix values. The prefix is what
// write application sorts by and what task ids encode; the components a full
// path carries beyond it are id-bearing and never influence ordering.
type PathPrefix []any

// TaskPath identifies a task structurally within a superstep. Exactly one of
// the concrete types below implements it.
type TaskPath interface {
	// Prefix returns the first-three-component flattening used for ordering
	// and id derivation.
	Prefix() PathPrefix

	isTaskPath()
}

// PullPath activates a node whose trigger channels advanced.
type PullPath struct {
	Node string
}

// Prefix returns (pull, node).
func (p PullPath) Prefix() PathPrefix { return PathPrefix{ChannelPull, p.Node} }

func (PullPath) isTaskPath() {}

// PushLegacyPath indexes into the checkpoint's pending sends from the
// previous superstep.
type PushLegacyPath struct {
	Index int
}

// Prefix returns (push, index).
func (p PushLegacyPath) Prefix() PathPrefix { return PathPrefix{ChannelPush, p.Index} }

func (PushLegacyPath) isTaskPath() {}

// PushPath is a Send produced in the current superstep, addressed by the
// producing task's path prefix and the index of the push write among all of
// that task's pending writes. Call carries an inline function invocation instead of a
// registered node when non-nil.
type PushPath struct {
	Parent       PathPrefix
	WriteIndex   int
	ParentTaskID string
	Call         *Call
}

// Prefix returns (push, parent prefix, write index).
func (p PushPath) Prefix() PathPrefix {
	return PathPrefix{ChannelPush, p.Parent, p.WriteIndex}
}

func (PushPath) isTaskPath() {}

// Call is an inline function invocation dispatched through a push task
// instead of a registered node.
type Call struct {
	// Name labels the invocation; it takes the place of a node name in the
	// task's identity and namespace.
	Name string

	// Func is the body to run.
	Func Runnable

	// Input is the argument the body receives.
	Input any

	// Retry is the policy the driver should apply to the invocation.
	Retry *RetryPolicy
}

// comparePrefix orders two path prefixes element-wise. Within an element
// position, ints order before strings, which order before nested prefixes;
// matching kinds compare by value. A shorter prefix that matches orders
// first.
func comparePrefix(a, b PathPrefix) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := comparePrefixElem(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func comparePrefixElem(a, b any) int {
	ra, rb := prefixElemRank(a), prefixElemRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	case PathPrefix:
		return comparePrefix(av, b.(PathPrefix))
	}
	return 0
}

func prefixElemRank(v any) int {
	switch v.(type) {
	case int:
		return 0
	case string:
		return 1
	default:
		return 2
	}
}

// Task is the planning-mode view of a prepared task: identity only, no bound
// input or runnable.
type Task struct {
	ID   string
	Name string
	Path PathPrefix
}

// ExecutableTask is the execution-mode view: identity plus everything the
// driver needs to run the body and commit its writes.
type ExecutableTask struct {
	Task

	// Input is the value bound from the node's subscribed channels or the
	// Send payload.
	Input any

	// Proc is the body to run.
	Proc Runnable

	// Writes is the task's write arena. The body appends through the
	// injected StateWriter; write application reads it after the superstep.
	Writes *WriteBuffer

	// Config is the merged configuration the body runs under, including the
	// injected reader and writer under the well-known keys.
	Config Config

	// Triggers are the channels whose advance made the task runnable, or
	// the push marker for Send tasks.
	Triggers []string

	// Retry is the policy the driver should apply. The engine only carries
	// it.
	Retry *RetryPolicy

	// Writers are the process's side-effect hooks, run by the driver with
	// the body's return value to produce additional writes.
	Writers []Runnable
}

// WriteSet exposes the task to write application.
func (t *ExecutableTask) WriteSet() TaskWrites {
	return TaskWrites{Path: t.Path, Name: t.Name, Writes: t.Writes, Triggers: t.Triggers}
}

// TaskWrites is the uniform write-bearing shape write application folds. It
// also stands in for writes with no originating task, such as graph input or
// an external state update.
type TaskWrites struct {
	Path     PathPrefix
	Name     string
	Writes   *WriteBuffer
	Triggers []string
}

// WriteBuffer is an append-only arena owned by a single task for the length
// of a superstep. Appends may come from concurrent goroutines within that
// task; reads happen after the task finishes.
type WriteBuffer struct {
	mu      sync.Mutex
	entries []ChannelWrite
}

// NewWriteBuffer returns an empty write arena.
func NewWriteBuffer() *WriteBuffer { return &WriteBuffer{} }

// Append adds writes to the arena in order.
func (b *WriteBuffer) Append(writes ...ChannelWrite) {
	b.mu.Lock()
	b.entries = append(b.entries, writes...)
	b.mu.Unlock()
}

// All returns a snapshot of the arena in append order.
func (b *WriteBuffer) All() []ChannelWrite {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ChannelWrite, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of writes in the arena.
func (b *WriteBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// sortTaskWrites orders write sources by path prefix, the deterministic
// order write application folds them in.
func sortTaskWrites(sources []TaskWrites) []TaskWrites {
	sorted := make([]TaskWrites, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return comparePrefix(sorted[i].Path, sorted[j].Path) < 0
	})
	return sorted
}
