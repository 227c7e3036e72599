package pregel

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/zoomy82/hailstorm-harness/log"

	"github.com/zoomy82/hailstorm-harness/pregel/emit"
)

// CheckpointSaver persists checkpoints and per-task writes between
// supersteps. Implemented by the backends in pregel/store.
type CheckpointSaver interface {
	// SaveCheckpoint persists the checkpoint together with a snapshot of
	// the channel values at the end of a superstep.
	SaveCheckpoint(ctx context.Context, runID string, cp *Checkpoint, values map[string]any, step int) error

	// SaveWrites persists one task's writes as partial progress within a
	// superstep.
	SaveWrites(ctx context.Context, runID string, taskID string, writes []ChannelWrite) error
}

// Loop is the superstep driver: it plans tasks, checks interrupt conditions,
// runs task bodies on a bounded worker pool, folds the writes back with
// ApplyWrites, and persists the checkpoint, until the graph goes quiescent
// or a limit is hit.
//
// The engine core stays single-threaded: only task bodies run concurrently,
// each owning its write arena, and write application happens on the driver
// goroutine after every body has finished.
type Loop struct {
	processes  map[string]*Node
	channels   map[string]Channel
	managed    ManagedValues
	checkpoint *Checkpoint

	runID          string
	pendingWrites  []PendingWrite
	managedWriters map[string]func(values []any)
	config         Config
	store          any
	manager        CallbackManager
	saver          CheckpointSaver
	emitter        emit.Emitter
	metrics        *PrometheusMetrics
	nextVersion    NextVersion
	maxSteps       int
	maxConcurrent  int
	interruptNodes []string

	step int
}

// NewLoop assembles a driver over a process registry and channel map.
// Defaults: a fresh checkpoint, integer versioning, 25 supersteps, 8
// concurrent task bodies, no persistence and no event emission.
func NewLoop(processes map[string]*Node, channels map[string]Channel, opts ...Option) (*Loop, error) {
	l := &Loop{
		processes:     processes,
		channels:      channels,
		managed:       ManagedValues{},
		checkpoint:    NewCheckpoint(),
		runID:         uuid.NewString(),
		emitter:       emit.NewNullEmitter(),
		nextVersion:   DefaultNextVersion,
		maxSteps:      25,
		maxConcurrent: 8,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	// Step bookkeeping is exposed as managed values so nodes can map input
	// keys to them without a channel backing.
	if _, ok := l.managed[ChannelStep]; !ok {
		l.managed[ChannelStep] = func() any { return l.step }
	}
	if _, ok := l.managed[ChannelIsLastStep]; !ok {
		l.managed[ChannelIsLastStep] = func() any { return l.step+1 >= l.maxSteps }
	}
	return l, nil
}

// Checkpoint returns the driver's live checkpoint.
func (l *Loop) Checkpoint() *Checkpoint { return l.checkpoint }

// Step returns the number of the next superstep.
func (l *Loop) Step() int { return l.step }

// Seed applies input writes before the first superstep. The writes are
// attributed to the input pseudo source, so channel values and versions
// advance and subscribing nodes become eligible, but no node's versions-seen
// records move.
func (l *Loop) Seed(ctx context.Context, writes ...ChannelWrite) error {
	buf := NewWriteBuffer()
	buf.Append(writes...)
	source := TaskWrites{
		Path:     PathPrefix{},
		Name:     ChannelInput,
		Writes:   buf,
		Triggers: []string{ChannelInput},
	}
	ApplyWrites(l.checkpoint, l.channels, []TaskWrites{source}, l.nextVersion)
	return l.save(ctx)
}

// Run executes supersteps until no tasks are produced, the superstep limit
// is reached (ErrMaxStepsExceeded), a task body fails (TaskError), or
// interrupt conditions select a task (*InterruptError, with the checkpoint
// persisted first so the run can resume).
func (l *Loop) Run(ctx context.Context) error {
	for ; l.step < l.maxSteps; l.step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		quiescent, err := l.tick(ctx)
		if err != nil {
			return err
		}
		if quiescent {
			return nil
		}
	}
	return ErrMaxStepsExceeded
}

// tick runs one superstep. It reports quiescence when planning produced no
// tasks.
func (l *Loop) tick(ctx context.Context) (bool, error) {
	started := time.Now()

	tasks, err := PrepareNextTasks(PlanParams{
		Checkpoint:    l.checkpoint,
		PendingWrites: l.pendingWrites,
		Processes:     l.processes,
		Channels:      l.channels,
		Managed:       l.managed,
		Config:        l.config,
		Step:          l.step,
		Store:         l.store,
		Checkpointer:  l.saver,
		Manager:       l.manager,
	})
	if err != nil {
		return false, err
	}
	if len(tasks) == 0 {
		return true, nil
	}

	ordered := orderTasks(tasks)
	l.emitStep("step_start", map[string]any{"tasks": len(ordered)})
	if l.metrics != nil {
		l.metrics.ObserveTasksPlanned(len(ordered))
	}

	if len(l.interruptNodes) > 0 {
		if selected := ShouldInterrupt(l.checkpoint, l.interruptNodes, ordered); len(selected) > 0 {
			l.recordInterrupt()
			if err := l.save(ctx); err != nil {
				return false, err
			}
			l.emitStep("interrupt", map[string]any{"nodes": taskNames(selected)})
			if l.metrics != nil {
				l.metrics.ObserveInterrupt()
			}
			return false, &InterruptError{Tasks: selected}
		}
	}

	if err := l.execute(ctx, ordered); err != nil {
		return false, err
	}

	sources := make([]TaskWrites, len(ordered))
	for i, t := range ordered {
		sources[i] = t.WriteSet()
	}
	managedWrites := ApplyWrites(l.checkpoint, l.channels, sources, l.nextVersion)
	for _, name := range sortedManagedNames(managedWrites) {
		apply, ok := l.managedWriters[name]
		if !ok {
			log.Warnf("dropping %d writes to unmanaged value %q", len(managedWrites[name]), name)
			continue
		}
		apply(managedWrites[name])
	}

	// Recovered writes belonged to this step; the fold above consumed them.
	l.pendingWrites = nil

	if err := l.save(ctx); err != nil {
		return false, err
	}
	l.emitStep("step_end", map[string]any{"duration_ms": time.Since(started).Milliseconds()})
	if l.metrics != nil {
		l.metrics.ObserveStep(time.Since(started))
	}
	return false, nil
}

// execute runs every task body on the worker pool and commits their writes.
func (l *Loop) execute(ctx context.Context, tasks []*ExecutableTask) error {
	pool, err := ants.NewPool(l.maxConcurrent)
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, task := range tasks {
		task := task
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := l.runTask(ctx, task); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
	}
	wg.Wait()
	return firstErr
}

func (l *Loop) runTask(ctx context.Context, task *ExecutableTask) error {
	l.emitTask(task, "task_start", nil)
	out, err := task.Proc.Invoke(ctx, task.Input, task.Config)
	if err != nil {
		l.emitTask(task, "task_error", map[string]any{"error": err.Error()})
		return &TaskError{Name: task.Name, Path: task.Path, Err: err}
	}

	if err := l.commitOutput(ctx, task, out); err != nil {
		return &TaskError{Name: task.Name, Path: task.Path, Err: err}
	}

	if l.saver != nil {
		if err := l.saver.SaveWrites(ctx, l.runID, task.ID, task.Writes.All()); err != nil {
			return &TaskError{Name: task.Name, Path: task.Path, Err: err}
		}
	}
	l.emitTask(task, "task_end", map[string]any{"writes": task.Writes.Len()})
	return nil
}

// commitOutput turns a task body's return value into channel writes. Writer
// hooks take precedence; otherwise a map return writes each key to the
// channel of that name, any other non-nil value is recorded as the task's
// return value, and a task that produced nothing records the no-writes
// marker so partial progress stays observable.
func (l *Loop) commitOutput(ctx context.Context, task *ExecutableTask, out any) error {
	writer := &StateWriter{buffer: task.Writes, processes: l.processes}

	if len(task.Writers) > 0 {
		for _, hook := range task.Writers {
			res, err := hook.Invoke(ctx, out, task.Config)
			if err != nil {
				return err
			}
			if writes, ok := res.([]ChannelWrite); ok {
				if err := writer.Write(writes...); err != nil {
					return err
				}
			}
		}
	} else if values, ok := out.(map[string]any); ok {
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := writer.Write(ChannelWrite{Channel: name, Value: values[name]}); err != nil {
				return err
			}
		}
	} else if out != nil {
		if err := writer.Write(ChannelWrite{Channel: ChannelReturn, Value: out}); err != nil {
			return err
		}
	}

	if task.Writes.Len() == 0 {
		task.Writes.Append(ChannelWrite{Channel: ChannelNoWrites, Value: nil})
	}
	return nil
}

// recordInterrupt notes the current channel versions under the interrupt
// key, so the next planning pass does not re-select the same tasks.
func (l *Loop) recordInterrupt() {
	seen := l.checkpoint.seenFor(ChannelInterrupt)
	for name, version := range l.checkpoint.ChannelVersions {
		seen[name] = version
	}
}

func (l *Loop) save(ctx context.Context) error {
	if l.saver == nil {
		return nil
	}
	values := make(map[string]any, len(l.channels))
	for name, ch := range l.channels {
		if val, err := ch.Get(); err == nil {
			values[name] = val
		}
	}
	return l.saver.SaveCheckpoint(ctx, l.runID, l.checkpoint, values, l.step)
}

func (l *Loop) emitStep(msg string, meta map[string]any) {
	l.emitter.Emit(emit.Event{RunID: l.runID, Step: l.step, Msg: msg, Meta: meta})
}

func (l *Loop) emitTask(task *ExecutableTask, msg string, meta map[string]any) {
	l.emitter.Emit(emit.Event{
		RunID:  l.runID,
		Step:   l.step,
		TaskID: task.ID,
		Node:   task.Name,
		Msg:    msg,
		Meta:   meta,
	})
}

// orderTasks flattens the planner's map into deterministic path order.
func orderTasks(tasks map[string]*ExecutableTask) []*ExecutableTask {
	ordered := make([]*ExecutableTask, 0, len(tasks))
	for _, t := range tasks {
		ordered = append(ordered, t)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return comparePrefix(ordered[i].Path, ordered[j].Path) < 0
	})
	return ordered
}

func taskNames(tasks []*ExecutableTask) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	return names
}

func sortedManagedNames(writes map[string][]any) []string {
	names := make([]string, 0, len(writes))
	for name := range writes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
