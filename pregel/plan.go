package pregel

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/zoomy82/hailstorm-harness/log"
)

// PlanParams carries everything task preparation reads. The checkpoint,
// channels and processes are read-only during planning; mutation happens
// later in ApplyWrites.
type PlanParams struct {
	// Checkpoint is the state record the superstep starts from.
	Checkpoint *Checkpoint

	// PendingWrites are writes from prior partial progress in this
	// superstep, attributed to task ids.
	PendingWrites []PendingWrite

	// Processes is the node registry.
	Processes map[string]*Node

	// Channels is the live channel map.
	Channels map[string]Channel

	// Managed maps managed-value names to their producers.
	Managed ManagedValues

	// Config is the run configuration tasks inherit from.
	Config Config

	// Step is the superstep number.
	Step int

	// Store is the opaque store collaborator handed to tasks under
	// ConfigKeyStore.
	Store any

	// Checkpointer is the opaque checkpoint saver handed to tasks under
	// ConfigKeyCheckpointer.
	Checkpointer any

	// Manager hands out callback handles for task executions.
	Manager CallbackManager
}

// PrepareNextTasks computes the tasks of the next superstep in execution
// mode: the union of PUSH tasks (explicit sends, both the legacy pending-
// sends pathway and sends surfacing through pending writes) and PULL tasks
// (nodes whose trigger channels advanced past what the node has seen). The
// result is keyed by task id; identical preparation inputs yield identical
// ids.
func PrepareNextTasks(p PlanParams) (map[string]*ExecutableTask, error) {
	tasks, err := prepareTasks(p, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*ExecutableTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID, nil
}

// PlanNextTasks computes the same task set as PrepareNextTasks in planning
// mode: identity only, with no input binding, injected capabilities, or
// mapper application.
func PlanNextTasks(p PlanParams) (map[string]Task, error) {
	tasks, err := prepareTasks(p, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t.Task
	}
	return byID, nil
}

func prepareTasks(p PlanParams, forExecution bool) ([]*ExecutableTask, error) {
	namespace, err := uuid.Parse(p.Checkpoint.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint id %q: %w", p.Checkpoint.ID, err)
	}

	var tasks []*ExecutableTask

	// Pending sends carried from the previous superstep. Legacy pathway.
	for idx := range p.Checkpoint.PendingSends {
		t, err := prepareTask(PushLegacyPath{Index: idx}, "", namespace, p, forExecution)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tasks = append(tasks, t)
		}
	}

	// Nodes whose trigger channels advanced.
	for _, name := range sortedNodeNames(p.Processes) {
		t, err := prepareTask(PullPath{Node: name}, "", namespace, p, forExecution)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tasks = append(tasks, t)
		}
	}

	// Sends surfacing through this superstep's pending writes.
	hasPush := false
	for _, w := range p.PendingWrites {
		if w.Channel == ChannelPush {
			hasPush = true
			break
		}
	}
	if !hasPush {
		return tasks, nil
	}

	// Group write channels by originating task id, preserving first-seen
	// order. The group keeps every channel the task wrote so that a push
	// write's index within the task's full write list stays stable.
	groups := make(map[string][]string)
	var groupOrder []string
	for _, w := range p.PendingWrites {
		if _, ok := groups[w.TaskID]; !ok {
			groupOrder = append(groupOrder, w.TaskID)
		}
		groups[w.TaskID] = append(groups[w.TaskID], w.Channel)
	}

	// Walk the task list in order, emitting push tasks for each task's push
	// writes. Tasks appended here are visible to later iterations, so a
	// push task that itself pushed is expanded within the same pass.
	for tidx := 0; tidx < len(tasks); tidx++ {
		parent := tasks[tidx]
		writes, ok := groups[parent.ID]
		if !ok {
			continue
		}
		delete(groups, parent.ID)
		for idx, ch := range writes {
			if ch != ChannelPush {
				continue
			}
			t, err := prepareTask(PushPath{
				Parent:       parent.Path,
				WriteIndex:   idx,
				ParentTaskID: parent.ID,
			}, "", namespace, p, forExecution)
			if err != nil {
				return nil, err
			}
			if t != nil {
				tasks = append(tasks, t)
			}
		}
	}

	// Remaining groups have no parent task in this superstep, such as
	// writes injected by an external state update. They run with an empty
	// parent path under the supplied task id.
	byID := make(map[string]*ExecutableTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, tid := range groupOrder {
		writes, ok := groups[tid]
		if !ok {
			continue
		}
		parentPath := PathPrefix{}
		for idx, ch := range writes {
			if ch != ChannelPush {
				continue
			}
			t, err := prepareTask(PushPath{
				Parent:       parentPath,
				WriteIndex:   idx,
				ParentTaskID: tid,
			}, "", namespace, p, forExecution)
			if err != nil {
				return nil, err
			}
			if t != nil && byID[t.ID] == nil {
				byID[t.ID] = t
				tasks = append(tasks, t)
			}
		}
	}

	return tasks, nil
}

// PrepareTask prepares the single task identified by path. A nil task with a
// nil error means the path resolves to nothing runnable: an ineligible node,
// an out-of-range send index, or an invalid packet. checksum, when non-empty,
// is the task id recorded by a previous run of the same superstep; a
// recomputed id that differs fails with ErrTaskIDMismatch.
func PrepareTask(path TaskPath, checksum string, p PlanParams, forExecution bool) (*ExecutableTask, error) {
	namespace, err := uuid.Parse(p.Checkpoint.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint id %q: %w", p.Checkpoint.ID, err)
	}
	return prepareTask(path, checksum, namespace, p, forExecution)
}

func prepareTask(path TaskPath, checksum string, namespace uuid.UUID, p PlanParams, forExecution bool) (*ExecutableTask, error) {
	parentNS := p.Config.GetString(ConfigKeyCheckpointNS)

	switch tp := path.(type) {
	case PushPath:
		if tp.Call != nil {
			return prepareCallTask(tp, checksum, namespace, parentNS, p, forExecution)
		}
		return preparePushTask(tp, checksum, namespace, parentNS, p, forExecution)
	case PushLegacyPath:
		return prepareLegacyPushTask(tp, checksum, namespace, parentNS, p, forExecution)
	case PullPath:
		return preparePullTask(tp, checksum, namespace, parentNS, p, forExecution)
	default:
		log.Warnf("ignoring invalid task path %v", path)
		return nil, nil
	}
}

func prepareCallTask(tp PushPath, checksum string, namespace uuid.UUID, parentNS string, p PlanParams, forExecution bool) (*ExecutableTask, error) {
	call := tp.Call
	if call.Name == "" {
		return nil, fmt.Errorf("call functions must be named")
	}
	triggers := []string{ChannelPush}
	ns := checkpointNamespace(parentNS, call.Name)
	id := taskID(namespace, ns, strconv.Itoa(p.Step), call.Name, ChannelPush,
		tupleString(tp.Parent), strconv.Itoa(tp.WriteIndex))
	if err := verifyChecksum(id, checksum); err != nil {
		return nil, err
	}
	task := &ExecutableTask{Task: Task{ID: id, Name: call.Name, Path: tp.Prefix()}}
	if !forExecution {
		return task, nil
	}
	task.Input = call.Input
	task.Proc = call.Func
	task.Retry = call.Retry
	task.Triggers = triggers
	bindTaskConfig(task, ns, parentNS, nil, nil, p)
	return task, nil
}

func prepareLegacyPushTask(tp PushLegacyPath, checksum string, namespace uuid.UUID, parentNS string, p PlanParams, forExecution bool) (*ExecutableTask, error) {
	if tp.Index >= len(p.Checkpoint.PendingSends) {
		return nil, nil
	}
	packet := p.Checkpoint.PendingSends[tp.Index]
	proc, ok := p.Processes[packet.Node]
	if !ok {
		log.Warnf("ignoring unknown node name %q in pending sends", packet.Node)
		return nil, nil
	}
	triggers := []string{ChannelPush}
	ns := checkpointNamespace(parentNS, packet.Node)
	id := taskID(namespace, ns, strconv.Itoa(p.Step), packet.Node, ChannelPush,
		strconv.Itoa(tp.Index))
	if err := verifyChecksum(id, checksum); err != nil {
		return nil, err
	}
	task := &ExecutableTask{Task: Task{ID: id, Name: packet.Node, Path: tp.Prefix()}}
	if !forExecution {
		return task, nil
	}
	if proc.Body == nil {
		return nil, nil
	}
	task.Input = packet.Arg
	task.Proc = proc.Body
	task.Retry = proc.Retry
	task.Triggers = triggers
	task.Writers = proc.Writers
	bindTaskConfig(task, ns, parentNS, proc.Tags, proc.Metadata, p)
	return task, nil
}

func preparePushTask(tp PushPath, checksum string, namespace uuid.UUID, parentNS string, p PlanParams, forExecution bool) (*ExecutableTask, error) {
	var parentWrites []PendingWrite
	for _, w := range p.PendingWrites {
		if w.TaskID == tp.ParentTaskID {
			parentWrites = append(parentWrites, w)
		}
	}
	if tp.WriteIndex >= len(parentWrites) {
		log.Warnf("ignoring invalid write index %d in pending writes", tp.WriteIndex)
		return nil, nil
	}
	value := parentWrites[tp.WriteIndex].Value
	if value == nil {
		return nil, nil
	}
	packet, ok := value.(Send)
	if !ok {
		log.Warnf("ignoring invalid packet type %T in pending writes", value)
		return nil, nil
	}
	proc, ok := p.Processes[packet.Node]
	if !ok {
		log.Warnf("ignoring unknown node name %q in pending writes", packet.Node)
		return nil, nil
	}
	triggers := []string{ChannelPush}
	ns := checkpointNamespace(parentNS, packet.Node)
	id := taskID(namespace, ns, strconv.Itoa(p.Step), packet.Node, ChannelPush,
		tupleString(tp.Parent), strconv.Itoa(tp.WriteIndex))
	if err := verifyChecksum(id, checksum); err != nil {
		return nil, err
	}
	task := &ExecutableTask{Task: Task{ID: id, Name: packet.Node, Path: tp.Prefix()}}
	if !forExecution {
		return task, nil
	}
	if proc.Body == nil {
		return nil, nil
	}
	task.Input = packet.Arg
	task.Proc = proc.Body
	task.Retry = proc.Retry
	task.Triggers = triggers
	task.Writers = proc.Writers
	bindTaskConfig(task, ns, parentNS, proc.Tags, proc.Metadata, p)
	return task, nil
}

func preparePullTask(tp PullPath, checksum string, namespace uuid.UUID, parentNS string, p PlanParams, forExecution bool) (*ExecutableTask, error) {
	proc, ok := p.Processes[tp.Node]
	if !ok {
		return nil, nil
	}
	// With no channel versioned yet there is nothing to compare against, so
	// no node is runnable.
	if len(p.Checkpoint.ChannelVersions) == 0 {
		return nil, nil
	}
	seen := p.Checkpoint.VersionsSeen[tp.Node]
	var triggered []string
	for _, name := range proc.Triggers {
		if _, err := readChannel(p.Channels, name); err != nil {
			continue
		}
		if p.Checkpoint.ChannelVersions[name] > seen[name] {
			triggered = append(triggered, name)
		}
	}
	if len(triggered) == 0 {
		return nil, nil
	}
	sort.Strings(triggered)

	input, ok := procInput(proc, p.Managed, p.Channels, forExecution)
	if !ok {
		return nil, nil
	}

	ns := checkpointNamespace(parentNS, tp.Node)
	parts := append([]string{ns, strconv.Itoa(p.Step), tp.Node, ChannelPull}, triggered...)
	id := taskID(namespace, parts...)
	if err := verifyChecksum(id, checksum); err != nil {
		return nil, err
	}
	task := &ExecutableTask{Task: Task{ID: id, Name: tp.Node, Path: tp.Prefix()}}
	if !forExecution {
		return task, nil
	}
	if proc.Body == nil {
		return nil, nil
	}
	task.Input = input
	task.Proc = proc.Body
	task.Retry = proc.Retry
	task.Triggers = triggered
	task.Writers = proc.Writers
	bindTaskConfig(task, ns, parentNS, proc.Tags, proc.Metadata, p)
	return task, nil
}

// procInput binds a PULL task's input from the process's subscribed
// channels. ok is false when the binding rules suppress the task.
func procInput(proc *Node, managed ManagedValues, channels map[string]Channel, forExecution bool) (any, bool) {
	var input any
	switch {
	case proc.InputMapping != nil:
		values := make(map[string]any, len(proc.InputMapping))
		keys := make([]string, 0, len(proc.InputMapping))
		for k := range proc.InputMapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			name := proc.InputMapping[key]
			switch {
			case containsString(proc.Triggers, name):
				val, err := readChannel(channels, name)
				if err != nil {
					return nil, false
				}
				values[key] = val
			case channels[name] != nil:
				if val, err := readChannel(channels, name); err == nil {
					values[key] = val
				}
			default:
				if produce, ok := managed[key]; ok {
					values[key] = produce()
				}
			}
		}
		input = values
	case len(proc.InputChannels) > 0:
		found := false
		for _, name := range proc.InputChannels {
			if val, err := readChannel(channels, name); err == nil {
				input = val
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	default:
		return nil, false
	}

	if forExecution && proc.Mapper != nil {
		input = proc.Mapper(input)
	}
	return input, true
}

// bindTaskConfig merges the run configuration with the task's identity and
// injects the reader, writer and collaborator handles under the well-known
// keys.
func bindTaskConfig(task *ExecutableTask, taskNS, parentNS string, tags []string, metadata map[string]any, p PlanParams) {
	task.Writes = NewWriteBuffer()
	taskCheckpointNS := taskNS + NSEnd + task.ID

	source := TaskWrites{Path: task.Path, Name: task.Name, Writes: task.Writes, Triggers: task.Triggers}
	reader := &StateReader{
		checkpoint: p.Checkpoint,
		channels:   p.Channels,
		managed:    p.Managed,
		task:       source,
	}
	writer := &StateWriter{buffer: task.Writes, processes: p.Processes}

	meta := map[string]any{
		"pregel_step":          p.Step,
		"pregel_node":          task.Name,
		"pregel_triggers":      task.Triggers,
		"pregel_path":          task.Path,
		"pregel_checkpoint_ns": taskCheckpointNS,
	}
	for k, v := range metadata {
		meta[k] = v
	}

	store := p.Store
	if store == nil {
		store = p.Config.Get(ConfigKeyStore)
	}
	checkpointer := p.Checkpointer
	if checkpointer == nil {
		checkpointer = p.Config.Get(ConfigKeyCheckpointer)
	}

	checkpointMap := map[string]string{parentNS: p.Checkpoint.ID}
	if inherited, ok := p.Config.Get(ConfigKeyCheckpointMap).(map[string]string); ok {
		for k, v := range inherited {
			checkpointMap[k] = v
		}
		checkpointMap[parentNS] = p.Checkpoint.ID
	}

	var resumed []PendingWrite
	for _, w := range p.PendingWrites {
		if w.TaskID == NullTaskID || w.TaskID == task.ID {
			resumed = append(resumed, w)
		}
	}
	if inherited, ok := p.Config.Get(ConfigKeyWrites).([]PendingWrite); ok {
		for _, w := range inherited {
			if w.TaskID == NullTaskID || w.TaskID == task.ID {
				resumed = append(resumed, w)
			}
		}
	}

	patch := Config{
		RunName:  task.Name,
		Tags:     tags,
		Metadata: meta,
		Configurable: map[string]any{
			ConfigKeyTaskID:        task.ID,
			ConfigKeySend:          writer,
			ConfigKeyRead:          reader,
			ConfigKeyStore:         store,
			ConfigKeyCheckpointer:  checkpointer,
			ConfigKeyCheckpointMap: checkpointMap,
			ConfigKeyCheckpointID:  nil,
			ConfigKeyCheckpointNS:  taskCheckpointNS,
			ConfigKeyWrites:        resumed,
			ConfigKeyScratchpad:    map[string]any{},
		},
	}
	if p.Manager != nil {
		patch.Callbacks = p.Manager.Child(fmt.Sprintf("graph:step:%d", p.Step))
	}
	task.Config = MergeConfigs(p.Config, patch)
}

func verifyChecksum(id, checksum string) error {
	if checksum != "" && id != checksum {
		return fmt.Errorf("%w: %s != %s", ErrTaskIDMismatch, id, checksum)
	}
	return nil
}

func sortedNodeNames(processes map[string]*Node) []string {
	names := make([]string, 0, len(processes))
	for name := range processes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
