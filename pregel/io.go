package pregel

import "fmt"

// readChannel returns the current value of the named channel. A name absent
// from the channel map reads as empty.
func readChannel(channels map[string]Channel, name string) (any, error) {
	ch, ok := channels[name]
	if !ok {
		return nil, ErrEmptyChannel
	}
	return ch.Get()
}

// readChannels reads every selected channel, leaving out the ones that are
// empty.
func readChannels(channels map[string]Channel, selected []string) map[string]any {
	values := make(map[string]any, len(selected))
	for _, name := range selected {
		val, err := readChannel(channels, name)
		if err != nil {
			continue
		}
		values[name] = val
	}
	return values
}

// StateReader is injected into each executable task under ConfigKeyRead. It
// reads a consistent view of graph state, optionally folding in the task's
// own uncommitted writes so conditional logic inside the task sees the state
// the task is about to produce.
type StateReader struct {
	checkpoint *Checkpoint
	channels   map[string]Channel
	managed    ManagedValues
	task       TaskWrites
}

// Read returns the values of the selected channels. Names registered as
// managed values are produced by their managers instead. With fresh true and
// the task's own writes touching any selected channel, the touched channels
// are read from a local simulation that has the task's writes applied;
// untouched channels read directly. Empty channels are left out.
func (r *StateReader) Read(selected []string, fresh bool) map[string]any {
	managedKeys := make([]string, 0, len(selected))
	channelKeys := make([]string, 0, len(selected))
	for _, name := range selected {
		if _, ok := r.managed[name]; ok {
			managedKeys = append(managedKeys, name)
		} else {
			channelKeys = append(channelKeys, name)
		}
	}

	values := r.readFresh(channelKeys, fresh)
	for _, k := range managedKeys {
		values[k] = r.managed[k]()
	}
	return values
}

// ReadOne returns the value of a single channel, applying the same fresh
// semantics as Read. An empty channel reads as nil.
func (r *StateReader) ReadOne(name string, fresh bool) any {
	if _, ok := r.managed[name]; ok {
		return r.managed[name]()
	}
	return r.readFresh([]string{name}, fresh)[name]
}

func (r *StateReader) readFresh(selected []string, fresh bool) map[string]any {
	updated := r.updatedChannels(selected)
	if !fresh || len(updated) == 0 {
		return readChannels(r.channels, selected)
	}

	// Simulate this task's writes on copies of the touched channels only.
	local := make(map[string]Channel, len(updated))
	for name := range updated {
		if ch, ok := r.channels[name]; ok {
			local[name] = ch.Copy()
		}
	}
	ApplyWrites(r.checkpoint.Copy(), local, []TaskWrites{r.task}, nil)

	merged := make(map[string]Channel, len(r.channels))
	for name, ch := range r.channels {
		merged[name] = ch
	}
	for name, ch := range local {
		merged[name] = ch
	}
	return readChannels(merged, selected)
}

func (r *StateReader) updatedChannels(selected []string) map[string]struct{} {
	want := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		want[name] = struct{}{}
	}
	updated := make(map[string]struct{})
	for _, w := range r.task.Writes.All() {
		if _, ok := want[w.Channel]; ok {
			updated[w.Channel] = struct{}{}
		}
	}
	return updated
}

// StateWriter is injected into each executable task under ConfigKeySend. It
// validates writes and commits them to the task's write arena.
type StateWriter struct {
	buffer    *WriteBuffer
	processes map[string]*Node
}

// Write validates the batch and appends it to the task's arena. A non-nil
// push or tasks write must carry a Send addressed to a registered node;
// anything else fails with ErrInvalidUpdate and nothing is committed. Nil
// push and tasks values pass unchecked.
func (w *StateWriter) Write(writes ...ChannelWrite) error {
	for _, entry := range writes {
		if entry.Channel != ChannelPush && entry.Channel != ChannelTasks {
			continue
		}
		if entry.Value == nil {
			continue
		}
		send, ok := entry.Value.(Send)
		if !ok {
			return fmt.Errorf("%w: expected Send, got %T", ErrInvalidUpdate, entry.Value)
		}
		if _, ok := w.processes[send.Node]; !ok {
			return fmt.Errorf("%w: unknown node %q in packet", ErrInvalidUpdate, send.Node)
		}
	}
	w.buffer.Append(writes...)
	return nil
}
