package pregel

import (
	"sort"

	"github.com/zoomy82/hailstorm-harness/log"
)

// ApplyWrites folds the writes of one superstep's tasks into the channels
// and the checkpoint. The checkpoint is mutated in place. Writes addressed
// to managed values are not applied; they come back keyed by managed name
// for the driver to hand to the value managers.
//
// The fold is deterministic: tasks are ordered by path prefix before any
// mutation, so permuting the input leaves the resulting checkpoint and
// channel states identical. Version bumps happen in two phases: channels
// drained by triggered reads advance first, seeded from the highest version
// before the fold, then channels that accumulated writes, seeded from the
// highest version after the drain phase. When at least one task was triggered,
// every untouched channel receives a single empty notification so time-
// scoped channels can expire, and the pending sends carried from the
// previous superstep are cleared.
func ApplyWrites(cp *Checkpoint, channels map[string]Channel, sources []TaskWrites, nextVersion NextVersion) map[string][]any {
	tasks := sortTaskWrites(sources)

	// A step with no triggered task only carries null-task writes, such as
	// graph input: channel values change but step bookkeeping does not.
	bumpStep := false
	for _, t := range tasks {
		if len(t.Triggers) > 0 {
			bumpStep = true
			break
		}
	}

	for _, t := range tasks {
		for _, name := range t.Triggers {
			if v, ok := cp.ChannelVersions[name]; ok {
				cp.seenFor(t.Name)[name] = v
			}
		}
	}

	maxVersion, _ := maxChannelVersion(cp.ChannelVersions)

	consumed := make(map[string]struct{})
	for _, t := range tasks {
		for _, name := range t.Triggers {
			if isReservedChannel(name) {
				continue
			}
			if _, ok := channels[name]; ok {
				consumed[name] = struct{}{}
			}
		}
	}
	for _, name := range sortedSet(consumed) {
		if channels[name].Consume() && nextVersion != nil {
			cp.ChannelVersions[name] = nextVersion(maxVersion, channels[name])
		}
	}

	if bumpStep && len(cp.PendingSends) > 0 {
		cp.PendingSends = cp.PendingSends[:0]
	}

	// Partition writes: control markers are handled elsewhere, ChannelTasks
	// feeds pending sends, known channels buffer for update, everything
	// else is a managed-value write returned to the caller.
	byChannel := make(map[string][]any)
	var channelOrder []string
	byManaged := make(map[string][]any)
	for _, t := range tasks {
		for _, w := range t.Writes.All() {
			switch {
			case isControlChannel(w.Channel):
			case w.Channel == ChannelTasks:
				send, ok := w.Value.(Send)
				if !ok {
					log.Warnf("ignoring invalid packet type %T in task writes", w.Value)
					continue
				}
				cp.PendingSends = append(cp.PendingSends, send)
			default:
				if _, ok := channels[w.Channel]; ok {
					if _, seen := byChannel[w.Channel]; !seen {
						channelOrder = append(channelOrder, w.Channel)
					}
					byChannel[w.Channel] = append(byChannel[w.Channel], w.Value)
				} else {
					byManaged[w.Channel] = append(byManaged[w.Channel], w.Value)
				}
			}
		}
	}

	maxVersion, _ = maxChannelVersion(cp.ChannelVersions)

	updated := make(map[string]struct{}, len(channelOrder))
	for _, name := range channelOrder {
		if channels[name].Update(byChannel[name]) && nextVersion != nil {
			cp.ChannelVersions[name] = nextVersion(maxVersion, channels[name])
		}
		updated[name] = struct{}{}
	}

	if bumpStep {
		for _, name := range sortedChannelNames(channels) {
			if _, ok := updated[name]; ok {
				continue
			}
			if channels[name].Update(nil) && nextVersion != nil {
				cp.ChannelVersions[name] = nextVersion(maxVersion, channels[name])
			}
		}
	}

	return byManaged
}

func sortedSet(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedChannelNames(channels map[string]Channel) []string {
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
