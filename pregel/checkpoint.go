package pregel

import (
	"github.com/google/uuid"
)

// Checkpoint is the immutable-by-convention record of where a run stands
// between supersteps. It is the authoritative reference for channel versions;
// the channels themselves are authoritative for values.
type Checkpoint struct {
	// ID identifies the checkpoint. It is a UUID in string form and serves
	// as the namespace from which every task id in the run is derived.
	ID string `json:"id"`

	// ChannelVersions records the version each channel last advanced to.
	// Channels never written are absent.
	ChannelVersions map[string]Version `json:"channel_versions"`

	// VersionsSeen records, per node, the version of each trigger channel
	// the node last observed. The ChannelInterrupt key holds the versions
	// at which the run last interrupted.
	VersionsSeen map[string]map[string]Version `json:"versions_seen"`

	// PendingSends carries Send packets produced through ChannelTasks in the
	// previous superstep. Legacy pathway; new graphs leave it empty.
	PendingSends []Send `json:"pending_sends"`
}

// Send directs the engine to enqueue a task for a specific node with an
// explicit payload, bypassing channel-based activation.
type Send struct {
	// Node names the process to run.
	Node string `json:"node"`

	// Arg is the input the task will receive.
	Arg any `json:"arg"`
}

// PendingWrite is a write emitted by a task in a superstep that has not yet
// been folded into the channels, attributed to the task that produced it.
type PendingWrite struct {
	TaskID  string `json:"task_id"`
	Channel string `json:"channel"`
	Value   any    `json:"value"`
}

// ChannelWrite is a single (channel, value) pair in a task's write buffer.
type ChannelWrite struct {
	Channel string `json:"channel"`
	Value   any    `json:"value"`
}

// NewCheckpoint returns an empty checkpoint with a fresh identity.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		ID:              uuid.NewString(),
		ChannelVersions: make(map[string]Version),
		VersionsSeen:    make(map[string]map[string]Version),
	}
}

// Copy returns a structural copy deep enough for local-read simulation: the
// version maps and pending sends are duplicated, so applying writes to the
// copy leaves the original untouched.
func (c *Checkpoint) Copy() *Checkpoint {
	dup := &Checkpoint{
		ID:              c.ID,
		ChannelVersions: make(map[string]Version, len(c.ChannelVersions)),
		VersionsSeen:    make(map[string]map[string]Version, len(c.VersionsSeen)),
		PendingSends:    make([]Send, len(c.PendingSends)),
	}
	for name, v := range c.ChannelVersions {
		dup.ChannelVersions[name] = v
	}
	for node, seen := range c.VersionsSeen {
		inner := make(map[string]Version, len(seen))
		for name, v := range seen {
			inner[name] = v
		}
		dup.VersionsSeen[node] = inner
	}
	copy(dup.PendingSends, c.PendingSends)
	return dup
}

// seenFor returns the versions-seen map for node, creating it if absent.
func (c *Checkpoint) seenFor(node string) map[string]Version {
	if c.VersionsSeen == nil {
		c.VersionsSeen = make(map[string]map[string]Version)
	}
	seen, ok := c.VersionsSeen[node]
	if !ok {
		seen = make(map[string]Version)
		c.VersionsSeen[node] = seen
	}
	return seen
}
