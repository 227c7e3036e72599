// Package pregel implements the step engine for bulk-synchronous-parallel
// execution over a directed graph of named processes that communicate through
// versioned channels.
//
// Each superstep follows the same transformation: PrepareNextTasks computes
// the set of runnable tasks from the checkpoint, the channel contents and any
// pending writes; the driver executes task bodies and collects their writes;
// ApplyWrites folds those writes back into the channels and the checkpoint
// with deterministic version bumps. ShouldInterrupt can halt the cycle before
// execution when configured nodes become runnable.
package pregel

// Virtual channel names. These never hold values in the channel map; they are
// routing markers inside task writes that the engine consumes itself.
const (
	// ChannelTasks routes a Send into the checkpoint's pending sends, to be
	// turned into a PUSH task in the next superstep. Legacy pathway; new
	// graphs produce ChannelPush writes instead.
	ChannelTasks = "__pregel_tasks"

	// ChannelPush marks a Send that becomes a PUSH task within the current
	// superstep.
	ChannelPush = "__pregel_push"

	// ChannelPull is the trigger kind recorded for node-activation tasks.
	ChannelPull = "__pregel_pull"

	// ChannelInterrupt carries interrupt values between the engine and the
	// outer driver.
	ChannelInterrupt = "__interrupt__"

	// ChannelResume carries resume values after an interrupt.
	ChannelResume = "__resume__"

	// ChannelReturn carries a call-style task's return value.
	ChannelReturn = "__return__"

	// ChannelError carries a failed task's error value.
	ChannelError = "__error__"

	// ChannelNoWrites is written by tasks that produced no writes, so that
	// partial progress is still recorded.
	ChannelNoWrites = "__no_writes__"

	// ChannelInput is the pseudo source named as the author of seed writes
	// applied before the first superstep.
	ChannelInput = "__input__"
)

// Reserved channel names that hold engine-maintained step state. They are
// excluded from trigger consumption so their versions advance only through
// the idle-step notification pass.
const (
	// ChannelIsLastStep is maintained by the driver and flips when the next
	// superstep would exceed the step limit.
	ChannelIsLastStep = "__is_last_step__"

	// ChannelStep is maintained by the driver and holds the current step
	// number.
	ChannelStep = "__step__"
)

// NullTaskID attributes pending writes to no task in particular, such as
// writes injected by a state update between supersteps. Every task's write
// filter admits entries carrying it.
const NullTaskID = "00000000-0000-0000-0000-000000000000"

// AllNodes is the wildcard node selector. An interrupt-node list containing
// only this value selects every task that does not carry TagHidden.
const AllNodes = "*"

// TagHidden excludes a process from wildcard interrupt selection.
const TagHidden = "internal:hidden"

// Namespace separators for checkpoint namespaces. NSSep joins a parent
// namespace with a node name; NSEnd joins a task's namespace with its id to
// form the namespace its own children checkpoint under.
const (
	NSSep = "|"
	NSEnd = ":"
)

// Well-known configurable keys. Values under these keys in a task's Config
// are how the engine hands collaborators and injected capabilities to the
// task body.
const (
	// ConfigKeyRead holds the *StateReader injected into executable tasks.
	ConfigKeyRead = "__pregel_read"

	// ConfigKeySend holds the *StateWriter injected into executable tasks.
	ConfigKeySend = "__pregel_send"

	// ConfigKeyStore holds the opaque store collaborator.
	ConfigKeyStore = "__pregel_store"

	// ConfigKeyCheckpointer holds the opaque checkpoint saver collaborator.
	ConfigKeyCheckpointer = "__pregel_checkpointer"

	// ConfigKeyCheckpointMap maps checkpoint namespaces to the checkpoint id
	// active in each, accumulated as tasks nest.
	ConfigKeyCheckpointMap = "checkpoint_map"

	// ConfigKeyCheckpointID names the checkpoint a nested run resumes from.
	ConfigKeyCheckpointID = "checkpoint_id"

	// ConfigKeyCheckpointNS names the checkpoint namespace a task runs under.
	ConfigKeyCheckpointNS = "checkpoint_ns"

	// ConfigKeyTaskID holds the executing task's id.
	ConfigKeyTaskID = "__pregel_task_id"

	// ConfigKeyWrites holds the successful writes already recorded for this
	// task in a previous partial run.
	ConfigKeyWrites = "__pregel_writes"

	// ConfigKeyScratchpad holds a per-task mutable scratch map.
	ConfigKeyScratchpad = "__pregel_scratchpad"
)

// isReservedChannel reports whether name is engine step state that trigger
// consumption must skip.
func isReservedChannel(name string) bool {
	return name == ChannelIsLastStep || name == ChannelStep
}

// isControlChannel reports whether a write to name is control flow handled
// outside write application.
func isControlChannel(name string) bool {
	switch name {
	case ChannelNoWrites, ChannelPush, ChannelResume, ChannelInterrupt, ChannelReturn, ChannelError:
		return true
	}
	return false
}
