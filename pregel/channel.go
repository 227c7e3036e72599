package pregel

// Channel is the capability set the engine requires from a value container.
// The planner and write application hold only this interface; the concrete
// accumulation behavior (last-write, topic append, reducer, one-step value)
// stays behind it.
//
// Channels are stateful and updates are not idempotent. Within a superstep a
// channel is read by the planner and mutated only by write application, which
// runs single-threaded; implementations do not need internal locking.
//
// Update and Consume return true when the mutation must advance the
// channel's version in the checkpoint.
type Channel interface {
	// Update applies a batch of writes accumulated in one superstep. An
	// empty batch is the idle-step notification: most channels ignore it,
	// time-scoped channels use it to expire their value.
	Update(values []any) bool

	// Consume marks the channel as read by a triggered task. Channels that
	// drain on read clear their contents and return true.
	Consume() bool

	// Get returns the current value, or ErrEmptyChannel when the channel
	// has none.
	Get() (any, error)

	// IsAvailable reports whether Get would succeed.
	IsAvailable() bool

	// Copy returns an independent channel with the same contents, used to
	// simulate uncommitted writes during fresh local reads.
	Copy() Channel
}

// LastValue keeps the most recent write. When several tasks write it in one
// superstep, the write from the task latest in deterministic path order wins.
type LastValue struct {
	value any
	set   bool
}

// NewLastValue returns an empty last-write channel.
func NewLastValue() *LastValue { return &LastValue{} }

// Update stores the final value of the batch.
func (c *LastValue) Update(values []any) bool {
	if len(values) == 0 {
		return false
	}
	c.value = values[len(values)-1]
	c.set = true
	return true
}

// Consume is a no-op: the value persists across supersteps.
func (c *LastValue) Consume() bool { return false }

// Get returns the stored value.
func (c *LastValue) Get() (any, error) {
	if !c.set {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

// IsAvailable reports whether a value has been written.
func (c *LastValue) IsAvailable() bool { return c.set }

// Copy returns an independent last-write channel with the same value.
func (c *LastValue) Copy() Channel {
	dup := *c
	return &dup
}

// Topic accumulates every value written to it, in write order. With
// Accumulate false the backlog drains when a triggered task consumes it;
// with Accumulate true it grows across supersteps.
type Topic struct {
	// Accumulate keeps values across supersteps instead of draining them
	// when consumed.
	Accumulate bool

	values []any
}

// NewTopic returns an empty topic channel. accumulate keeps values across
// supersteps instead of draining on consume.
func NewTopic(accumulate bool) *Topic { return &Topic{Accumulate: accumulate} }

// Update appends the batch to the backlog.
func (c *Topic) Update(values []any) bool {
	if len(values) == 0 {
		return false
	}
	c.values = append(c.values, values...)
	return true
}

// Consume drains the backlog unless the topic accumulates.
func (c *Topic) Consume() bool {
	if c.Accumulate || len(c.values) == 0 {
		return false
	}
	c.values = nil
	return true
}

// Get returns the backlog. An empty backlog is a valid read: subscribers
// distinguish emptiness with IsAvailable.
func (c *Topic) Get() (any, error) {
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out, nil
}

// IsAvailable reports whether the backlog is non-empty.
func (c *Topic) IsAvailable() bool { return len(c.values) > 0 }

// Copy returns an independent topic with the same backlog.
func (c *Topic) Copy() Channel {
	dup := &Topic{Accumulate: c.Accumulate, values: make([]any, len(c.values))}
	copy(dup.values, c.values)
	return dup
}

// Ephemeral holds a value for exactly one superstep. The idle-step
// notification at the end of the next bumped step clears it, advancing the
// version so subscribers do not retrigger on a stale value.
type Ephemeral struct {
	value any
	set   bool
}

// NewEphemeral returns an empty one-step channel.
func NewEphemeral() *Ephemeral { return &Ephemeral{} }

// Update stores the final value of the batch; the empty notification batch
// clears any held value instead.
func (c *Ephemeral) Update(values []any) bool {
	if len(values) == 0 {
		if !c.set {
			return false
		}
		c.value = nil
		c.set = false
		return true
	}
	c.value = values[len(values)-1]
	c.set = true
	return true
}

// Consume is a no-op: expiry happens through the idle notification.
func (c *Ephemeral) Consume() bool { return false }

// Get returns the held value.
func (c *Ephemeral) Get() (any, error) {
	if !c.set {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

// IsAvailable reports whether a value is held.
func (c *Ephemeral) IsAvailable() bool { return c.set }

// Copy returns an independent one-step channel with the same value.
func (c *Ephemeral) Copy() Channel {
	dup := *c
	return &dup
}

// BinaryOperator folds every write into an accumulator with a caller-supplied
// operator, such as integer addition or list union.
type BinaryOperator struct {
	op    func(current, value any) any
	value any
	set   bool
}

// NewBinaryOperator returns an accumulator channel folding writes with op.
func NewBinaryOperator(op func(current, value any) any) *BinaryOperator {
	return &BinaryOperator{op: op}
}

// Update folds the batch into the accumulator in write order. The first
// write seeds the accumulator.
func (c *BinaryOperator) Update(values []any) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !c.set {
			c.value = v
			c.set = true
			continue
		}
		c.value = c.op(c.value, v)
	}
	return true
}

// Consume is a no-op: the accumulator persists across supersteps.
func (c *BinaryOperator) Consume() bool { return false }

// Get returns the accumulator.
func (c *BinaryOperator) Get() (any, error) {
	if !c.set {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

// IsAvailable reports whether the accumulator has been seeded.
func (c *BinaryOperator) IsAvailable() bool { return c.set }

// Copy returns an independent accumulator with the same value and operator.
func (c *BinaryOperator) Copy() Channel {
	dup := *c
	return &dup
}
