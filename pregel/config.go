package pregel

// Config is the configuration a task runs under: caller tags and metadata
// plus the configurable map holding collaborators and injected capabilities
// under the well-known keys.
type Config struct {
	// RunName labels the execution for tracing; task configs carry the
	// task's node name.
	RunName string

	// Tags annotate the execution.
	Tags []string

	// Metadata is free-form annotation merged down from callers.
	Metadata map[string]any

	// Configurable carries keyed values, including every ConfigKey* entry
	// the engine injects.
	Configurable map[string]any

	// Callbacks is the opaque callback handle for this execution, produced
	// by the caller's CallbackManager.
	Callbacks any
}

// CallbackManager hands out child callback handles for nested executions.
// The engine treats both the manager and its children as opaque.
type CallbackManager interface {
	Child(name string) any
}

// ManagedValues maps managed-value names to zero-argument producers. Managed
// values feed node inputs without living in a channel, and writes addressed
// to them are returned from write application for external handling.
type ManagedValues map[string]func() any

// Get returns the configurable value under key, or nil.
func (c Config) Get(key string) any {
	if c.Configurable == nil {
		return nil
	}
	return c.Configurable[key]
}

// GetString returns the configurable value under key when it is a string.
func (c Config) GetString(key string) string {
	s, _ := c.Get(key).(string)
	return s
}

// HasTag reports whether the config carries tag.
func (c Config) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MergeConfigs layers patch over base. Tags concatenate, metadata and
// configurable merge key-wise with patch winning, scalar fields take the
// patch value when set.
func MergeConfigs(base, patch Config) Config {
	merged := Config{
		RunName:   base.RunName,
		Callbacks: base.Callbacks,
	}
	if patch.RunName != "" {
		merged.RunName = patch.RunName
	}
	if patch.Callbacks != nil {
		merged.Callbacks = patch.Callbacks
	}
	merged.Tags = append(append([]string(nil), base.Tags...), patch.Tags...)
	merged.Metadata = mergeMaps(base.Metadata, patch.Metadata)
	merged.Configurable = mergeMaps(base.Configurable, patch.Configurable)
	return merged
}

func mergeMaps(base, patch map[string]any) map[string]any {
	if base == nil && patch == nil {
		return nil
	}
	merged := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}
