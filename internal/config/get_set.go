package config

import (
	"fmt"
	"path/filepath"
)

// KV is one CONFIG GET result pair.
type KV struct {
	Name  string
	Value string
}

// Get returns every registered knob whose name matches pattern (a glob
// pattern in the same dialect as filepath.Match, matching Redis's CONFIG
// GET semantics closely enough for this module's scope), in registration
// order.
func (c *Config) Get(pattern string) []KV {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []KV
	for _, name := range c.order {
		if ok, err := filepath.Match(pattern, name); err != nil || !ok {
			continue
		}
		out = append(out, KV{Name: name, Value: c.registry[name].Get()})
	}
	return out
}

// Set applies a single CONFIG SET, rejecting unknown knob names and
// immutable knobs (spec.md §6: "CONFIG SET on an immutable knob is
// rejected with an error naming the knob"). Unlike Load, Set is never
// allowed to touch an Immutable knob, matching the asymmetry between
// applying a config file at startup (Knob.Set is used directly there) and
// a live CONFIG SET against a running instance.
func (c *Config) Set(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	k, ok := c.registry[name]
	if !ok {
		return fmt.Errorf("config: unknown knob %q", name)
	}
	if k.Immutable {
		return fmt.Errorf("config: %q is immutable and cannot be changed with CONFIG SET", name)
	}
	return k.Set(value)
}
