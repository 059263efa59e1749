// Package config implements spec.md §6/§9's configuration surface: a
// data-driven table of typed knobs with per-knob validators and update
// hooks (DESIGN NOTES: "source uses a macro-generated table of typed
// knobs... prefer a data-driven table... and a small interpreter over it").
// Grounded on original_source/src/config.c's createBoolConfig/
// createIntConfig/createEnumConfig family, re-expressed as a slice of Knob
// closures over Config's fields instead of C macros generating
// standardConfig{} literals.
package config

import "fmt"

// Kind is the knob's value type, mirroring config.c's
// boolConfigData/numericConfigData/stringConfigData/enumConfigData split.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindString
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Knob is one entry of the data-driven table: name, kind, a closure pair
// bound to the mutable field it fronts (in place of config.c's raw
// `config_addr` pointer), a rendered default, and optional validator/update
// hook. Immutable knobs reject CONFIG SET per spec.md §6.
type Knob struct {
	Name       string
	Kind       Kind
	Immutable  bool
	Default    string
	EnumValues []string // valid values when Kind == KindEnum

	get func() string
	set func(raw string) error // parses, validates, stores, and runs the update hook

	// Validator/UpdateHook are exposed for documentation/introspection;
	// the constructors below fill in Validator but leave UpdateHook nil.
	// The actual enforcement (and the hook call) happens inside set,
	// built by those constructors.
	Validator  func(raw string) error
	UpdateHook func(old, new string) error
}

// Get renders the knob's current value as its config-file string form.
func (k *Knob) Get() string { return k.get() }

// Set parses raw, validates it, and applies it; immutability is enforced
// by the caller (Config.Set) so Knob.Set alone is also usable by the
// loader, which must be able to set immutable knobs exactly once at
// startup.
func (k *Knob) Set(raw string) error { return k.set(raw) }

func boolKnob(name string, immutable bool, slot *bool, def bool, validator func(bool) error, hook func(old, new bool) error) *Knob {
	k := &Knob{Name: name, Kind: KindBool, Immutable: immutable, Default: boolString(def)}
	k.get = func() string { return boolString(*slot) }
	k.set = func(raw string) error {
		v, err := parseBool(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		if validator != nil {
			if err := validator(v); err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
		}
		old := *slot
		*slot = v
		if hook != nil {
			if err := hook(old, v); err != nil {
				*slot = old
				return fmt.Errorf("config: %s: update hook: %w", name, err)
			}
		}
		return nil
	}
	k.Validator = func(raw string) error { _, err := parseBool(raw); return err }
	return k
}

func intKnob(name string, immutable bool, slot *int64, def int64, lower, upper int64, hook func(old, new int64) error) *Knob {
	k := &Knob{Name: name, Kind: KindInt, Immutable: immutable, Default: fmt.Sprintf("%d", def)}
	k.get = func() string { return fmt.Sprintf("%d", *slot) }
	k.set = func(raw string) error {
		v, err := parseInt(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		if v < lower || v > upper {
			return fmt.Errorf("config: %s: value %d out of range [%d, %d]", name, v, lower, upper)
		}
		old := *slot
		*slot = v
		if hook != nil {
			if err := hook(old, v); err != nil {
				*slot = old
				return fmt.Errorf("config: %s: update hook: %w", name, err)
			}
		}
		return nil
	}
	k.Validator = func(raw string) error {
		v, err := parseInt(raw)
		if err != nil {
			return err
		}
		if v < lower || v > upper {
			return fmt.Errorf("value %d out of range [%d, %d]", v, lower, upper)
		}
		return nil
	}
	return k
}

func stringKnob(name string, immutable bool, slot *string, def string, validator func(string) error, hook func(old, new string) error) *Knob {
	k := &Knob{Name: name, Kind: KindString, Immutable: immutable, Default: def}
	k.get = func() string { return *slot }
	k.set = func(raw string) error {
		if validator != nil {
			if err := validator(raw); err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
		}
		old := *slot
		*slot = raw
		if hook != nil {
			if err := hook(old, raw); err != nil {
				*slot = old
				return fmt.Errorf("config: %s: update hook: %w", name, err)
			}
		}
		return nil
	}
	k.Validator = validator
	return k
}

func enumKnob(name string, immutable bool, slot *string, def string, values []string, hook func(old, new string) error) *Knob {
	valid := func(v string) error {
		for _, ev := range values {
			if ev == v {
				return nil
			}
		}
		return fmt.Errorf("invalid enum value %q (want one of %v)", v, values)
	}
	k := &Knob{Name: name, Kind: KindEnum, Immutable: immutable, Default: def, EnumValues: values}
	k.get = func() string { return *slot }
	k.set = func(raw string) error {
		if err := valid(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		old := *slot
		*slot = raw
		if hook != nil {
			if err := hook(old, raw); err != nil {
				*slot = old
				return fmt.Errorf("config: %s: update hook: %w", name, err)
			}
		}
		return nil
	}
	k.Validator = valid
	return k
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
