package config

import (
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// Reserved entry names inside the "modules" mapping.
const (
	// ModulesKey is the top-level key holding the module mapping.
	ModulesKey = "modules"
	// InputKey is the pseudo-module declaring the graph's input slots.
	InputKey = "input"
	// OutputKey is the pseudo-module declaring the graph's outputs.
	OutputKey = "output"
)

// Module descriptor field names.
const (
	FieldClass   = "cls"
	FieldInputs  = "inp_src"
	FieldOutputs = "out_num"
	FieldConfig  = "config"
)

// ClassComposable marks a module whose config field references a complete
// nested configuration file rather than a parameter mapping. Composite
// modules keep their config path unresolved so the navigation layer can
// drill into them on demand.
const ClassComposable = "ComposableModel"

// InputSource is one wiring declaration on a module: a source reference,
// optionally bound to a named slot when the declaring form was a mapping.
type InputSource struct {
	Slot string // Named input slot; empty for positional (sequence) form
	Ref  string // Literal source reference text, e.g. "convA" or "convB.1"
}

// Module is one declared unit in a configuration.
type Module struct {
	Name        string
	Class       string        // cls field; empty only for pseudo-modules
	Inputs      []InputSource // inp_src in declaration order
	OutputCount int           // out_num; always >= 1
	Params      Value         // inline config mapping (null when ConfigPath set)
	ConfigPath  string        // config string form: path to a referenced file
	// ResolvedPath records where ConfigPath was found during reference
	// resolution, relative to the fetch root. Empty when resolution never
	// ran or failed.
	ResolvedPath string
	// RefError holds the per-module fetch/parse failure when reference
	// resolution degraded for this module. The module keeps its raw
	// ConfigPath in that case.
	RefError error
}

// Composite reports whether this module references a nested configuration
// that can be expanded into its own graph.
func (m *Module) Composite() bool {
	return m.Class == ClassComposable && m.ConfigPath != ""
}

// Configuration is an immutable, validated module graph description.
type Configuration struct {
	// Root is the fully resolved document tree, kept for inspection
	// payloads and interpolation anchors.
	Root Value
	// InputSlots are the declared input names, in order. Slot position is
	// the output port index of the pseudo-input node.
	InputSlots []string
	// Outputs are the bound sources of the pseudo-output node, in order.
	// Slot is empty for the sequence form and the key name for the
	// mapping form.
	Outputs []InputSource
	// Modules holds the regular modules in declaration order.
	Modules []*Module

	byName map[string]*Module
}

// Module returns the named regular module, or nil.
func (c *Configuration) Module(name string) *Module {
	return c.byName[name]
}

// FromValue validates a parsed (and typically interpolation-resolved)
// document and builds the typed Configuration. Structural problems are
// fatal and reported as INVALID_CONFIGURATION: a missing modules/input/
// output entry, a malformed descriptor, or a source reference naming
// neither a module nor an input slot.
func FromValue(root Value) (*Configuration, error) {
	if !root.IsMap() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "document root must be a mapping, got %s", root.Kind())
	}
	modules, ok := root.Get(ModulesKey)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "missing %q entry", ModulesKey)
	}
	if !modules.IsMap() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "%q must be a mapping, got %s", ModulesKey, modules.Kind())
	}

	cfg := &Configuration{
		Root:   root,
		byName: make(map[string]*Module),
	}

	sawInput, sawOutput := false, false
	for _, name := range modules.Keys() {
		entry, _ := modules.Get(name)
		switch name {
		case InputKey:
			slots, err := parseInputSlots(entry)
			if err != nil {
				return nil, err
			}
			cfg.InputSlots = slots
			sawInput = true
		case OutputKey:
			outs, err := parseSources(name, entry)
			if err != nil {
				return nil, err
			}
			cfg.Outputs = outs
			sawOutput = true
		default:
			mod, err := parseModule(name, entry)
			if err != nil {
				return nil, err
			}
			cfg.Modules = append(cfg.Modules, mod)
			cfg.byName[name] = mod
		}
	}

	if !sawInput {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "missing %q entry in %q", InputKey, ModulesKey)
	}
	if !sawOutput {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "missing %q entry in %q", OutputKey, ModulesKey)
	}

	if err := cfg.validateReferences(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseInputSlots decodes the input pseudo-entry, whose payload is directly
// a sequence of slot names rather than a full descriptor.
func parseInputSlots(entry Value) ([]string, error) {
	if !entry.IsSeq() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"%q entry must be a sequence of slot names, got %s", InputKey, entry.Kind())
	}
	slots := make([]string, 0, entry.Len())
	for i, e := range entry.Elems() {
		s, ok := e.AsString()
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
				"%q slot %d must be a string, got %s", InputKey, i, e.Kind())
		}
		slots = append(slots, s)
	}
	return slots, nil
}

// parseSources decodes a source list that may be either a sequence of
// references (positional ports) or a mapping from slot name to reference
// (named ports). Both forms are equivalent alternates.
func parseSources(owner string, v Value) ([]InputSource, error) {
	switch v.Kind() {
	case KindSeq:
		srcs := make([]InputSource, 0, v.Len())
		for i, e := range v.Elems() {
			ref, ok := e.AsString()
			if !ok {
				return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
					"%s: source %d must be a string reference, got %s", owner, i, e.Kind())
			}
			srcs = append(srcs, InputSource{Ref: ref})
		}
		return srcs, nil
	case KindMap:
		srcs := make([]InputSource, 0, v.Len())
		for _, slot := range v.Keys() {
			e, _ := v.Get(slot)
			ref, ok := e.AsString()
			if !ok {
				return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
					"%s: source %q must be a string reference, got %s", owner, slot, e.Kind())
			}
			srcs = append(srcs, InputSource{Slot: slot, Ref: ref})
		}
		return srcs, nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"%s: sources must be a sequence or mapping, got %s", owner, v.Kind())
	}
}

func parseModule(name string, entry Value) (*Module, error) {
	if !entry.IsMap() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"module %q must be a mapping, got %s", name, entry.Kind())
	}

	mod := &Module{
		Name:        name,
		Class:       entry.GetString(FieldClass),
		OutputCount: 1,
		Params:      Null(),
	}

	if srcVal, ok := entry.Get(FieldInputs); ok {
		srcs, err := parseSources("module "+name, srcVal)
		if err != nil {
			return nil, err
		}
		mod.Inputs = srcs
	}

	if outVal, ok := entry.Get(FieldOutputs); ok {
		n, isInt := outVal.AsInt()
		if !isInt || n < 1 {
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
				"module %q: %s must be a positive integer", name, FieldOutputs)
		}
		mod.OutputCount = int(n)
	}

	if cfgVal, ok := entry.Get(FieldConfig); ok {
		switch cfgVal.Kind() {
		case KindString:
			mod.ConfigPath = cfgVal.Str()
		case KindMap, KindNull:
			mod.Params = cfgVal
		default:
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
				"module %q: %s must be a mapping or file path, got %s", name, FieldConfig, cfgVal.Kind())
		}
	}

	return mod, nil
}

// validateReferences checks that every source reference names either a
// declared module or an input slot. Input-slot matches take precedence, so
// a slot name shadowing a module name is legal here and resolves to the
// slot downstream.
func (c *Configuration) validateReferences() error {
	slots := make(map[string]struct{}, len(c.InputSlots))
	for _, s := range c.InputSlots {
		slots[s] = struct{}{}
	}

	check := func(owner, ref string) error {
		if _, ok := slots[ref]; ok {
			return nil
		}
		name, _ := SplitRef(ref, c.byName)
		if _, ok := c.byName[name]; !ok {
			return apperrors.New(apperrors.ErrCodeInvalidConfig,
				"%s references unknown source %q", owner, ref)
		}
		return nil
	}

	for _, m := range c.Modules {
		for _, src := range m.Inputs {
			if err := check("module "+m.Name, src.Ref); err != nil {
				return err
			}
		}
	}
	for _, out := range c.Outputs {
		if err := check(OutputKey, out.Ref); err != nil {
			return err
		}
	}
	return nil
}
