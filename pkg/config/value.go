// Package config implements parsing and resolution of module-graph
// configuration files.
//
// A configuration file is a YAML document whose top-level mapping contains a
// "modules" entry: a mapping from module name to module descriptor, with two
// reserved pseudo-entries ("input" and "output") marking the graph boundary.
// Before a configuration can be turned into a graph it passes through two
// resolution steps:
//
//  1. Interpolation: whole-string "${path}" leaves are replaced by the value
//     at that dotted path in the document, optionally combined with a single
//     arithmetic operation (see [Resolve]).
//  2. Reference resolution: module "config" fields that are file paths are
//     fetched and replaced by the parsed parameter mapping of the referenced
//     file (see [ResolveReferences]).
//
// Parsed documents are represented by [Value], a tagged union of mapping,
// sequence, and scalar kinds that preserves mapping key order. Key order
// matters: declaration order feeds the deterministic layout downstream.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSeq
	KindMap
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged union representing one node of a parsed
// configuration tree: a mapping (with preserved key order), a sequence, or a
// scalar. The zero value is the null value.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	seq    []Value
	keys   []string
	fields map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Seq returns a sequence value holding the given elements.
func Seq(elems ...Value) Value {
	return Value{kind: KindSeq, seq: elems}
}

// MapBuilder incrementally constructs a mapping Value while preserving
// insertion order. Setting an existing key replaces its value in place.
type MapBuilder struct {
	keys   []string
	fields map[string]Value
}

// NewMap creates an empty MapBuilder.
func NewMap() *MapBuilder {
	return &MapBuilder{fields: make(map[string]Value)}
}

// Set adds or replaces a key.
func (m *MapBuilder) Set(key string, v Value) *MapBuilder {
	if _, exists := m.fields[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = v
	return m
}

// Build finalizes the mapping into a Value. The builder must not be reused.
func (m *MapBuilder) Build() Value {
	return Value{kind: KindMap, keys: m.keys, fields: m.fields}
}

// Kind returns which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMap reports whether the value is a mapping.
func (v Value) IsMap() bool { return v.kind == KindMap }

// IsSeq reports whether the value is a sequence.
func (v Value) IsSeq() bool { return v.kind == KindSeq }

// IsString reports whether the value is a string.
func (v Value) IsString() bool { return v.kind == KindString }

// IsNumber reports whether the value is an int or float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// Str returns the string payload. Returns "" for non-strings.
func (v Value) Str() string { return v.s }

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsNumber returns the numeric payload as float64 and whether the value is
// numeric (int or float).
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// AsInt returns the integer payload and whether the value is an int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsBool returns the boolean payload and whether the value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Len returns the number of elements (sequence) or keys (mapping).
// Returns 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindSeq:
		return len(v.seq)
	case KindMap:
		return len(v.keys)
	}
	return 0
}

// Index returns the i-th element of a sequence. Panics if out of range or
// not a sequence, mirroring slice semantics.
func (v Value) Index(i int) Value { return v.seq[i] }

// Elems returns the sequence elements. Returns nil for non-sequences.
// The returned slice must not be modified.
func (v Value) Elems() []Value { return v.seq }

// Keys returns the mapping keys in declaration order.
// Returns nil for non-mappings. The returned slice must not be modified.
func (v Value) Keys() []string { return v.keys }

// Get returns the value for key and whether it exists.
// Returns the null value and false for non-mappings.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.fields[key]
	return val, ok
}

// GetString returns the string at key, or "" if absent or not a string.
func (v Value) GetString(key string) string {
	val, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := val.AsString()
	return s
}

// Equal reports deep equality of two values. Int and float values compare
// unequal even when numerically equal, matching YAML round-trip behavior.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindSeq:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for i, k := range v.keys {
			if o.keys[i] != k {
				return false
			}
			if !v.fields[k].Equal(o.fields[k]) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON serializes the value, emitting mapping keys in declaration
// order. This keeps API responses and cached payloads byte-stable across
// re-serialization of the same tree.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encodeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encodeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		data, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindString:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindSeq:
		buf.WriteByte('[')
		for i, e := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encodeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.fields[k].encodeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

// GoString returns a compact representation for debugging and test output.
func (v Value) GoString() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("config.Value(%s)", v.kind)
	}
	return string(data)
}
