package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// ParseBytes decodes a YAML document into a Value tree.
//
// Decoding goes through the yaml.Node API rather than map[string]any so that
// mapping key order survives: the graph builder and layout depend on
// declaration order for deterministic output.
func ParseBytes(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse YAML")
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		// Empty document
		return Null(), nil
	}
	return fromNode(doc.Content[0])
}

func fromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			key := keyNode.Value
			val, err := fromNode(valNode)
			if err != nil {
				return Value{}, err
			}
			m.Set(key, val)
		}
		return m.Build(), nil
	case yaml.SequenceNode:
		elems := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, v)
		}
		return Seq(elems...), nil
	case yaml.ScalarNode:
		return fromScalar(n)
	default:
		return Value{}, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"unsupported YAML node kind %d at line %d", n.Kind, n.Line)
	}
}

func fromScalar(n *yaml.Node) (Value, error) {
	switch n.Tag {
	case "!!null", "":
		if n.Tag == "" && n.Value != "" {
			// Untagged non-empty scalar, treat as string
			return String(n.Value), nil
		}
		return Null(), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			// YAML allows yes/no/on/off spellings
			var v bool
			if err := n.Decode(&v); err != nil {
				return Value{}, fmt.Errorf("decode bool %q at line %d: %w", n.Value, n.Line, err)
			}
			return Bool(v), nil
		}
		return Bool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("decode int %q at line %d: %w", n.Value, n.Line, err)
		}
		return Int(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			var v float64
			if err := n.Decode(&v); err != nil {
				return Value{}, fmt.Errorf("decode float %q at line %d: %w", n.Value, n.Line, err)
			}
			return Float(v), nil
		}
		return Float(f), nil
	default:
		return String(n.Value), nil
	}
}
