// Package graph converts a resolved configuration into a renderable graph
// of nodes and edges.
//
// The builder maps every configuration entry to one node: the "input" entry
// becomes a single pseudo-input node whose output ports are the declared
// slots, the "output" entry a pseudo-output node whose input ports are its
// bound sources, and every other entry a regular module node. Source
// references become edges carrying their literal text as display label.
//
// All ids are deterministic functions of the configuration: building the
// same Configuration twice yields byte-identical node and edge ids, which
// the rendering layer relies on for diff-stable updates.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/liuji1031/visualize-architecture/pkg/config"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// NodeKind distinguishes the pseudo boundary nodes from regular modules.
type NodeKind int

const (
	// KindRegular is an ordinary module node.
	KindRegular NodeKind = iota
	// KindInput is the synthetic node representing the graph's input slots.
	KindInput
	// KindOutput is the synthetic node representing the graph's outputs.
	KindOutput
)

// String returns the serialization name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindInput:
		return "pseudo-input"
	case KindOutput:
		return "pseudo-output"
	default:
		return "regular"
	}
}

// Node is one positioned element of a rendered graph.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`

	// Port counts, as declared by the configuration.
	InPorts  int `json:"in_ports"`
	OutPorts int `json:"out_ports"`

	// Position and size, filled in by the layout engine. X/Y locate the
	// node's center.
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Display payload.
	Label      string       `json:"label"`
	Class      string       `json:"class,omitempty"`
	Params     config.Value `json:"params,omitempty"`
	ConfigPath string       `json:"config_path,omitempty"`
	Composite  bool         `json:"composite,omitempty"`
	// Unresolved carries the per-module reference-resolution failure
	// message so the node is inspectable instead of silently broken.
	Unresolved string `json:"unresolved,omitempty"`
}

// Edge is one directed connection between node ports.
type Edge struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	FromPort int    `json:"from_port"`
	To       string `json:"to"`
	ToPort   int    `json:"to_port"`
	// ToSlot is the named input port when the target declared its sources
	// as a mapping; empty for positional ports.
	ToSlot string `json:"to_slot,omitempty"`
	// Label is the literal source-reference text the edge came from.
	Label string `json:"label,omitempty"`
}

// Graph is an immutable node/edge set built from one Configuration.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`

	byID map[string]*Node
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.byID[id]
}

// Bounds returns the bounding box of all node rectangles as
// (minX, minY, maxX, maxY). Zero-size graphs return all zeros.
func (g *Graph) Bounds() (minX, minY, maxX, maxY float64) {
	if len(g.Nodes) == 0 {
		return 0, 0, 0, 0
	}
	first := true
	for _, n := range g.Nodes {
		left, right := n.X-n.Width/2, n.X+n.Width/2
		top, bottom := n.Y-n.Height/2, n.Y+n.Height/2
		if first {
			minX, maxX, minY, maxY = left, right, top, bottom
			first = false
			continue
		}
		minX = min(minX, left)
		maxX = max(maxX, right)
		minY = min(minY, top)
		maxY = max(maxY, bottom)
	}
	return minX, minY, maxX, maxY
}

// Offset translates every node position by (dx, dy). Used when splicing an
// expanded subgraph next to its parent node.
func (g *Graph) Offset(dx, dy float64) {
	for _, n := range g.Nodes {
		n.X += dx
		n.Y += dy
	}
}

// Marshal serializes a graph to JSON for caching and API responses.
func Marshal(g *Graph) ([]byte, error) {
	return json.Marshal(g)
}

// Unmarshal restores a graph serialized with [Marshal], rebuilding the
// node index.
func Unmarshal(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	g.byID = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.byID[n.ID] = n
	}
	return &g, nil
}

// EdgeID derives the deterministic edge id for a source/target port pair.
// The id is a pure function of its inputs so rebuilding an identical
// configuration reproduces identical ids.
func EdgeID(from string, fromPort int, to string, toPort int) string {
	return fmt.Sprintf("%s.%d->%s.%d", from, fromPort, to, toPort)
}

// Build converts a validated Configuration into a Graph. Node order follows
// declaration order (pseudo-input first, pseudo-output last); edge order
// follows the declaring module's input order.
//
// Build never positions nodes; run the layout engine afterwards.
func Build(cfg *config.Configuration) (*Graph, error) {
	g := &Graph{byID: make(map[string]*Node)}

	addNode := func(n *Node) error {
		if _, dup := g.byID[n.ID]; dup {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "duplicate node id %q", n.ID)
		}
		g.Nodes = append(g.Nodes, n)
		g.byID[n.ID] = n
		return nil
	}

	if err := addNode(&Node{
		ID:       config.InputKey,
		Kind:     KindInput,
		OutPorts: len(cfg.InputSlots),
		Label:    config.InputKey,
	}); err != nil {
		return nil, err
	}

	for _, m := range cfg.Modules {
		n := &Node{
			ID:         m.Name,
			Kind:       KindRegular,
			InPorts:    len(m.Inputs),
			OutPorts:   m.OutputCount,
			Label:      m.Name,
			Class:      m.Class,
			Params:     m.Params,
			ConfigPath: m.ConfigPath,
			Composite:  m.Composite(),
		}
		if m.RefError != nil {
			n.Unresolved = apperrors.UserMessage(m.RefError)
		}
		if err := addNode(n); err != nil {
			return nil, err
		}
	}

	if err := addNode(&Node{
		ID:      config.OutputKey,
		Kind:    KindOutput,
		InPorts: len(cfg.Outputs),
		Label:   config.OutputKey,
	}); err != nil {
		return nil, err
	}

	modules := make(map[string]*config.Module, len(cfg.Modules))
	for _, m := range cfg.Modules {
		modules[m.Name] = m
	}
	slotIndex := make(map[string]int, len(cfg.InputSlots))
	for i, s := range cfg.InputSlots {
		slotIndex[s] = i
	}

	// Modules declaring no inputs produce no edges; they render as
	// disconnected roots, which is legal.
	for _, m := range cfg.Modules {
		for i, src := range m.Inputs {
			edge, err := makeEdge(src, m.Name, i, modules, slotIndex)
			if err != nil {
				return nil, err
			}
			g.Edges = append(g.Edges, edge)
		}
	}
	for i, src := range cfg.Outputs {
		edge, err := makeEdge(src, config.OutputKey, i, modules, slotIndex)
		if err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, edge)
	}

	return g, nil
}

// makeEdge resolves one source reference into an edge ending at input port
// toPort of node to.
//
// Slot matching takes precedence: a reference whose text equals one of the
// input pseudo-node's slot names binds to that slot's position even when a
// module of the same name exists. This mirrors the original resolution
// order so existing configurations keep rendering identically.
func makeEdge(src config.InputSource, to string, toPort int, modules map[string]*config.Module, slotIndex map[string]int) (Edge, error) {
	var (
		from     string
		fromPort int
		label    string
	)

	if slot, ok := slotIndex[src.Ref]; ok {
		from = config.InputKey
		fromPort = slot
		label = src.Ref
	} else {
		name, port := config.SplitRef(src.Ref, modules)
		srcMod, ok := modules[name]
		if !ok {
			return Edge{}, apperrors.New(apperrors.ErrCodeInvalidConfig,
				"%s references unknown source %q", to, src.Ref)
		}
		if port >= srcMod.OutputCount {
			return Edge{}, apperrors.New(apperrors.ErrCodeInvalidConfig,
				"%s references output %d of %s, which declares %d output(s)",
				to, port, name, srcMod.OutputCount)
		}
		from = name
		fromPort = port
		if src.Slot != "" {
			// Named form: reconstruct the canonical spelling so the label
			// shows the port only for multi-output sources.
			label = config.FormatRef(name, port, srcMod.OutputCount > 1)
		} else {
			label = src.Ref
		}
	}

	return Edge{
		ID:       EdgeID(from, fromPort, to, toPort),
		From:     from,
		FromPort: fromPort,
		To:       to,
		ToPort:   toPort,
		ToSlot:   src.Slot,
		Label:    label,
	}, nil
}
