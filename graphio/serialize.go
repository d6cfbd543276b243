// Package graphio projects function graphs onto a stable, language-neutral
// JSON shape and re-imports such projections. External tools diff, edit,
// and re-apply graphs through this package; the field names are a wire
// contract and must not change.
package graphio

import (
	"github.com/fieldforge/fieldforge/nodes"
)

// Graph is the minimal projection of a model: enough to round-trip the
// structure, not the editor state.
type Graph struct {
	Model  ModelInfo `json:"model"`
	Nodes  []Node    `json:"nodes"`
	Links  []Link    `json:"links"`
	Counts Counts    `json:"counts"`
}

// ModelInfo identifies the projected model.
type ModelInfo struct {
	ResourceID  uint32  `json:"resource_id"`
	Name        string  `json:"name"`
	DisplayName *string `json:"display_name"`
}

// Node is one projected node.
type Node struct {
	ID          uint32       `json:"id"`
	Type        string       `json:"type"`
	DisplayName string       `json:"display_name"`
	Position    []float32    `json:"position,omitempty"`
	Parameters  []Parameter  `json:"parameters"`
	Outputs     []OutputPort `json:"outputs"`
}

// Parameter is one projected input.
type Parameter struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	IsConnected bool       `json:"is_connected"`
	Source      *SourceRef `json:"source,omitempty"`
	Value       any        `json:"value,omitempty"`
}

// SourceRef names the producing node and port of a connected parameter.
type SourceRef struct {
	NodeID uint32 `json:"node_id"`
	Port   string `json:"port"`
}

// OutputPort is one projected output.
type OutputPort struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Link is one projected edge, denormalized for easy diffing.
type Link struct {
	FromNodeID  uint32 `json:"from_node_id"`
	FromPort    string `json:"from_port"`
	ToNodeID    uint32 `json:"to_node_id"`
	ToParameter string `json:"to_parameter"`
	Type        string `json:"type"`
}

// Counts makes truncated diffs detectable.
type Counts struct {
	Nodes uint32 `json:"nodes"`
	Links uint32 `json:"links"`
}

// SerializeMinimal projects a model onto the round-trip schema. Nodes are
// emitted in ascending id order, parameters and outputs in declaration
// order, so equal models serialize byte-equal.
func SerializeMinimal(m *nodes.Model) Graph {
	m.UpdateGraphAndOrderIfNeeded()

	out := Graph{
		Model: ModelInfo{
			ResourceID: uint32(m.ResourceID()),
			Name:       modelName(m),
		},
	}
	if name := m.DisplayName(); name != "" {
		out.Model.DisplayName = &name
	}

	for _, n := range m.NodesByID() {
		jn := Node{
			ID:          uint32(n.ID()),
			Type:        string(n.Kind()),
			DisplayName: n.DisplayName(),
		}
		if pos := n.Position(); pos != [2]float32{} {
			jn.Position = []float32{pos[0], pos[1]}
		}

		n.Parameters(func(name string, p *nodes.Parameter) bool {
			jp := Parameter{
				Name:        name,
				Type:        p.Type().String(),
				IsConnected: p.Source() != nil,
			}
			if src := p.Source(); src != nil {
				jp.Source = &SourceRef{NodeID: uint32(src.NodeID), Port: src.ShortName}
				out.Links = append(out.Links, Link{
					FromNodeID:  uint32(src.NodeID),
					FromPort:    src.ShortName,
					ToNodeID:    uint32(n.ID()),
					ToParameter: name,
					Type:        p.Type().String(),
				})
			} else {
				jp.Value = encodeValue(p.Value())
			}
			jn.Parameters = append(jn.Parameters, jp)
			return true
		})

		n.Outputs(func(name string, port *nodes.Port) bool {
			jn.Outputs = append(jn.Outputs, OutputPort{Name: name, Type: port.Type().String()})
			return true
		})

		out.Nodes = append(out.Nodes, jn)
	}

	out.Counts = Counts{Nodes: uint32(len(out.Nodes)), Links: uint32(len(out.Links))}
	return out
}

func modelName(m *nodes.Model) string {
	if name := m.DisplayName(); name != "" {
		return name
	}
	return "function"
}

// encodeValue renders a literal as a JSON-friendly value. Matrices are
// exported as a flat 16-element row-major array.
func encodeValue(v nodes.Value) any {
	switch v.Type() {
	case nodes.TypeFloat:
		f, _ := v.Float()
		return f
	case nodes.TypeFloat3:
		vec, _ := v.Float3()
		return []float32{vec.X, vec.Y, vec.Z}
	case nodes.TypeMatrix4:
		mat, _ := v.Matrix4()
		flat := make([]float32, 0, 16)
		for row := 0; row < 4; row++ {
			for col := 0; col < 4; col++ {
				flat = append(flat, mat[row][col])
			}
		}
		return flat
	case nodes.TypeInt:
		i, _ := v.Int()
		return i
	case nodes.TypeString:
		s, _ := v.Str()
		return s
	case nodes.TypeResourceID:
		id, _ := v.ResourceID()
		return uint32(id)
	default:
		return nil
	}
}
