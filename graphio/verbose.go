package graphio

import (
	"github.com/fieldforge/fieldforge/nodes"
)

// VerboseGraph is the deep projection: everything the minimal schema has
// plus ordering, unique names, categories, flags, and full source
// records. It is for inspection and diffing, not for re-import.
type VerboseGraph struct {
	Model ModelInfo     `json:"model"`
	Nodes []VerboseNode `json:"nodes"`
}

// VerboseNode is one fully expanded node.
type VerboseNode struct {
	ID          uint32             `json:"id"`
	Order       int32              `json:"order"`
	Name        string             `json:"name"`
	UniqueName  string             `json:"unique_name"`
	DisplayName string             `json:"display_name"`
	Category    string             `json:"category"`
	Position    []float32          `json:"position"`
	Parameters  []VerboseParameter `json:"parameters"`
	Outputs     []VerbosePort      `json:"outputs"`
}

// VerboseParameter is one fully expanded input.
type VerboseParameter struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Modifiable bool           `json:"modifiable"`
	IsArgument bool           `json:"is_argument"`
	Value      string         `json:"value"`
	Source     *VerboseSource `json:"source"`
}

// VerboseSource is the full denormalized source record.
type VerboseSource struct {
	NodeID     uint32 `json:"node_id"`
	PortID     uint32 `json:"port_id"`
	UniqueName string `json:"unique_name"`
	ShortName  string `json:"short_name"`
	Type       string `json:"type"`
}

// VerbosePort is one fully expanded output.
type VerbosePort struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	UniqueName string `json:"unique_name"`
	Type       string `json:"type"`
	InUse      bool   `json:"in_use"`
}

// SerializeVerbose projects a model onto the deep schema, nodes in
// ascending id order.
func SerializeVerbose(m *nodes.Model) VerboseGraph {
	m.UpdateGraphAndOrderIfNeeded()

	out := VerboseGraph{
		Model: ModelInfo{
			ResourceID: uint32(m.ResourceID()),
			Name:       modelName(m),
		},
	}
	if name := m.DisplayName(); name != "" {
		out.Model.DisplayName = &name
	}

	for _, n := range m.NodesByID() {
		pos := n.Position()
		jn := VerboseNode{
			ID:          uint32(n.ID()),
			Order:       n.Order(),
			Name:        n.Name(),
			UniqueName:  n.UniqueName(),
			DisplayName: n.DisplayName(),
			Category:    n.Category().String(),
			Position:    []float32{pos[0], pos[1]},
		}

		n.Parameters(func(name string, p *nodes.Parameter) bool {
			jp := VerboseParameter{
				Name:       name,
				Type:       p.Type().String(),
				Modifiable: p.Modifiable(),
				IsArgument: p.IsArgument(),
				Value:      p.Value().String(),
			}
			if src := p.Source(); src != nil {
				jp.Source = &VerboseSource{
					NodeID:     uint32(src.NodeID),
					PortID:     uint32(src.PortID),
					UniqueName: src.UniqueName,
					ShortName:  src.ShortName,
					Type:       src.Type.String(),
				}
			}
			jn.Parameters = append(jn.Parameters, jp)
			return true
		})

		n.Outputs(func(name string, port *nodes.Port) bool {
			jn.Outputs = append(jn.Outputs, VerbosePort{
				ID:         uint32(port.ID()),
				Name:       name,
				UniqueName: port.UniqueName(),
				Type:       port.Type().String(),
				InUse:      port.InUse(),
			})
			return true
		})

		out.Nodes = append(out.Nodes, jn)
	}
	return out
}
