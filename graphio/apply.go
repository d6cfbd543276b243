package graphio

import (
	"errors"
	"fmt"

	"github.com/fieldforge/fieldforge/nodes"
)

// Import errors.
var (
	ErrNoNodes     = errors.New("graph has no nodes")
	ErrUnknownType = errors.New("unknown node type")
)

// ApplyResult reports a completed import. IDMap translates the client's
// node ids to the ids the model assigned.
type ApplyResult struct {
	Success bool
	IDMap   map[uint32]uint32
}

// Apply materializes a minimal-schema graph into the model. With replace
// set, the model is cleared and fresh Begin/End markers are created
// first; otherwise the graph is merged into the existing content.
//
// Importing happens in two passes: nodes first, links second, so links
// can reference nodes in any order. Links with unresolvable endpoints are
// skipped to preserve the progress of the rest; unknown node types fail
// the whole import before anything is modified.
func Apply(m *nodes.Model, graph Graph, replace bool) (ApplyResult, error) {
	result := ApplyResult{IDMap: make(map[uint32]uint32)}

	if len(graph.Nodes) == 0 {
		return result, ErrNoNodes
	}

	// reject unknown kinds up front so a failed import leaves the model
	// in its last known-good state
	for _, jn := range graph.Nodes {
		if isBeginAlias(jn.Type) || isEndAlias(jn.Type) {
			continue
		}
		if !nodes.IsKnownKind(nodes.NodeKind(jn.Type)) {
			return result, fmt.Errorf("%w: %q", ErrUnknownType, jn.Type)
		}
	}

	if replace {
		m.Clear()
		m.CreateBeginEnd()
	}

	// first pass: materialize nodes
	created := make(map[uint32]*nodes.Node, len(graph.Nodes))
	for _, jn := range graph.Nodes {
		var node *nodes.Node
		switch {
		case isBeginAlias(jn.Type):
			node = m.BeginNode()
			if node == nil {
				node, _ = m.Create(nodes.KindBegin)
			}
			applyBeginPorts(m, node, jn)
		case isEndAlias(jn.Type):
			node = m.EndNode()
			if node == nil {
				node, _ = m.Create(nodes.KindEnd)
			}
			applyEndParameters(m, node, jn)
		default:
			var err error
			node, err = m.Create(nodes.NodeKind(jn.Type))
			if err != nil {
				return result, err
			}
		}

		if jn.DisplayName != "" {
			node.SetDisplayName(jn.DisplayName)
		}
		if len(jn.Position) == 2 {
			node.SetPosition(jn.Position[0], jn.Position[1])
		}
		applyParameterValues(node, jn)

		created[jn.ID] = node
		result.IDMap[jn.ID] = uint32(node.ID())
	}

	m.UpdateGraphAndOrderIfNeeded()

	// second pass: wire links; skip silently on missing endpoints
	for _, link := range graph.Links {
		from, ok := created[link.FromNodeID]
		if !ok {
			continue
		}
		to, ok := created[link.ToNodeID]
		if !ok {
			continue
		}
		port := from.FindOutputPort(link.FromPort)
		param := to.Parameter(link.ToParameter)
		if port == nil || param == nil {
			continue
		}
		m.AddLink(port.ID(), param.ID(), false)
	}

	m.UpdateGraphAndOrderIfNeeded()
	m.UpdateTypes()

	result.Success = true
	return result, nil
}

func isBeginAlias(t string) bool { return t == "Input" || t == "Begin" }
func isEndAlias(t string) bool   { return t == "Output" || t == "End" }

// applyBeginPorts recreates the function arguments declared by the
// projected Begin node.
func applyBeginPorts(m *nodes.Model, begin *nodes.Node, jn Node) {
	for _, out := range jn.Outputs {
		t := nodes.DataTypeFromTag(out.Type)
		if t == nodes.TypeUnknown {
			continue
		}
		_, _ = m.AddArgument(out.Name, t) // adds or retypes in place
	}
}

// applyEndParameters recreates the function outputs declared by the
// projected End node.
func applyEndParameters(m *nodes.Model, end *nodes.Node, jn Node) {
	for _, jp := range jn.Parameters {
		t := nodes.DataTypeFromTag(jp.Type)
		if t == nodes.TypeUnknown {
			continue
		}
		if end.Parameter(jp.Name) == nil || end.Parameter(jp.Name).Type() != t {
			_, _ = m.AddFunctionOutput(jp.Name, nodes.ZeroValue(t))
		}
	}
}

// applyParameterValues decodes literals onto unconnected parameters.
func applyParameterValues(node *nodes.Node, jn Node) {
	for _, jp := range jn.Parameters {
		if jp.IsConnected || jp.Value == nil {
			continue
		}
		param := node.Parameter(jp.Name)
		if param == nil {
			continue
		}
		if v, ok := DecodeValue(param.Type(), jp.Value); ok {
			param.SetValue(v)
		}
	}
}

// DecodeValue converts a JSON-decoded literal into a Value of the wanted
// type. Matrices accept either a flat 16-array or a 4x4 nested array.
func DecodeValue(want nodes.DataType, raw any) (nodes.Value, bool) {
	switch want {
	case nodes.TypeFloat:
		if f, ok := asFloat(raw); ok {
			return nodes.FloatValue(f), true
		}
	case nodes.TypeFloat3:
		if list, ok := asFloatSlice(raw); ok && len(list) == 3 {
			return nodes.Float3Value(nodes.Float3{X: list[0], Y: list[1], Z: list[2]}), true
		}
	case nodes.TypeMatrix4:
		if mat, ok := asMatrix(raw); ok {
			return nodes.Matrix4Value(mat), true
		}
	case nodes.TypeInt:
		if f, ok := asFloat(raw); ok {
			return nodes.IntValue(int32(f)), true
		}
	case nodes.TypeString:
		if s, ok := raw.(string); ok {
			return nodes.StringValue(s), true
		}
	case nodes.TypeResourceID:
		if f, ok := asFloat(raw); ok {
			return nodes.ResourceIDValue(nodes.ResourceID(f)), true
		}
	}
	return nodes.Value{}, false
}

func asFloat(raw any) (float32, bool) {
	switch v := raw.(type) {
	case float64:
		return float32(v), true
	case float32:
		return v, true
	case int:
		return float32(v), true
	case int32:
		return float32(v), true
	case uint32:
		return float32(v), true
	default:
		return 0, false
	}
}

func asFloatSlice(raw any) ([]float32, bool) {
	switch list := raw.(type) {
	case []float32:
		return list, true
	case []any:
		out := make([]float32, 0, len(list))
		for _, item := range list {
			f, ok := asFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return nil, false
	}
}

func asMatrix(raw any) (nodes.Matrix4, bool) {
	var mat nodes.Matrix4

	// flat 16-element form
	if flat, ok := asFloatSlice(raw); ok && len(flat) == 16 {
		for i, f := range flat {
			mat[i/4][i%4] = f
		}
		return mat, true
	}

	// nested 4x4 form
	rows, ok := raw.([]any)
	if !ok || len(rows) != 4 {
		return mat, false
	}
	for r, rowRaw := range rows {
		row, ok := asFloatSlice(rowRaw)
		if !ok || len(row) != 4 {
			return mat, false
		}
		for c, f := range row {
			mat[r][c] = f
		}
	}
	return mat, true
}
