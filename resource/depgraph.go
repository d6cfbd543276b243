package resource

import (
	"github.com/fieldforge/fieldforge/dirgraph"
	"github.com/fieldforge/fieldforge/nodes"
)

// DependencyGraph tracks "function A uses resource B" relations across a
// whole assembly so the document can answer which resources are required,
// which are safe to delete, and in which order.
type DependencyGraph struct {
	graph *dirgraph.SparseGraph
}

// NewDependencyGraph builds the resource graph of an assembly by scanning
// every function for FunctionCall references and resource-typed literals.
func NewDependencyGraph(assembly *nodes.Assembly) *DependencyGraph {
	dg := &DependencyGraph{graph: dirgraph.NewSparseGraph()}

	assembly.Functions(func(m *nodes.Model) bool {
		from := dirgraph.Identifier(m.ResourceID())
		dg.graph.AddVertex(from)
		for _, n := range m.NodesByID() {
			for _, id := range referencedResources(m, n) {
				dg.graph.AddEdge(from, dirgraph.Identifier(id))
			}
		}
		return true
	})
	return dg
}

// referencedResources lists the resource ids a node pins: the callee of a
// FunctionCall, and any resource-typed literal on any node.
func referencedResources(m *nodes.Model, n *nodes.Node) []nodes.ResourceID {
	var out []nodes.ResourceID
	if n.Kind() == nodes.KindFunctionCall {
		if err := n.ResolveFunctionID(m); err == nil && n.FunctionID() != 0 {
			out = append(out, n.FunctionID())
		}
	}
	n.Parameters(func(_ string, p *nodes.Parameter) bool {
		if p.Source() != nil || p.Type() != nodes.TypeResourceID {
			return true
		}
		if id, ok := p.Value().ResourceID(); ok && id != 0 {
			out = append(out, id)
		}
		return true
	})
	return out
}

// RequiredBy returns every resource the given one transitively depends on.
func (dg *DependencyGraph) RequiredBy(id nodes.ResourceID) []nodes.ResourceID {
	deps := dirgraph.AllDependencies(dg.graph, dirgraph.Identifier(id))
	out := make([]nodes.ResourceID, 0, len(deps))
	for _, v := range dirgraph.TopologicalSort(dg.graph) {
		if deps.Contains(v) {
			out = append(out, nodes.ResourceID(v))
		}
	}
	return out
}

// IsRequired reports whether anything depends on the given resource.
func (dg *DependencyGraph) IsRequired(id nodes.ResourceID) bool {
	return dg.graph.HasPredecessors(dirgraph.Identifier(id))
}

// UnusedResources returns the ids nothing depends on, excluding the entry
// id, ascending.
func (dg *DependencyGraph) UnusedResources(entry nodes.ResourceID) []nodes.ResourceID {
	var out []nodes.ResourceID
	for _, v := range dirgraph.InDegreeZero(dg.graph) {
		if nodes.ResourceID(v) != entry {
			out = append(out, nodes.ResourceID(v))
		}
	}
	return out
}

// DeletionOrder returns every resource in an order safe for deletion:
// dependents before their dependencies.
func (dg *DependencyGraph) DeletionOrder() []nodes.ResourceID {
	sorted := dirgraph.TopologicalSort(dg.graph)
	out := make([]nodes.ResourceID, 0, len(sorted))
	// topological order lists dependencies first; deletion wants the
	// reverse
	for i := len(sorted) - 1; i >= 0; i-- {
		out = append(out, nodes.ResourceID(sorted[i]))
	}
	return out
}

// WouldCreateCycle reports whether adding "from uses to" would close a
// reference cycle between functions.
func (dg *DependencyGraph) WouldCreateCycle(from, to nodes.ResourceID) bool {
	return dirgraph.IsDependingOn(dg.graph, dirgraph.Identifier(to), dirgraph.Identifier(from))
}
