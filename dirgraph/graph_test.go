package dirgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldforge/fieldforge/dirgraph"
)

// backings lets every contract test run against both implementations.
func backings() map[string]func() dirgraph.DirectedGraph {
	return map[string]func() dirgraph.DirectedGraph{
		"dense":  func() dirgraph.DirectedGraph { return dirgraph.NewDenseGraph(64) },
		"sparse": func() dirgraph.DirectedGraph { return dirgraph.NewSparseGraph() },
	}
}

func TestAddVertex_Idempotent(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddVertex(3)
			g.AddVertex(3)
			assert.Len(t, g.Vertices(), 1)
		})
	}
}

func TestAddEdge_RejectsSelfLoop(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(5, 5)
			assert.False(t, g.IsDirectlyDependingOn(5, 5))
			assert.False(t, dirgraph.IsCyclic(g))
		})
	}
}

func TestAddEdge_RegistersVertices(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(1, 2)
			require.True(t, g.IsDirectlyDependingOn(1, 2))
			assert.False(t, g.IsDirectlyDependingOn(2, 1))
			assert.ElementsMatch(t, []dirgraph.Identifier{1, 2}, g.Vertices())
			assert.True(t, g.HasPredecessors(2))
			assert.False(t, g.HasPredecessors(1))
		})
	}
}

func TestRemoveEdge(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(1, 2)
			g.RemoveEdge(1, 2)
			assert.False(t, g.IsDirectlyDependingOn(1, 2))
			assert.False(t, g.HasPredecessors(2))

			// removing a missing edge is a no-op
			g.RemoveEdge(7, 8)
		})
	}
}

func TestRemoveVertex_RemovesIncidentEdges(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(0, 1)
			g.AddEdge(1, 2)
			g.AddEdge(3, 1)

			g.RemoveVertex(1)

			assert.False(t, g.IsDirectlyDependingOn(0, 1))
			assert.False(t, g.IsDirectlyDependingOn(1, 2))
			assert.False(t, g.IsDirectlyDependingOn(3, 1))
			assert.False(t, g.HasPredecessors(2))
			assert.ElementsMatch(t, []dirgraph.Identifier{0, 2, 3}, g.Vertices())
		})
	}
}

func TestRemoveVertex_AbsentIsNoop(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddVertex(1)
			g.RemoveVertex(42)
			assert.Len(t, g.Vertices(), 1)
		})
	}
}

func TestDirectDependencies(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(0, 1)
			g.AddEdge(0, 2)
			g.AddEdge(2, 3)

			deps := dirgraph.DirectDependencies(g, 0)
			assert.True(t, deps.Contains(1))
			assert.True(t, deps.Contains(2))
			assert.False(t, deps.Contains(3))
		})
	}
}

func TestAllDependencies_Transitive(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(0, 1)
			g.AddEdge(1, 2)
			g.AddEdge(2, 3)

			deps := dirgraph.AllDependencies(g, 0)
			require.Len(t, deps, 3)
			assert.True(t, deps.Contains(3))
			assert.False(t, deps.Contains(0), "a vertex is not its own dependency")
		})
	}
}

func TestIsDependingOn(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(0, 1)
			g.AddEdge(1, 2)

			assert.True(t, dirgraph.IsDependingOn(g, 0, 2))
			assert.False(t, dirgraph.IsDependingOn(g, 2, 0))
			assert.False(t, dirgraph.IsDependingOn(g, 1, 1), "strict: false for a == b")
			assert.False(t, dirgraph.IsDependingOn(g, -1, 0))
		})
	}
}

func TestAddEdgeIfConflictFree(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			require.True(t, dirgraph.AddEdgeIfConflictFree(g, 0, 1))
			require.True(t, dirgraph.AddEdgeIfConflictFree(g, 1, 2))

			// 2 -> 0 would close a cycle
			assert.False(t, dirgraph.AddEdgeIfConflictFree(g, 2, 0))
			assert.False(t, g.IsDirectlyDependingOn(2, 0))
			assert.False(t, dirgraph.IsCyclic(g))
		})
	}
}

func TestTopologicalSort_DependenciesFirst(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			// 4 depends on 2 and 3; both depend on 1
			g.AddEdge(4, 2)
			g.AddEdge(4, 3)
			g.AddEdge(2, 1)
			g.AddEdge(3, 1)

			order := dirgraph.TopologicalSort(g)
			require.Len(t, order, 4)

			pos := make(map[dirgraph.Identifier]int)
			for i, id := range order {
				pos[id] = i
			}
			for _, edge := range [][2]dirgraph.Identifier{{4, 2}, {4, 3}, {2, 1}, {3, 1}} {
				assert.Greater(t, pos[edge[0]], pos[edge[1]],
					"dependency %d must precede dependent %d", edge[1], edge[0])
			}
		})
	}
}

func TestTopologicalSort_Deterministic(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			build := func() dirgraph.DirectedGraph {
				g := newGraph()
				g.AddEdge(5, 1)
				g.AddEdge(4, 1)
				g.AddEdge(3, 1)
				g.AddVertex(2)
				return g
			}
			first := dirgraph.TopologicalSort(build())
			for i := 0; i < 10; i++ {
				assert.Equal(t, first, dirgraph.TopologicalSort(build()))
			}
		})
	}
}

func TestDepthMap_KeepsMaxLevel(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			// two paths from 0 to 3: direct and via 1 -> 2
			g.AddEdge(0, 1)
			g.AddEdge(1, 2)
			g.AddEdge(2, 3)
			g.AddEdge(0, 3)

			depths := dirgraph.DepthMap(g, 0)
			assert.Equal(t, 0, depths[0])
			assert.Equal(t, 1, depths[1])
			assert.Equal(t, 2, depths[2])
			assert.Equal(t, 3, depths[3], "multi-path vertices keep the maximum level")
		})
	}
}

func TestInDegreeZero(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(0, 1)
			g.AddEdge(2, 1)
			g.AddVertex(3)

			assert.Equal(t, []dirgraph.Identifier{0, 2, 3}, dirgraph.InDegreeZero(g))
		})
	}
}

func TestIsCyclic(t *testing.T) {
	for name, newGraph := range backings() {
		t.Run(name, func(t *testing.T) {
			g := newGraph()
			g.AddEdge(0, 1)
			g.AddEdge(1, 2)
			assert.False(t, dirgraph.IsCyclic(g))

			g.AddEdge(2, 0)
			assert.True(t, dirgraph.IsCyclic(g))
		})
	}
}

func TestGraphViz_ContainsEdges(t *testing.T) {
	g := dirgraph.NewSparseGraph()
	g.AddEdge(1, 0)
	out := dirgraph.GraphViz(g)
	assert.Contains(t, out, "digraph G {")
	assert.Contains(t, out, "\"0\" -> \"1\"")
}
