package dirgraph

// DenseGraph stores edges in a row-major bit matrix of capacity n*n plus a
// per-vertex predecessor list. Edge tests are O(1); memory is O(n^2), so it
// fits graphs whose ids are small and dense. The capacity is fixed at
// construction; ids at or above the capacity are ignored.
type DenseGraph struct {
	matrix       []bool
	size         int
	vertices     map[Identifier]struct{}
	predecessors [][]Identifier
}

// NewDenseGraph creates a dense graph with capacity for ids 0..size-1.
func NewDenseGraph(size int) *DenseGraph {
	return &DenseGraph{
		matrix:       make([]bool, size*size),
		size:         size,
		vertices:     make(map[Identifier]struct{}),
		predecessors: make([][]Identifier, size),
	}
}

func (g *DenseGraph) inRange(id Identifier) bool {
	return id >= 0 && int(id) < g.size
}

// AddVertex registers a vertex. Ids outside the fixed capacity are ignored.
func (g *DenseGraph) AddVertex(id Identifier) {
	if !g.inRange(id) {
		return
	}
	g.vertices[id] = struct{}{}
}

// RemoveVertex removes id and every incident edge.
func (g *DenseGraph) RemoveVertex(id Identifier) {
	if !g.inRange(id) {
		return
	}
	if _, ok := g.vertices[id]; !ok {
		return
	}
	delete(g.vertices, id)
	for other := 0; other < g.size; other++ {
		g.clear(id, Identifier(other))
		g.clear(Identifier(other), id)
	}
	g.predecessors[id] = nil
	for i, preds := range g.predecessors {
		g.predecessors[i] = removeIdentifier(preds, id)
	}
}

// AddEdge adds from -> to. Both endpoints are registered as vertices.
// Self-loops are silently rejected.
func (g *DenseGraph) AddEdge(from, to Identifier) {
	if !g.inRange(from) || !g.inRange(to) || from == to {
		return
	}
	g.AddVertex(from)
	g.AddVertex(to)
	if g.at(from, to) {
		return
	}
	g.set(from, to)
	g.predecessors[to] = append(g.predecessors[to], from)
}

// RemoveEdge removes from -> to if present.
func (g *DenseGraph) RemoveEdge(from, to Identifier) {
	if !g.inRange(from) || !g.inRange(to) {
		return
	}
	if !g.at(from, to) {
		return
	}
	g.clear(from, to)
	g.predecessors[to] = removeIdentifier(g.predecessors[to], from)
}

// IsDirectlyDependingOn reports whether the edge from -> to exists.
func (g *DenseGraph) IsDirectlyDependingOn(from, to Identifier) bool {
	if !g.inRange(from) || !g.inRange(to) || from == to {
		return false
	}
	return g.at(from, to)
}

// HasPredecessors reports whether any edge ends at id.
func (g *DenseGraph) HasPredecessors(id Identifier) bool {
	if !g.inRange(id) {
		return false
	}
	return len(g.predecessors[id]) > 0
}

// Vertices returns the registered vertex set in unspecified order.
func (g *DenseGraph) Vertices() []Identifier {
	out := make([]Identifier, 0, len(g.vertices))
	for id := range g.vertices {
		out = append(out, id)
	}
	return out
}

// Size returns the fixed capacity of the matrix.
func (g *DenseGraph) Size() int {
	return g.size
}

func (g *DenseGraph) at(from, to Identifier) bool {
	return g.matrix[int(from)*g.size+int(to)]
}

func (g *DenseGraph) set(from, to Identifier) {
	g.matrix[int(from)*g.size+int(to)] = true
}

func (g *DenseGraph) clear(from, to Identifier) {
	g.matrix[int(from)*g.size+int(to)] = false
}

func removeIdentifier(list []Identifier, id Identifier) []Identifier {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

var _ DirectedGraph = (*DenseGraph)(nil)
