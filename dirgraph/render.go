package dirgraph

import (
	"fmt"
	"sort"
	"strings"
)

// String renders the adjacency structure as a tab-separated matrix with an
// X at (row, col) when col depends on row. Intended for debug logs.
func String(g DirectedGraph) string {
	var sb strings.Builder
	sb.WriteString("\n\t\t")
	size := g.Size()
	for col := 0; col < size; col++ {
		fmt.Fprintf(&sb, "%d\t", col)
	}
	sb.WriteString("\n" + strings.Repeat("_", 120) + "\n")

	for row := 0; row < size; row++ {
		fmt.Fprintf(&sb, "%d\t|\t", row)
		for col := 0; col < size; col++ {
			if g.IsDirectlyDependingOn(Identifier(col), Identifier(row)) {
				sb.WriteString("X\t")
			} else {
				sb.WriteString(" \t")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// GraphViz renders the graph in dot syntax, arrows pointing from a
// dependency to its dependents.
func GraphViz(g DirectedGraph) string {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	for _, vertex := range sortedVertices(g) {
		deps := make([]Identifier, 0)
		for dep := range DirectDependencies(g, vertex) {
			deps = append(deps, dep)
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		for _, dep := range deps {
			fmt.Fprintf(&sb, "\t \"%d\" -> \"%d\"\n", dep, vertex)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
