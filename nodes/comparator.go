package nodes

import (
	"fmt"
	"sort"
	"strings"
)

// CompareModels reports whether two models are structurally equivalent:
// same node-kind multiset, same port-to-parameter wiring resolved by node
// kind and short names, and the same End signature. Node ids and unique
// names may differ between the two; only structure counts.
func CompareModels(a, b *Model) (bool, string) {
	if diff := compareKindMultiset(a, b); diff != "" {
		return false, diff
	}
	if diff := compareEndSignature(a, b); diff != "" {
		return false, diff
	}
	if diff := compareWiring(a, b); diff != "" {
		return false, diff
	}
	return true, ""
}

func compareKindMultiset(a, b *Model) string {
	count := func(m *Model) map[NodeKind]int {
		out := make(map[NodeKind]int)
		for _, n := range m.NodesByID() {
			out[n.Kind()]++
		}
		return out
	}
	ca, cb := count(a), count(b)
	for kind, n := range ca {
		if cb[kind] != n {
			return fmt.Sprintf("node kind %s: %d vs %d", kind, n, cb[kind])
		}
	}
	for kind, n := range cb {
		if ca[kind] != n {
			return fmt.Sprintf("node kind %s: %d vs %d", kind, ca[kind], n)
		}
	}
	return ""
}

func compareEndSignature(a, b *Model) string {
	endA, endB := a.EndNode(), b.EndNode()
	if (endA == nil) != (endB == nil) {
		return "one model is missing its End node"
	}
	if endA == nil {
		return ""
	}
	sig := func(end *Node) []string {
		var out []string
		end.Parameters(func(name string, p *Parameter) bool {
			out = append(out, name+":"+p.Type().String())
			return true
		})
		sort.Strings(out)
		return out
	}
	sa, sb := sig(endA), sig(endB)
	if strings.Join(sa, ",") != strings.Join(sb, ",") {
		return fmt.Sprintf("End signature differs: [%s] vs [%s]",
			strings.Join(sa, ","), strings.Join(sb, ","))
	}
	return ""
}

// compareWiring projects every link of a model into a structural triple
// "<producer kind>.<port> -> <consumer kind>.<param> (<type>)" and
// compares the resulting multisets.
func compareWiring(a, b *Model) string {
	links := func(m *Model) []string {
		var out []string
		m.Parameters(func(p *Parameter) bool {
			src := p.Source()
			if src == nil {
				return true
			}
			consumer, ok := m.GetNode(p.ParentID())
			if !ok {
				return true
			}
			producer, ok := m.GetNode(src.NodeID)
			if !ok {
				return true
			}
			out = append(out, fmt.Sprintf("%s.%s -> %s.%s (%s)",
				producer.Kind(), src.ShortName, consumer.Kind(), p.Name(), p.Type()))
			return true
		})
		sort.Strings(out)
		return out
	}
	la, lb := links(a), links(b)
	if len(la) != len(lb) {
		return fmt.Sprintf("link count differs: %d vs %d", len(la), len(lb))
	}
	for i := range la {
		if la[i] != lb[i] {
			return fmt.Sprintf("link differs: %q vs %q", la[i], lb[i])
		}
	}
	return ""
}
