package engine

import (
	"fmt"
	"strings"

	"github.com/sympath/sympath/utils/hmap"
)

// Graph is the recorded exploded graph of a traversal: every scheduled
// (point, state) pair in discovery order, plus the transition edges
// between them. Its renderings are deterministic, which makes them
// suitable for golden tests and debugging.
type Graph struct {
	nodes []Node
	index *hmap.Map[Node, int]
	edges [][2]int
	seen  map[[2]int]struct{}
}

func newGraph() *Graph {
	return &Graph{
		index: hmap.NewHashableMap[int, Node](),
		seen:  make(map[[2]int]struct{}),
	}
}

func (g *Graph) touch(n Node) int {
	if i, found := g.index.GetOk(n); found {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.index.Set(n, i)
	return i
}

func (g *Graph) addEdge(from, to Node) {
	e := [2]int{g.touch(from), g.touch(to)}
	if _, dup := g.seen[e]; dup {
		return
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
}

// Size returns the number of recorded exploded nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// String renders the graph as a stable textual listing: one line per
// node in discovery order, then one line per transition.
func (g *Graph) String() string {
	var sb strings.Builder
	for i, n := range g.nodes {
		fmt.Fprintf(&sb, "n%d: %s\n", i, n.String())
	}
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "n%d -> n%d\n", e[0], e[1])
	}
	return sb.String()
}

// Dot renders the graph in Graphviz dot syntax.
func (g *Graph) Dot() []byte {
	var sb strings.Builder
	sb.WriteString("digraph exploded {\n")
	sb.WriteString("  node [shape=box fontname=\"monospace\"];\n")
	for i, n := range g.nodes {
		fmt.Fprintf(&sb, "  n%d [label=%q];\n", i, n.String())
	}
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "  n%d -> n%d;\n", e[0], e[1])
	}
	sb.WriteString("}\n")
	return []byte(sb.String())
}
