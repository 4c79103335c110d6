package engine

import (
	"github.com/sympath/sympath/analysis/state"
	"github.com/sympath/sympath/utils"
)

// Node is an exploded graph node: the pairing of a program point and a
// program state. Nodes uniquely identify traversal frontier items; the
// visited set is keyed on their structural equality, which is what
// breaks cycles once a point is reached again with an observationally
// identical state.
type Node struct {
	Point Point
	State state.State
}

func (n Node) Equal(o Node) bool {
	return n.Point.Equal(o.Point) && n.State.Equal(o.State)
}

func (n Node) Hash() uint32 {
	return utils.HashCombine(n.Point.Hash(), n.State.Hash())
}

func (n Node) String() string {
	return n.Point.String() + " " + n.State.String()
}

var _ utils.HashableEq[Node] = Node{}
