package engine

import (
	"fmt"

	sym "github.com/sympath/sympath/analysis/symbolic"
	"github.com/sympath/sympath/utils"
)

// Point is a position in the control flow graph of the analyzed
// procedure: a block identifier and an offset into that block's
// instruction sequence. Points are totally ordered within a block by
// their offset. Distinct loop iterations revisit the same point with
// different states.
type Point struct {
	Block int
	Index int
}

func (p Point) Equal(o Point) bool {
	return p == o
}

func (p Point) Hash() uint32 {
	return utils.HashCombine(uint32(p.Block), uint32(p.Index))
}

func (p Point) String() string {
	return fmt.Sprintf("b%d.%d", p.Block, p.Index)
}

var _ utils.HashableEq[Point] = Point{}

// Edge is an outgoing CFG edge of a program point. Conditional edges
// carry the program symbol of the branch condition and the truth value
// the condition must have for the edge to be taken; the engine prunes
// the edge when the condition's symbolic value already carries a
// contradicting boolean constraint.
type Edge struct {
	To    Point
	Cond  sym.Symbol
	Truth bool
}

// Conditional checks whether the edge carries a branch condition.
func (e Edge) Conditional() bool {
	return e.Cond != nil
}
