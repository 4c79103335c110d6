package engine

import (
	"go/token"

	"github.com/sympath/sympath/analysis/state"
)

// Instruction is the engine's view of the instruction at a program
// point. Checks type-assert it to front end specific instruction types
// to recognize the operations they care about.
type Instruction interface {
	// Pos is the source position of the instruction, used for keying
	// findings. Front ends must report positions deterministically so
	// finding keys are stable across runs.
	Pos() token.Position
	String() string
}

// Source is the CFG/semantics provider driving an exploded graph
// traversal: it supplies the block graph of one procedure body, the
// intrinsic effect of each instruction, and the branch structure. The
// engine owns path enumeration and state management; the source owns
// everything front end specific.
type Source interface {
	// Validate checks well-formedness of the graph: an entry block must
	// exist, all edges must stay in range and every block must be
	// reachable from entry. Traversal never starts on a malformed graph.
	Validate() error

	// Entry is the program point traversal starts from.
	Entry() Point

	// InstructionAt returns the instruction at the given point, or nil
	// for synthetic points with no instruction.
	InstructionAt(Point) Instruction

	// BlockExit reports whether the point is the last point of its
	// block, i. e. whether its successors cross a block boundary.
	BlockExit(Point) bool

	// Transfer applies the intrinsic effect of the instruction at the
	// point to the state: operand stack manipulation, symbol binding,
	// symbolic value allocation. It must not mutate the input state.
	Transfer(Point, state.State) (state.State, error)

	// Edges returns the outgoing edges of the point in deterministic
	// scheduling order.
	Edges(Point) []Edge

	// CrossEdge adjusts a state for entering the target block of an
	// edge, e. g. resolving phi bindings that depend on the incoming
	// edge. Called after Edges feasibility pruning, with the point the
	// edge originates from.
	CrossEdge(from Point, e Edge, st state.State) (state.State, error)
}
