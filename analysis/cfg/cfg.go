package cfg

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"

	"github.com/sympath/sympath/analysis/engine"

	"github.com/yourbasic/graph"
	"golang.org/x/tools/go/ssa"
)

// Cfg adapts the SSA body of one function to the engine's semantics
// provider contract. Program points index into the function's basic
// blocks and their instruction sequences; the intrinsic transfer
// effects translate SSA register, memory and call semantics into
// symbol bindings and operand stack traffic.
type Cfg struct {
	fn   *ssa.Function
	fset *token.FileSet

	// names maps SSA values to source-level identifiers, harvested from
	// debug references. Requires SSA built with ssa.GlobalDebug; without
	// it, display names fall back to register names.
	names map[ssa.Value]string

	// recv is the receiver parameter when the function is a method.
	recv *ssa.Parameter

	// prio orders blocks by the SCC condensation of the block graph, so
	// multi-successor scheduling follows a deterministic topological
	// discipline rather than raw successor order.
	prio []int

	cyclic bool

	// deferred collects the deferred disposal operations of the body in
	// block order. Scope exits (ssa.RunDefers) synthesize an implicit
	// disposal for each one the current path registered.
	deferred []DisposeOp
}

var _ engine.Source = (*Cfg)(nil)

// New adapts the given SSA function. The function must have a body;
// Validate reports the precise defect otherwise.
func New(fn *ssa.Function) *Cfg {
	c := &Cfg{
		fn:    fn,
		fset:  fn.Prog.Fset,
		names: make(map[ssa.Value]string),
	}

	if fn.Signature.Recv() != nil && len(fn.Params) > 0 {
		c.recv = fn.Params[0]
	}

	for _, b := range fn.Blocks {
		for _, insn := range b.Instrs {
			switch insn := insn.(type) {
			case *ssa.DebugRef:
				if id, ok := insn.Expr.(*ast.Ident); ok {
					if _, seen := c.names[insn.X]; !seen {
						c.names[insn.X] = id.Name
					}
				}
			case *ssa.Defer:
				if target, ok := recognizeDispose(insn.Common()); ok {
					c.deferred = append(c.deferred, DisposeOp{
						c:      c,
						insn:   insn,
						target: target,
						pos:    c.fset.Position(insn.Pos()),
					})
				}
			}
		}
	}

	c.computePriorities()
	return c
}

// Function returns the adapted SSA function.
func (c *Cfg) Function() *ssa.Function {
	return c.fn
}

// Cyclic reports whether the block graph contains a loop.
func (c *Cfg) Cyclic() bool {
	return c.cyclic
}

// computePriorities assigns each block the index of its strongly
// connected component in the condensation of the block graph. Blocks of
// the same component (a loop) share a priority; ties break on block
// index when ordering successor edges.
func (c *Cfg) computePriorities() {
	n := len(c.fn.Blocks)
	c.prio = make([]int, n)
	if n == 0 {
		return
	}

	g := graph.New(n)
	for _, b := range c.fn.Blocks {
		for _, succ := range b.Succs {
			g.Add(b.Index, succ.Index)
			if succ == b {
				c.cyclic = true
			}
		}
	}

	for ci, comp := range graph.StrongComponents(g) {
		if len(comp) > 1 {
			c.cyclic = true
		}
		for _, b := range comp {
			c.prio[b] = ci
		}
	}
}

// Validate checks well-formedness of the block graph: a body must
// exist, blocks must be non-empty and correctly indexed, edges must
// stay within the function, and every block must be reachable from
// entry. A malformed graph fails analysis before traversal starts.
func (c *Cfg) Validate() error {
	if len(c.fn.Blocks) == 0 {
		return fmt.Errorf("function %s has no body", c.fn)
	}

	for i, b := range c.fn.Blocks {
		if b.Index != i {
			return fmt.Errorf("function %s: block %d carries index %d", c.fn, i, b.Index)
		}
		if len(b.Instrs) == 0 {
			return fmt.Errorf("function %s: block %d is empty", c.fn, i)
		}
		for _, succ := range b.Succs {
			if succ.Parent() != c.fn {
				return fmt.Errorf("function %s: block %d has a dangling edge into %s", c.fn, i, succ.Parent())
			}
			if succ.Index < 0 || succ.Index >= len(c.fn.Blocks) {
				return fmt.Errorf("function %s: block %d has an edge to out-of-range block %d", c.fn, i, succ.Index)
			}
		}
	}

	reachable := make([]bool, len(c.fn.Blocks))
	var visit func(b *ssa.BasicBlock)
	visit = func(b *ssa.BasicBlock) {
		if reachable[b.Index] {
			return
		}
		reachable[b.Index] = true
		for _, succ := range b.Succs {
			visit(succ)
		}
	}
	visit(c.fn.Blocks[0])

	for i, ok := range reachable {
		if !ok {
			// Functions with defers carry a synthetic predecessor-less
			// recover block modelling the exceptional exit. It is never
			// scheduled and does not make the graph malformed.
			if c.fn.Recover != nil && i == c.fn.Recover.Index {
				continue
			}
			return fmt.Errorf("function %s: block %d is unreachable from entry", c.fn, i)
		}
	}

	return nil
}

// Entry is the first point of the function's entry block.
func (c *Cfg) Entry() engine.Point {
	return engine.Point{Block: 0, Index: 0}
}

func (c *Cfg) instr(p engine.Point) ssa.Instruction {
	return c.fn.Blocks[p.Block].Instrs[p.Index]
}

// BlockExit reports whether the point holds the last instruction of its
// block.
func (c *Cfg) BlockExit(p engine.Point) bool {
	return p.Index == len(c.fn.Blocks[p.Block].Instrs)-1
}

// Edges returns the outgoing edges of a point. Within a block the
// single successor is the next instruction; at block exits the edges
// follow the terminator, with branch conditions exposed as program
// symbols for feasibility pruning.
func (c *Cfg) Edges(p engine.Point) []engine.Edge {
	b := c.fn.Blocks[p.Block]
	if p.Index < len(b.Instrs)-1 {
		return []engine.Edge{{To: engine.Point{Block: p.Block, Index: p.Index + 1}}}
	}

	switch term := b.Instrs[p.Index].(type) {
	case *ssa.If:
		cond := RegisterSym{Val: term.Cond}
		return []engine.Edge{
			{To: engine.Point{Block: b.Succs[0].Index}, Cond: cond, Truth: true},
			{To: engine.Point{Block: b.Succs[1].Index}, Cond: cond, Truth: false},
		}
	case *ssa.Return, *ssa.Panic:
		return nil
	default:
		edges := make([]engine.Edge, 0, len(b.Succs))
		for _, succ := range b.Succs {
			edges = append(edges, engine.Edge{To: engine.Point{Block: succ.Index}})
		}
		sort.SliceStable(edges, func(i, j int) bool {
			bi, bj := edges[i].To.Block, edges[j].To.Block
			if c.prio[bi] != c.prio[bj] {
				return c.prio[bi] < c.prio[bj]
			}
			return bi < bj
		})
		return edges
	}
}

// InstructionAt wraps the instruction at a point, specializing the
// operations checks recognize: disposal calls, wrapper constructions
// and scope exits.
func (c *Cfg) InstructionAt(p engine.Point) engine.Instruction {
	insn := c.instr(p)
	base := Instr{c: c, insn: insn}

	switch insn := insn.(type) {
	case *ssa.Call:
		if target, ok := recognizeDispose(insn.Common()); ok {
			return DisposeCall{Instr: base, target: target}
		}
		if inner, leaveOpen, ok := recognizeWrapper(insn); ok {
			return WrapperCtor{Instr: base, call: insn, inner: inner, leaveOpen: leaveOpen}
		}
	case *ssa.RunDefers:
		return ScopeExit{Instr: base, ops: c.deferred}
	}

	return base
}
