package engine

import (
	"go/token"
	"sort"

	"github.com/sympath/sympath/analysis/state"
)

// Step is the engine's callback payload: the program point being
// processed, the instruction at it (nil for synthetic points) and the
// state the path carries.
type Step struct {
	Point Point
	Instr Instruction
	State state.State
}

// WithState derives a step carrying a different state.
func (s Step) WithState(st state.State) Step {
	return Step{Point: s.Point, Instr: s.Instr, State: st}
}

// Check is a pluggable detector observing and transforming traversal.
// A concrete check additionally implements the hook capabilities it
// needs (PreInstruction, PostInstruction, PreBlockExit); the engine
// invokes only the declared subset, in registration order.
//
// Checks hold no engine state; cross-path bookkeeping lives in the
// per-procedure Context the engine hands to every hook.
type Check interface {
	// Name is the rule identifier attached to the check's findings.
	Name() string

	// SupportsPartialResults reports whether the check's findings are
	// still trustworthy when traversal stopped on budget exhaustion
	// before exhausting all paths. Checks that depend on exhaustive
	// coverage must return false; their findings are then suppressed
	// on partial runs rather than risking unsound conclusions.
	SupportsPartialResults() bool
}

type (
	// PreInstruction hooks run before the intrinsic effect of the
	// instruction at a point. The hook returns the continuation states
	// of the path: the input state for no-ops, transformed states for
	// constraint attachment, several states to fan out, or none to
	// prune the path as infeasible.
	PreInstruction interface {
		Check
		PreInstruction(*Context, Step) []state.State
	}

	// PostInstruction hooks run after the intrinsic effect, observing
	// the resulting state. Same fan-out contract as PreInstruction.
	PostInstruction interface {
		Check
		PostInstruction(*Context, Step) []state.State
	}

	// PreBlockExit hooks run at the last point of a block, before its
	// successors are computed. Same fan-out contract as PreInstruction.
	PreBlockExit interface {
		Check
		PreBlockExit(*Context, Step) []state.State
	}
)

// Context is the per-check finding accumulator for one analyzed
// procedure. Findings are deduplicated by source position: a call site
// reached along many paths, or duplicated structurally by CFG
// construction (normal and unwind variants of the same deferred call
// share their originating position), yields one finding.
type Context struct {
	rule     string
	findings map[token.Position]Finding
}

func newContext(rule string) *Context {
	return &Context{
		rule:     rule,
		findings: make(map[token.Position]Finding),
	}
}

// Report records a finding keyed by its source position. Re-reporting
// the same position keeps the first payload.
func (ctx *Context) Report(pos token.Position, message string) {
	if _, found := ctx.findings[pos]; found {
		return
	}
	ctx.findings[pos] = Finding{Pos: pos, Message: message, Rule: ctx.rule}
}

// Findings harvests the accumulated findings, ordered by position.
func (ctx *Context) Findings() []Finding {
	res := make([]Finding, 0, len(ctx.findings))
	for _, f := range ctx.findings {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].less(res[j])
	})
	return res
}
