// Package dispose implements the double-disposal detector: it tracks
// the disposal constraint of every resource along feasible paths and
// flags call sites that dispose an already disposed resource.
package dispose

import (
	"fmt"
	"go/token"

	"github.com/sympath/sympath/analysis/cfg"
	"github.com/sympath/sympath/analysis/constraint"
	"github.com/sympath/sympath/analysis/engine"
	"github.com/sympath/sympath/analysis/state"
	sym "github.com/sympath/sympath/analysis/symbolic"
)

// RuleName identifies the detector's findings.
const RuleName = "dispose-twice"

type Check struct{}

func New() Check {
	return Check{}
}

func (Check) Name() string {
	return RuleName
}

// SupportsPartialResults is true: a double disposal witnessed on an
// explored path remains a double disposal when other paths were cut by
// the budget.
func (Check) SupportsPartialResults() bool {
	return true
}

// PostInstruction observes the state right after the intrinsic call
// effect, so disposal constraints attach to the evaluated receiver.
func (c Check) PostInstruction(ctx *engine.Context, step engine.Step) []state.State {
	switch instr := step.Instr.(type) {
	case cfg.DisposeCall:
		st, v := instr.Resolve(step.State)
		return []state.State{c.apply(ctx, st, v, instr.TargetName(), instr.Pos())}

	case cfg.WrapperCtor:
		if instr.LeaveOpen() {
			// Statically suppressed forwarding: disposing the wrapper
			// must leave the inner resource untouched.
			return []state.State{step.State}
		}
		st, wrapper := instr.Wrapper(step.State)
		st, inner := instr.Inner(st)
		return []state.State{st.Bind(sym.InnerSym{Wrapper: wrapper}, inner)}

	case cfg.ScopeExit:
		// Synthesize the implicit disposal of every resource the
		// current path registered for deferred cleanup. Defers on
		// branches the path never took are skipped.
		st := step.State
		for _, op := range instr.Disposals() {
			v, ok := op.Registered(st)
			if !ok {
				continue
			}
			st = c.apply(ctx, st, v, op.TargetName(), op.Pos())
		}
		return []state.State{st}
	}

	return []state.State{step.State}
}

// apply performs the disposal logic on one symbolic value: report on
// re-disposal, ignore known-nil values, otherwise attach the disposed
// constraint and forward to a wrapped inner resource.
func (c Check) apply(ctx *engine.Context, st state.State, v sym.Value, name string, pos token.Position) state.State {
	cons := st.Constraints(v)

	if tag, found := cons.Get(constraint.DomainDisposal); found && tag.Equal(constraint.Disposed) {
		ctx.Report(pos, fmt.Sprintf("Refactor this code to make sure '%s' is disposed only once.", name))
		return st
	}

	if tag, found := cons.Get(constraint.DomainNilness); found && tag.Equal(constraint.Nil) {
		// Disposing a known-nil value is not this rule's concern.
		return st
	}

	st1, consistent := st.WithConstraint(v, constraint.Disposed)
	if !consistent {
		return st
	}

	if inner, found := st1.Lookup(sym.InnerSym{Wrapper: v}); found {
		st1 = c.apply(ctx, st1, inner, inner.Name(), pos)
	}
	return st1
}

var (
	_ engine.Check           = Check{}
	_ engine.PostInstruction = Check{}
)
