package engine

import (
	"fmt"
	"go/token"
	"sort"

	"github.com/sympath/sympath/analysis/constraint"
	"github.com/sympath/sympath/analysis/state"
	"github.com/sympath/sympath/utils/hmap"
	"github.com/sympath/sympath/utils/worklist"
)

// DefaultBudget bounds the number of dequeued steps per traversal when
// no explicit budget is configured.
const DefaultBudget = 25000

// Engine explores the exploded graph of one procedure: the product of
// its program points and the program states reachable at them. One
// engine instance drives one traversal; concurrent procedure analyses
// each get their own engine, states and checks, so the engine itself
// needs no locking.
type Engine struct {
	src    Source
	checks []Check
	budget int
	graph  *Graph
}

// New creates an engine for the given semantics provider and checks.
// Checks run in registration order at every step.
func New(src Source, checks ...Check) *Engine {
	return &Engine{
		src:    src,
		checks: checks,
		budget: DefaultBudget,
	}
}

// WithBudget bounds the number of dequeued steps. Exhausting the budget
// terminates traversal early with a partial result.
func (e *Engine) WithBudget(budget int) *Engine {
	e.budget = budget
	return e
}

// WithGraphRecording records the explored exploded graph for later
// rendering.
func (e *Engine) WithGraphRecording() *Engine {
	e.graph = newGraph()
	return e
}

// Graph returns the recorded exploded graph, or nil when recording was
// not enabled.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Run performs the worklist traversal and harvests the findings of all
// checks. It fails without traversing when the provider's graph is
// malformed; every other failure mode is surfaced through the findings
// (internal failure diagnostics) or the Partial flag.
func (e *Engine) Run() (*Result, error) {
	if err := e.src.Validate(); err != nil {
		return nil, fmt.Errorf("malformed control flow graph: %w", err)
	}

	ctxs := make([]*Context, len(e.checks))
	for i, c := range e.checks {
		ctxs[i] = newContext(c.Name())
	}
	failures := newContext(InternalFailureRule)

	entry := Node{Point: e.src.Entry(), State: state.Empty()}
	visited := hmap.NewHashableMap[struct{}, Node]()
	visited.Set(entry, struct{}{})

	W := worklist.Empty[Node]()
	W.Add(entry)

	steps := 0
	partial := false
	for !W.IsEmpty() {
		if steps >= e.budget {
			partial = true
			break
		}
		steps++

		n := W.GetNext()
		e.process(n, ctxs, failures, func(succ Node) {
			if _, seen := visited.GetOk(succ); seen {
				return
			}
			visited.Set(succ, struct{}{})
			W.Add(succ)
		})
	}

	findings := failures.Findings()
	for i, c := range e.checks {
		if partial && !c.SupportsPartialResults() {
			continue
		}
		findings = append(findings, ctxs[i].Findings()...)
	}
	sort.Slice(findings, func(i, j int) bool {
		return findings[i].less(findings[j])
	})

	return &Result{
		Findings: findings,
		Partial:  partial,
		Steps:    steps,
		Visited:  visited.Len(),
	}, nil
}

// process runs the hook and transfer pipeline of one exploded node and
// schedules its feasible successors. A panic escaping a hook or the
// semantics provider is converted into an internal failure finding; the
// path is dropped, the traversal continues.
func (e *Engine) process(n Node, ctxs []*Context, failures *Context, schedule func(Node)) {
	instr := e.src.InstructionAt(n.Point)

	defer func() {
		if err := recover(); err != nil {
			failures.Report(instrPos(instr), fmt.Sprintf("check or semantics failure at %s: %v", n.Point, err))
		}
	}()

	step := Step{Point: n.Point, Instr: instr, State: n.State}
	exiting := e.src.BlockExit(n.Point)

	// Pre-instruction hooks, then pre-block-exit hooks on block exits.
	states := []state.State{n.State}
	states = e.runHooks(states, step, ctxs, func(c Check) (hookFn, bool) {
		h, ok := c.(PreInstruction)
		if !ok {
			return nil, false
		}
		return h.PreInstruction, true
	})
	if exiting {
		states = e.runHooks(states, step, ctxs, func(c Check) (hookFn, bool) {
			h, ok := c.(PreBlockExit)
			if !ok {
				return nil, false
			}
			return h.PreBlockExit, true
		})
	}
	if len(states) == 0 {
		// All paths through this node were pruned as infeasible.
		return
	}

	// Intrinsic instruction semantics.
	transferred := make([]state.State, 0, len(states))
	for _, st := range states {
		st1, err := e.src.Transfer(n.Point, st)
		if err != nil {
			failures.Report(instrPos(instr), err.Error())
			continue
		}
		transferred = append(transferred, st1)
	}

	// Post-instruction hooks observe the resulting states.
	transferred = e.runHooks(transferred, step, ctxs, func(c Check) (hookFn, bool) {
		h, ok := c.(PostInstruction)
		if !ok {
			return nil, false
		}
		return h.PostInstruction, true
	})

	edges := e.src.Edges(n.Point)
	for _, st := range transferred {
		for _, edge := range edges {
			st1, feasible := e.takeEdge(edge, st)
			if !feasible {
				continue
			}

			st2, err := e.src.CrossEdge(n.Point, edge, st1)
			if err != nil {
				failures.Report(instrPos(instr), err.Error())
				continue
			}

			succ := Node{Point: edge.To, State: st2}
			if e.graph != nil {
				e.graph.addEdge(n, succ)
			}
			schedule(succ)
		}
	}
}

// takeEdge evaluates edge feasibility against the state. A conditional
// edge is infeasible when the condition's symbolic value already
// carries the opposite boolean constraint; on the taken edge the
// required truth value is stamped onto the condition's value, so the
// two branch continuations of one path can never be rejoined with
// contradictory assumptions.
func (e *Engine) takeEdge(edge Edge, st state.State) (state.State, bool) {
	if !edge.Conditional() {
		return st, true
	}

	v, bound := st.Lookup(edge.Cond)
	if !bound {
		// Unconstrained condition: both branches stay feasible.
		return st, true
	}

	return st.WithConstraint(v, constraint.BoolConstraint(edge.Truth))
}

type hookFn = func(*Context, Step) []state.State

// runHooks fans the states of one path out through the selected hook of
// every registered check, in registration order. An empty result prunes
// the path.
func (e *Engine) runHooks(
	states []state.State,
	step Step,
	ctxs []*Context,
	sel func(Check) (hookFn, bool),
) []state.State {
	for i, c := range e.checks {
		h, ok := sel(c)
		if !ok {
			continue
		}

		next := make([]state.State, 0, len(states))
		for _, st := range states {
			next = append(next, h(ctxs[i], step.WithState(st))...)
		}
		states = next
		if len(states) == 0 {
			return nil
		}
	}
	return states
}

func instrPos(instr Instruction) token.Position {
	if instr == nil {
		return token.Position{}
	}
	return instr.Pos()
}
