package engine_test

import (
	"errors"
	"go/token"
	"reflect"
	"strings"
	"testing"

	"github.com/sympath/sympath/analysis/constraint"
	"github.com/sympath/sympath/analysis/engine"
	"github.com/sympath/sympath/analysis/state"
	sym "github.com/sympath/sympath/analysis/symbolic"
)

// instr is a synthetic instruction with a position derived from its
// point, so finding deduplication behaves as it would on real code.
type instr struct {
	point engine.Point
}

func (i instr) Pos() token.Position {
	return token.Position{Filename: "fake.go", Line: 1 + i.point.Block*100 + i.point.Index, Column: 1}
}

func (i instr) String() string {
	return i.point.String()
}

// program is a hand-built semantics provider. Blocks are lists of
// no-op instructions; per-point transfer overrides and per-block
// terminator edges shape the behavior under test.
type program struct {
	sizes      []int
	successors map[int][]engine.Edge
	transfer   map[engine.Point]func(state.State) (state.State, error)
	invalid    error
}

func (p *program) Validate() error {
	return p.invalid
}

func (p *program) Entry() engine.Point {
	return engine.Point{}
}

func (p *program) InstructionAt(pt engine.Point) engine.Instruction {
	return instr{pt}
}

func (p *program) BlockExit(pt engine.Point) bool {
	return pt.Index == p.sizes[pt.Block]-1
}

func (p *program) Transfer(pt engine.Point, st state.State) (state.State, error) {
	if f, found := p.transfer[pt]; found {
		return f(st)
	}
	return st, nil
}

func (p *program) Edges(pt engine.Point) []engine.Edge {
	if !p.BlockExit(pt) {
		return []engine.Edge{{To: engine.Point{Block: pt.Block, Index: pt.Index + 1}}}
	}
	return p.successors[pt.Block]
}

func (p *program) CrossEdge(_ engine.Point, _ engine.Edge, st state.State) (state.State, error) {
	return st, nil
}

var _ engine.Source = (*program)(nil)

// spyCheck makes hook behavior pluggable per test. A nil hook is a
// passthrough.
type spyCheck struct {
	name    string
	partial bool
	pre     func(*engine.Context, engine.Step) []state.State
	post    func(*engine.Context, engine.Step) []state.State
}

func (c *spyCheck) Name() string {
	if c.name == "" {
		return "spy"
	}
	return c.name
}

func (c *spyCheck) SupportsPartialResults() bool {
	return c.partial
}

func (c *spyCheck) PreInstruction(ctx *engine.Context, step engine.Step) []state.State {
	if c.pre == nil {
		return []state.State{step.State}
	}
	return c.pre(ctx, step)
}

func (c *spyCheck) PostInstruction(ctx *engine.Context, step engine.Step) []state.State {
	if c.post == nil {
		return []state.State{step.State}
	}
	return c.post(ctx, step)
}

// visitedPoints runs the program to completion and records every
// processed point.
func visitedPoints(t *testing.T, p *program) map[engine.Point]int {
	t.Helper()

	points := map[engine.Point]int{}
	spy := &spyCheck{post: func(_ *engine.Context, step engine.Step) []state.State {
		points[step.Point]++
		return []state.State{step.State}
	}}

	res, err := engine.New(p, spy).Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.Partial {
		t.Fatal("expected a complete traversal")
	}
	return points
}

func TestLoopTermination(t *testing.T) {
	// b0 and b1 jump to each other forever. State never changes, so the
	// visited set must cut the cycle after one round trip.
	p := &program{
		sizes: []int{1, 1},
		successors: map[int][]engine.Edge{
			0: {{To: engine.Point{Block: 1}}},
			1: {{To: engine.Point{Block: 0}}},
		},
	}

	res, err := engine.New(p).Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.Partial {
		t.Error("cycle with stable states must terminate within budget")
	}
	if res.Visited != 2 {
		t.Errorf("expected 2 exploded nodes, got %d", res.Visited)
	}
}

func TestDeterminism(t *testing.T) {
	v := sym.ForSite(1, "x")
	cond := sym.CellSym{Cell: sym.ForSite(9, "cond")}

	// A diamond: both branches reachable, both rejoin in b3.
	p := &program{
		sizes: []int{1, 1, 1, 1},
		successors: map[int][]engine.Edge{
			0: {
				{To: engine.Point{Block: 1}, Cond: cond, Truth: true},
				{To: engine.Point{Block: 2}, Cond: cond, Truth: false},
			},
			1: {{To: engine.Point{Block: 3}}},
			2: {{To: engine.Point{Block: 3}}},
		},
		transfer: map[engine.Point]func(state.State) (state.State, error){
			{Block: 0}: func(st state.State) (state.State, error) {
				return st.Bind(cond, v), nil
			},
		},
	}

	run := func() *engine.Result {
		spy := &spyCheck{post: func(ctx *engine.Context, step engine.Step) []state.State {
			if step.Point.Block == 3 {
				ctx.Report(step.Instr.Pos(), "join point reached")
			}
			return []state.State{step.State}
		}}
		res, err := engine.New(p, spy).Run()
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	r1, r2 := run(), run()
	if r1.Steps != r2.Steps || r1.Visited != r2.Visited {
		t.Errorf("traversal size differs between runs: (%d, %d) vs (%d, %d)",
			r1.Steps, r1.Visited, r2.Steps, r2.Visited)
	}
	if !reflect.DeepEqual(r1.Findings, r2.Findings) {
		t.Errorf("findings differ between runs:\n%v\nvs\n%v", r1.Findings, r2.Findings)
	}
	if len(r1.Findings) != 1 {
		t.Errorf("expected a single deduplicated finding, got %v", r1.Findings)
	}
}

func TestBranchPruning(t *testing.T) {
	v := sym.ForSite(1, "x")
	cond := sym.CellSym{Cell: sym.ForSite(9, "cond")}

	p := &program{
		sizes: []int{1, 1, 1},
		successors: map[int][]engine.Edge{
			0: {
				{To: engine.Point{Block: 1}, Cond: cond, Truth: true},
				{To: engine.Point{Block: 2}, Cond: cond, Truth: false},
			},
		},
	}

	// Unconstrained condition: both branches explored.
	p.transfer = map[engine.Point]func(state.State) (state.State, error){
		{Block: 0}: func(st state.State) (state.State, error) {
			return st.Bind(cond, v), nil
		},
	}
	points := visitedPoints(t, p)
	if points[engine.Point{Block: 1}] == 0 || points[engine.Point{Block: 2}] == 0 {
		t.Error("both branches of an unconstrained condition must be explored")
	}

	// Condition known true: the false branch is infeasible.
	p.transfer = map[engine.Point]func(state.State) (state.State, error){
		{Block: 0}: func(st state.State) (state.State, error) {
			st = st.Bind(cond, v)
			st, _ = st.WithConstraint(v, constraint.True)
			return st, nil
		},
	}
	points = visitedPoints(t, p)
	if points[engine.Point{Block: 1}] == 0 {
		t.Error("the true branch of a known-true condition must be explored")
	}
	if points[engine.Point{Block: 2}] != 0 {
		t.Error("the false branch of a known-true condition must be pruned")
	}
}

func TestHookPruning(t *testing.T) {
	p := &program{
		sizes:      []int{2},
		successors: map[int][]engine.Edge{},
	}

	reached := false
	gate := &spyCheck{pre: func(_ *engine.Context, step engine.Step) []state.State {
		if step.Point.Index == 0 {
			return nil
		}
		reached = true
		return []state.State{step.State}
	}}

	res, err := engine.New(p, gate).Run()
	if err != nil {
		t.Fatal(err)
	}
	if reached {
		t.Error("pruned path must not reach later instructions")
	}
	if res.Visited != 1 {
		t.Errorf("expected only the entry node, got %d", res.Visited)
	}
}

func TestBudgetYieldsPartialResult(t *testing.T) {
	// A self loop whose state grows every iteration, so the visited set
	// never cuts it off.
	p := &program{
		sizes: []int{1},
		successors: map[int][]engine.Edge{
			0: {{To: engine.Point{Block: 0}}},
		},
		transfer: map[engine.Point]func(state.State) (state.State, error){
			{Block: 0}: func(st state.State) (state.State, error) {
				return st.PushOperand(sym.ForSite(1, "v")), nil
			},
		},
	}

	report := func(ctx *engine.Context, step engine.Step) []state.State {
		ctx.Report(step.Instr.Pos(), "observed")
		return []state.State{step.State}
	}
	tolerant := &spyCheck{name: "tolerant", partial: true, post: report}
	strict := &spyCheck{name: "strict", partial: false, post: report}

	res, err := engine.New(p, tolerant, strict).WithBudget(10).Run()
	if err != nil {
		t.Fatal(err)
	}
	if !res.Partial {
		t.Fatal("expected budget exhaustion")
	}
	if res.Steps != 10 {
		t.Errorf("expected exactly 10 steps, got %d", res.Steps)
	}

	rules := map[string]int{}
	for _, f := range res.Findings {
		rules[f.Rule]++
	}
	if rules["tolerant"] != 1 {
		t.Errorf("expected one finding from the partial-tolerant check, got %d", rules["tolerant"])
	}
	if rules["strict"] != 0 {
		t.Errorf("partial-intolerant findings must be suppressed, got %d", rules["strict"])
	}
}

func TestHookPanicBecomesInternalFailure(t *testing.T) {
	p := &program{
		sizes:      []int{2},
		successors: map[int][]engine.Edge{},
	}

	bomb := &spyCheck{name: "bomb", partial: true, post: func(_ *engine.Context, step engine.Step) []state.State {
		if step.Point.Index == 1 {
			panic("boom")
		}
		return []state.State{step.State}
	}}

	res, err := engine.New(p, bomb).Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.Partial {
		t.Error("a panicking hook must not abort the traversal")
	}

	failures := res.InternalFailures()
	if len(failures) != 1 {
		t.Fatalf("expected one internal failure finding, got %v", res.Findings)
	}
	if failures[0].Rule != engine.InternalFailureRule {
		t.Errorf("unexpected rule %q", failures[0].Rule)
	}
	if !strings.Contains(failures[0].Message, "boom") {
		t.Errorf("failure message should carry the panic value, got %q", failures[0].Message)
	}
}

func TestMalformedSource(t *testing.T) {
	p := &program{invalid: errors.New("dangling successor edge")}

	if _, err := engine.New(p).Run(); err == nil {
		t.Fatal("expected an error for a malformed graph")
	} else if !strings.Contains(err.Error(), "malformed control flow graph") {
		t.Errorf("unexpected error: %v", err)
	}
}
