package cfg

import (
	"go/token"

	"github.com/sympath/sympath/analysis/constraint"
	"github.com/sympath/sympath/analysis/engine"
	"github.com/sympath/sympath/analysis/state"
	sym "github.com/sympath/sympath/analysis/symbolic"
	"github.com/sympath/sympath/utils"

	"golang.org/x/tools/go/ssa"
)

// siteID derives the stable identity of the symbolic value minted for
// an SSA value: register names are unique within a function, and the
// function string is unique within a program.
func (c *Cfg) siteID(v ssa.Value) uint32 {
	return utils.HashCombine(
		utils.HashString(c.fn.String()),
		utils.HashString(v.Name()))
}

// DisplayName resolves the source-level name of an SSA value, for use
// in diagnostics. Debug references take precedence; loads and interface
// conversions delegate to their operand.
func (c *Cfg) DisplayName(v ssa.Value) string {
	if n, ok := c.names[v]; ok {
		return n
	}
	switch v := v.(type) {
	case *ssa.Alloc:
		if v.Comment != "" {
			return v.Comment
		}
	case *ssa.Parameter:
		return v.Name()
	case *ssa.UnOp:
		if v.Op == token.MUL {
			return c.DisplayName(v.X)
		}
	case *ssa.MakeInterface:
		return c.DisplayName(v.X)
	}
	return v.Name()
}

func (c *Cfg) mint(v ssa.Value) sym.Value {
	if p, ok := v.(*ssa.Parameter); ok && c.recv != nil && p == c.recv {
		// The implicit receiver resolves to its canonical singleton, so
		// repeated disposal of the receiver shares one identity across
		// the whole procedure.
		return sym.Receiver()
	}
	return sym.ForSite(c.siteID(v), c.DisplayName(v))
}

// Eval resolves the symbolic value of an SSA value in a state, minting
// and binding one on first use. Nil constants additionally carry the
// nil constraint.
func (c *Cfg) Eval(st state.State, v ssa.Value) (state.State, sym.Value) {
	s := RegisterSym{Val: v}
	if sv, found := st.Lookup(s); found {
		return st, sv
	}

	sv := c.mint(v)
	st = st.Bind(s, sv)

	if k, ok := v.(*ssa.Const); ok && k.IsNil() {
		if st1, consistent := st.WithConstraint(sv, constraint.Nil); consistent {
			st = st1
		}
	}

	return st, sv
}

// Transfer applies the intrinsic effect of the instruction at a point:
// allocation mints cell values, stores and loads route through cell
// content symbols, conversions propagate identities, and calls push
// and pop their arguments over the operand stack.
func (c *Cfg) Transfer(p engine.Point, st state.State) (state.State, error) {
	switch insn := c.instr(p).(type) {
	case *ssa.Alloc:
		st, _ = c.Eval(st, insn)
		return st, nil

	case *ssa.Store:
		st, addr := c.Eval(st, insn.Addr)
		st, val := c.Eval(st, insn.Val)
		return st.Bind(sym.CellSym{Cell: addr}, val), nil

	case *ssa.UnOp:
		if insn.Op == token.MUL {
			return c.load(st, insn)
		}
		st, _ = c.Eval(st, insn)
		return st, nil

	case *ssa.MakeInterface:
		return c.propagate(st, insn, insn.X), nil
	case *ssa.ChangeInterface:
		return c.propagate(st, insn, insn.X), nil
	case *ssa.ChangeType:
		return c.propagate(st, insn, insn.X), nil
	case *ssa.Convert:
		return c.propagate(st, insn, insn.X), nil

	case *ssa.Defer:
		st, err := c.call(st, insn)
		if err != nil {
			return st, err
		}
		if target, ok := recognizeDispose(insn.Common()); ok {
			// Record the registration so scope exits on this path
			// replay the cleanup, with the target captured here.
			var v sym.Value
			st, v = c.Eval(st, target)
			st = st.Bind(DeferSym{Reg: insn}, v)
		}
		return st, nil

	case ssa.CallInstruction:
		return c.call(st, insn)

	case *ssa.If:
		// Bind the condition so edge feasibility can consult it.
		st, _ = c.Eval(st, insn.Cond)
		return st, nil

	case *ssa.Phi:
		// Bound when the incoming edge is crossed.
		return st, nil

	default:
		return st, nil
	}
}

// propagate binds the register of a conversion-like instruction to the
// symbolic value of its operand, preserving identity across the
// conversion.
func (c *Cfg) propagate(st state.State, reg, operand ssa.Value) state.State {
	st, sv := c.Eval(st, operand)
	return st.Bind(RegisterSym{Val: reg}, sv)
}

// load reads through the cell the address denotes, minting the cell
// contents on first access.
func (c *Cfg) load(st state.State, insn *ssa.UnOp) (state.State, error) {
	st, addr := c.Eval(st, insn.X)
	cell := sym.CellSym{Cell: addr}

	contents, found := st.Lookup(cell)
	if !found {
		contents = sym.ForSite(
			utils.HashCombine(addr.Hash(), 0x9),
			c.DisplayName(insn.X))
		st = st.Bind(cell, contents)
	}

	return st.Bind(RegisterSym{Val: insn}, contents), nil
}

// call evaluates the call's receiver and arguments through the operand
// stack and binds the result register to a fresh per-site value. The
// recognition of disposal and wrapper semantics is left to checks,
// which observe the call through its wrapped instruction.
func (c *Cfg) call(st state.State, insn ssa.CallInstruction) (state.State, error) {
	common := insn.Common()

	var operands []ssa.Value
	if common.IsInvoke() {
		operands = append(operands, common.Value)
	}
	operands = append(operands, common.Args...)

	for _, a := range operands {
		var v sym.Value
		st, v = c.Eval(st, a)
		st = st.PushOperand(v)
	}
	for range operands {
		var err error
		st, _, err = st.PopOperand()
		if err != nil {
			return st, err
		}
	}

	if call, ok := insn.(*ssa.Call); ok {
		st, _ = c.Eval(st, call)
	}
	return st, nil
}

// CrossEdge resolves the phi bindings of the target block against the
// incoming edge. Incoming values are all evaluated before any phi is
// rebound, preserving the simultaneous-assignment semantics of phi
// clusters.
func (c *Cfg) CrossEdge(from engine.Point, e engine.Edge, st state.State) (state.State, error) {
	if e.To.Index != 0 {
		// Intra-block step.
		return st, nil
	}

	to := c.fn.Blocks[e.To.Block]
	fromBlock := c.fn.Blocks[from.Block]

	predIdx := -1
	for i, pred := range to.Preds {
		if pred == fromBlock {
			predIdx = i
			break
		}
	}
	if predIdx < 0 {
		return st, nil
	}

	type phiBinding struct {
		phi *ssa.Phi
		v   sym.Value
	}
	var bindings []phiBinding
	for _, insn := range to.Instrs {
		phi, ok := insn.(*ssa.Phi)
		if !ok {
			// Phi nodes cluster at the start of a block.
			break
		}
		var v sym.Value
		st, v = c.Eval(st, phi.Edges[predIdx])
		bindings = append(bindings, phiBinding{phi, v})
	}
	for _, b := range bindings {
		st = st.Bind(RegisterSym{Val: b.phi}, b.v)
	}

	return st, nil
}
