package cfg

import (
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"github.com/sympath/sympath/analysis/engine"
	"github.com/sympath/sympath/analysis/state"
	sym "github.com/sympath/sympath/analysis/symbolic"

	"golang.org/x/tools/go/ssa"
)

// Instr is the engine-facing wrapper of one SSA instruction.
type Instr struct {
	c    *Cfg
	insn ssa.Instruction
}

func (i Instr) Pos() token.Position {
	return i.c.fset.Position(i.insn.Pos())
}

func (i Instr) String() string {
	return i.insn.String()
}

// Unwrap exposes the underlying SSA instruction.
func (i Instr) Unwrap() ssa.Instruction {
	return i.insn
}

var _ engine.Instruction = Instr{}

type (
	// DisposeCall is a recognized disposal operation: a nullary Close or
	// Dispose method call on some receiver.
	DisposeCall struct {
		Instr
		target ssa.Value
	}

	// WrapperCtor is a recognized construction of a wrapper around an
	// inner disposable resource, with a trailing boolean argument that
	// suppresses disposal forwarding when statically true.
	WrapperCtor struct {
		Instr
		call      *ssa.Call
		inner     ssa.Value
		leaveOpen bool
	}

	// ScopeExit is the run of the deferred cleanups at procedure exit:
	// the Go shape of a resource scope construct. It synthesizes an
	// implicit disposal for every deferred disposal the body registers.
	ScopeExit struct {
		Instr
		ops []DisposeOp
	}

	// DisposeOp is one deferred disposal operation: the resource it
	// targets and the position of the registering defer.
	DisposeOp struct {
		c      *Cfg
		insn   *ssa.Defer
		target ssa.Value
		pos    token.Position
	}
)

// Resolve evaluates the disposal target to its symbolic value.
func (d DisposeCall) Resolve(st state.State) (state.State, sym.Value) {
	return d.c.Eval(st, d.target)
}

// TargetName is the display name of the disposed resource.
func (d DisposeCall) TargetName() string {
	return d.c.DisplayName(d.target)
}

// LeaveOpen reports whether disposal forwarding to the inner resource
// is statically suppressed.
func (w WrapperCtor) LeaveOpen() bool {
	return w.leaveOpen
}

// Wrapper evaluates the constructed wrapper's symbolic value.
func (w WrapperCtor) Wrapper(st state.State) (state.State, sym.Value) {
	return w.c.Eval(st, w.call)
}

// Inner evaluates the wrapped resource's symbolic value.
func (w WrapperCtor) Inner(st state.State) (state.State, sym.Value) {
	return w.c.Eval(st, w.inner)
}

// Disposals returns the deferred disposal operations synthesized at
// this scope exit.
func (s ScopeExit) Disposals() []DisposeOp {
	return s.ops
}

// Registered reports whether the current path crossed the registering
// defer, and if so returns the disposal target captured there. A scope
// exit replays only the cleanups the path registered.
func (o DisposeOp) Registered(st state.State) (sym.Value, bool) {
	return st.Lookup(DeferSym{Reg: o.insn})
}

// Pos is the position of the registering defer, which keys the
// synthesized disposal's findings. CFG construction may duplicate the
// cleanup region; duplicates share this position and deduplicate.
func (o DisposeOp) Pos() token.Position {
	return o.pos
}

// TargetName is the display name of the deferred resource.
func (o DisposeOp) TargetName() string {
	return o.c.DisplayName(o.target)
}

// recognizeDispose matches nullary Close/Dispose method calls and
// returns the receiver they dispose.
func recognizeDispose(common *ssa.CallCommon) (target ssa.Value, ok bool) {
	if common.IsInvoke() {
		if !isDisposeName(common.Method.Name()) {
			return nil, false
		}
		if sig, ok := common.Method.Type().(*types.Signature); !ok || sig.Params().Len() != 0 {
			return nil, false
		}
		return common.Value, true
	}

	callee := common.StaticCallee()
	if callee == nil || callee.Signature.Recv() == nil || !isDisposeName(callee.Name()) {
		return nil, false
	}
	// A method value call carries only the receiver.
	if len(common.Args) != 1 {
		return nil, false
	}
	return common.Args[0], true
}

func isDisposeName(name string) bool {
	return name == "Close" || name == "Dispose"
}

// recognizeWrapper matches constructor calls of forwarding wrapper
// types: a non-method function named New* whose first argument is a
// disposable resource and whose last argument is a boolean suppression
// flag. The flag counts as statically set only when it is a constant.
func recognizeWrapper(call *ssa.Call) (inner ssa.Value, leaveOpen, ok bool) {
	common := call.Common()
	if common.IsInvoke() {
		return nil, false, false
	}

	callee := common.StaticCallee()
	if callee == nil || callee.Signature.Recv() != nil {
		return nil, false, false
	}
	if name := callee.Name(); !strings.HasPrefix(name, "New") && !strings.HasPrefix(name, "new") {
		return nil, false, false
	}
	if len(common.Args) < 2 {
		return nil, false, false
	}

	last := common.Args[len(common.Args)-1]
	if basic, isBasic := last.Type().Underlying().(*types.Basic); !isBasic || basic.Kind() != types.Bool && basic.Kind() != types.UntypedBool {
		return nil, false, false
	}

	first := common.Args[0]
	if !hasDisposeMethod(first.Type()) {
		return nil, false, false
	}

	if k, isConst := last.(*ssa.Const); isConst && k.Value != nil && constant.BoolVal(k.Value) {
		leaveOpen = true
	}
	return first, leaveOpen, true
}

// hasDisposeMethod checks whether a type (or its pointer) carries a
// Close or Dispose method.
func hasDisposeMethod(t types.Type) bool {
	if methodSetHasDispose(t) {
		return true
	}
	if _, isPtr := t.Underlying().(*types.Pointer); !isPtr {
		return methodSetHasDispose(types.NewPointer(t))
	}
	return false
}

func methodSetHasDispose(t types.Type) bool {
	ms := types.NewMethodSet(t)
	for i := 0; i < ms.Len(); i++ {
		if isDisposeName(ms.At(i).Obj().Name()) {
			return true
		}
	}
	return false
}
