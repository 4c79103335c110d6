package cfg

import (
	sym "github.com/sympath/sympath/analysis/symbolic"
	"github.com/sympath/sympath/utils"

	"golang.org/x/tools/go/ssa"
)

// RegisterSym is the program symbol of an SSA register or constant.
// Identity follows the SSA value, which the builder keeps stable for
// the lifetime of the program.
type RegisterSym struct {
	Val ssa.Value
}

func (s RegisterSym) Hash() uint32 {
	return utils.PointerHasher[ssa.Value]{}.Hash(s.Val)
}

func (s RegisterSym) EqualSym(o sym.Symbol) bool {
	os, ok := o.(RegisterSym)
	return ok && os.Val == s.Val
}

func (s RegisterSym) String() string {
	return s.Val.Name()
}

// DeferSym marks the path-local registration of a deferred disposal.
// It is bound when traversal crosses the registering defer, capturing
// the disposal target, and consulted at scope exits so only cleanups
// the current path registered are replayed.
type DeferSym struct {
	Reg *ssa.Defer
}

func (s DeferSym) Hash() uint32 {
	return utils.HashCombine(utils.PointerHasher[*ssa.Defer]{}.Hash(s.Reg), 0x5)
}

func (s DeferSym) EqualSym(o sym.Symbol) bool {
	os, ok := o.(DeferSym)
	return ok && os.Reg == s.Reg
}

func (s DeferSym) String() string {
	return "defer " + s.Reg.String()
}

var (
	_ sym.Symbol = RegisterSym{}
	_ sym.Symbol = DeferSym{}
)
