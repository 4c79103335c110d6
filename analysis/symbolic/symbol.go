package symbolic

import (
	"github.com/sympath/sympath/utils"

	"github.com/benbjohnson/immutable"
)

// Symbol is a program symbol a state can bind to a symbolic value.
// Front ends implement Symbol for their own notions of registers and
// variables; the symbols below cover concepts shared by all front ends.
type Symbol interface {
	utils.Hashable
	EqualSym(Symbol) bool
	String() string
}

type symbolHasher struct{}

func (symbolHasher) Hash(s Symbol) uint32   { return s.Hash() }
func (symbolHasher) Equal(a, b Symbol) bool { return a.EqualSym(b) }

// SymbolHasher hashes and compares program symbols structurally.
func SymbolHasher() immutable.Hasher[Symbol] { return symbolHasher{} }

type (
	// CellSym denotes the contents of the memory cell a symbolic value
	// stands for. Stores and loads through pointers route through it.
	CellSym struct {
		Cell Value
	}

	// InnerSym denotes the inner resource wrapped by a forwarding
	// wrapper value.
	InnerSym struct {
		Wrapper Value
	}
)

func (s CellSym) Hash() uint32 {
	return utils.HashCombine(s.Cell.Hash(), 0x1)
}

func (s CellSym) EqualSym(o Symbol) bool {
	os, ok := o.(CellSym)
	return ok && s.Cell.Equal(os.Cell)
}

func (s CellSym) String() string {
	return "*" + s.Cell.String()
}

func (s InnerSym) Hash() uint32 {
	return utils.HashCombine(s.Wrapper.Hash(), 0x2)
}

func (s InnerSym) EqualSym(o Symbol) bool {
	os, ok := o.(InnerSym)
	return ok && s.Wrapper.Equal(os.Wrapper)
}

func (s InnerSym) String() string {
	return s.Wrapper.String() + ".inner"
}
