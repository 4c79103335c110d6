package state

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sympath/sympath/analysis/constraint"
	sym "github.com/sympath/sympath/analysis/symbolic"
	"github.com/sympath/sympath/utils"

	"github.com/benbjohnson/immutable"
)

// ErrEmptyOperandStack is returned when popping an empty operand stack.
// Reaching it indicates an internal consistency bug in the semantics
// provider, not a property of the analyzed program.
var ErrEmptyOperandStack = errors.New("pop from empty operand stack")

// hashCell memoizes the structural hash of a state. Every derived state
// gets a fresh cell; states reached on different paths with identical
// contents still hash equal because the hash is purely structural.
type hashCell struct {
	computed bool
	value    uint32
}

// State is an immutable snapshot of the abstract machine: bindings from
// program symbols to symbolic values, the evaluation operand stack, and
// the constraint sets attached to symbolic values. Every transformation
// returns a new state sharing unchanged structure with its predecessor;
// states already scheduled on the worklist are never affected.
type State struct {
	bindings    *immutable.Map[sym.Symbol, sym.Value]
	stack       *immutable.List[sym.Value]
	constraints *immutable.Map[sym.Value, constraint.Set]
	hash        *hashCell
}

// Empty returns the state of a procedure entry: no bindings, an empty
// operand stack and no attached constraints.
func Empty() State {
	return State{
		bindings:    immutable.NewMap[sym.Symbol, sym.Value](sym.SymbolHasher()),
		stack:       immutable.NewList[sym.Value](),
		constraints: utils.NewImmMap[sym.Value, constraint.Set](),
		hash:        &hashCell{},
	}
}

func (s State) derive(
	bindings *immutable.Map[sym.Symbol, sym.Value],
	stack *immutable.List[sym.Value],
	constraints *immutable.Map[sym.Value, constraint.Set],
) State {
	return State{
		bindings:    bindings,
		stack:       stack,
		constraints: constraints,
		hash:        &hashCell{},
	}
}

// Bind associates a program symbol with a symbolic value.
func (s State) Bind(symbol sym.Symbol, value sym.Value) State {
	return s.derive(s.bindings.Set(symbol, value), s.stack, s.constraints)
}

// Lookup retrieves the symbolic value bound to a program symbol.
func (s State) Lookup(symbol sym.Symbol) (sym.Value, bool) {
	return s.bindings.Get(symbol)
}

// PushOperand pushes a symbolic value on the evaluation operand stack.
func (s State) PushOperand(value sym.Value) State {
	return s.derive(s.bindings, s.stack.Append(value), s.constraints)
}

// PopOperand pops the top of the evaluation operand stack, returning the
// shrunk state and the popped value.
func (s State) PopOperand() (State, sym.Value, error) {
	n := s.stack.Len()
	if n == 0 {
		return s, sym.Value{}, ErrEmptyOperandStack
	}
	top := s.stack.Get(n - 1)
	return s.derive(s.bindings, s.stack.Slice(0, n-1), s.constraints), top, nil
}

// OperandCount returns the size of the evaluation operand stack.
func (s State) OperandCount() int {
	return s.stack.Len()
}

// Constraints returns the constraint set attached to a symbolic value.
func (s State) Constraints(value sym.Value) constraint.Set {
	if set, found := s.constraints.Get(value); found {
		return set
	}
	return constraint.EmptySet()
}

// HasConstraint checks whether the exact constraint is attached to the
// given symbolic value.
func (s State) HasConstraint(value sym.Value, c constraint.Constraint) bool {
	return s.Constraints(value).Has(c)
}

// WithConstraint attaches a constraint to a symbolic value. The second
// result is false when the constraint contradicts a tag of the same
// domain already attached to the value; the returned state is then
// meaningless and the caller must discard exploration of the path
// instead of scheduling it.
func (s State) WithConstraint(value sym.Value, c constraint.Constraint) (State, bool) {
	set, ok := s.Constraints(value).Insert(c)
	if !ok {
		return s, false
	}
	return s.derive(s.bindings, s.stack, s.constraints.Set(value, set)), true
}

// Equal checks for structural equality: two states are equal iff their
// bindings, operand stacks and constraint maps compare equal. This is
// the basis of the visited set, so it is preceded by a memoized hash
// comparison to stay cheap.
func (s State) Equal(o State) bool {
	if s.Hash() != o.Hash() {
		return false
	}

	if s.stack.Len() != o.stack.Len() ||
		s.bindings.Len() != o.bindings.Len() ||
		s.constraints.Len() != o.constraints.Len() {
		return false
	}

	for i := 0; i < s.stack.Len(); i++ {
		if !s.stack.Get(i).Equal(o.stack.Get(i)) {
			return false
		}
	}

	for iter := s.bindings.Iterator(); !iter.Done(); {
		symbol, value, _ := iter.Next()
		if ov, found := o.bindings.Get(symbol); !found || !ov.Equal(value) {
			return false
		}
	}

	for iter := s.constraints.Iterator(); !iter.Done(); {
		value, set, _ := iter.Next()
		if oset, found := o.constraints.Get(value); !found || !oset.Equal(set) {
			return false
		}
	}

	return true
}

// Hash computes (and memoizes) the structural hash of the state.
func (s State) Hash() uint32 {
	if s.hash.computed {
		return s.hash.value
	}

	hashes := []uint32{}
	for iter := s.bindings.Iterator(); !iter.Done(); {
		symbol, value, _ := iter.Next()
		hashes = append(hashes, utils.HashCombine(symbol.Hash(), value.Hash()))
	}
	for iter := s.constraints.Iterator(); !iter.Done(); {
		value, set, _ := iter.Next()
		hashes = append(hashes, utils.HashCombine(value.Hash(), set.Hash()))
	}

	// Map iteration order is unspecified, so the unordered parts are
	// combined order independently.
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i] < hashes[j]
	})

	stackHashes := make([]uint32, 0, s.stack.Len())
	for i := 0; i < s.stack.Len(); i++ {
		stackHashes = append(stackHashes, s.stack.Get(i).Hash())
	}

	s.hash.value = utils.HashCombine(
		utils.HashCombine(hashes...),
		utils.HashCombine(stackHashes...))
	s.hash.computed = true
	return s.hash.value
}

func (s State) String() string {
	strs := []string{}
	for iter := s.bindings.Iterator(); !iter.Done(); {
		symbol, value, _ := iter.Next()
		str := symbol.String() + " ↦ " + value.String()
		if set := s.Constraints(value); set.Len() > 0 {
			str += " " + set.String()
		}
		strs = append(strs, str)
	}
	sort.Strings(strs)

	if s.stack.Len() > 0 {
		ops := make([]string, 0, s.stack.Len())
		for i := 0; i < s.stack.Len(); i++ {
			ops = append(ops, s.stack.Get(i).String())
		}
		strs = append(strs, "stack: ["+strings.Join(ops, " ")+"]")
	}

	return fmt.Sprintf("⟨%s⟩", strings.Join(strs, ", "))
}

var _ utils.HashableEq[State] = State{}
