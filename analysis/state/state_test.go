package state_test

import (
	"errors"
	"testing"

	"github.com/sympath/sympath/analysis/constraint"
	"github.com/sympath/sympath/analysis/state"
	sym "github.com/sympath/sympath/analysis/symbolic"
)

type nameSym string

func (s nameSym) Hash() uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 16777619
	}
	return h
}
func (s nameSym) EqualSym(o sym.Symbol) bool {
	os, ok := o.(nameSym)
	return ok && s == os
}
func (s nameSym) String() string { return string(s) }

func TestBindLookup(t *testing.T) {
	v1 := sym.ForSite(1, "f")
	v2 := sym.ForSite(2, "g")

	s0 := state.Empty()
	s1 := s0.Bind(nameSym("f"), v1)
	s2 := s1.Bind(nameSym("f"), v2)

	if _, found := s0.Lookup(nameSym("f")); found {
		t.Error("empty state should have no bindings")
	}
	if v, found := s1.Lookup(nameSym("f")); !found || !v.Equal(v1) {
		t.Errorf("expected %s, got %v (found: %v)", v1, v, found)
	}

	// Rebinding must not disturb the predecessor state.
	if v, _ := s1.Lookup(nameSym("f")); !v.Equal(v1) {
		t.Error("rebinding leaked into predecessor state")
	}
	if v, _ := s2.Lookup(nameSym("f")); !v.Equal(v2) {
		t.Error("rebinding did not take effect")
	}
}

func TestOperandStack(t *testing.T) {
	v1 := sym.ForSite(1, "a")
	v2 := sym.ForSite(2, "b")

	s := state.Empty().PushOperand(v1).PushOperand(v2)
	if s.OperandCount() != 2 {
		t.Fatalf("expected 2 operands, got %d", s.OperandCount())
	}

	s, top, err := s.PopOperand()
	if err != nil || !top.Equal(v2) {
		t.Fatalf("expected %s, got %v (err: %v)", v2, top, err)
	}
	s, top, err = s.PopOperand()
	if err != nil || !top.Equal(v1) {
		t.Fatalf("expected %s, got %v (err: %v)", v1, top, err)
	}

	if _, _, err := s.PopOperand(); !errors.Is(err, state.ErrEmptyOperandStack) {
		t.Fatalf("expected ErrEmptyOperandStack, got %v", err)
	}
}

func TestWithConstraint(t *testing.T) {
	v := sym.ForSite(7, "r")

	s, ok := state.Empty().WithConstraint(v, constraint.Disposed)
	if !ok {
		t.Fatal("first constraint of a domain must be satisfiable")
	}
	if !s.HasConstraint(v, constraint.Disposed) {
		t.Error("constraint was not attached")
	}

	// Same tag again is a no-op, not a conflict.
	if _, ok := s.WithConstraint(v, constraint.Disposed); !ok {
		t.Error("re-attaching an identical constraint must stay feasible")
	}

	// Opposite tag of the same domain is a contradiction.
	if _, ok := s.WithConstraint(v, constraint.Fresh); ok {
		t.Error("contradictory constraint must be reported infeasible")
	}

	// Another domain is independent.
	s, ok = s.WithConstraint(v, constraint.NotNil)
	if !ok {
		t.Fatal("constraints of distinct domains must coexist")
	}
	if !s.HasConstraint(v, constraint.Disposed) || !s.HasConstraint(v, constraint.NotNil) {
		t.Error("expected both domains attached")
	}
}

func TestStructuralEquality(t *testing.T) {
	v := sym.ForSite(3, "x")

	mk := func() state.State {
		s := state.Empty().Bind(nameSym("x"), v)
		s, _ = s.WithConstraint(v, constraint.NotNil)
		return s.PushOperand(v)
	}

	// States built independently on different paths compare equal when
	// their contents agree, including the memoized hashes.
	a, b := mk(), mk()
	if !a.Equal(b) {
		t.Error("structurally identical states must be equal")
	}
	if a.Hash() != b.Hash() {
		t.Error("structurally identical states must hash equal")
	}

	c := b.Bind(nameSym("y"), v)
	if a.Equal(c) {
		t.Error("states with different bindings must differ")
	}

	d, _ := b.WithConstraint(v, constraint.Disposed)
	if a.Equal(d) {
		t.Error("states with different constraints must differ")
	}

	e, _, _ := b.PopOperand()
	if a.Equal(e) {
		t.Error("states with different operand stacks must differ")
	}
}
