package constraint

import (
	"sort"
	"strings"

	"github.com/sympath/sympath/utils"

	"github.com/benbjohnson/immutable"
)

type domainHasher struct{}

func (domainHasher) Hash(d Domain) uint32   { return uint32(d) }
func (domainHasher) Equal(a, b Domain) bool { return a == b }

var _ immutable.Hasher[Domain] = domainHasher{}

// Set is a persistent collection of constraints attached to one symbolic
// value, holding at most one tag per domain.
type Set struct {
	mp *immutable.Map[Domain, Constraint]
}

var emptySet = Set{immutable.NewMap[Domain, Constraint](domainHasher{})}

// EmptySet returns the constraint set with no attached facts.
func EmptySet() Set {
	return emptySet
}

// Insert attaches a constraint, returning the extended set. The second
// result is false when the constraint contradicts a tag already attached
// in the same domain, in which case the set is returned unchanged and the
// caller must treat the path as infeasible.
func (s Set) Insert(c Constraint) (Set, bool) {
	if prev, found := s.mp.Get(c.Domain()); found {
		if prev.Contradicts(c) {
			return s, false
		}
		return s, true
	}
	return Set{s.mp.Set(c.Domain(), c)}, true
}

// Get retrieves the tag attached in the given domain, if any.
func (s Set) Get(d Domain) (Constraint, bool) {
	return s.mp.Get(d)
}

// Has checks whether the exact constraint is attached.
func (s Set) Has(c Constraint) bool {
	prev, found := s.mp.Get(c.Domain())
	return found && prev.Equal(c)
}

func (s Set) Len() int {
	return s.mp.Len()
}

// ForEach executes the given procedure for every attached constraint.
func (s Set) ForEach(do func(Constraint)) {
	for iter := s.mp.Iterator(); !iter.Done(); {
		_, c, _ := iter.Next()
		do(c)
	}
}

// Equal checks for structural equality between constraint sets.
func (s Set) Equal(o Set) bool {
	if s.mp.Len() != o.mp.Len() {
		return false
	}
	for iter := s.mp.Iterator(); !iter.Done(); {
		d, c, _ := iter.Next()
		if oc, found := o.mp.Get(d); !found || !oc.Equal(c) {
			return false
		}
	}
	return true
}

// Hash computes an iteration order independent hash of the set.
func (s Set) Hash() uint32 {
	hashes := make([]uint32, 0, s.mp.Len())
	s.ForEach(func(c Constraint) {
		hashes = append(hashes, c.Hash())
	})

	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i] < hashes[j]
	})

	return utils.HashCombine(hashes...)
}

func (s Set) String() string {
	strs := make([]string, 0, s.mp.Len())
	s.ForEach(func(c Constraint) {
		strs = append(strs, c.String())
	})
	sort.Strings(strs)
	return "{" + strings.Join(strs, ", ") + "}"
}

var _ utils.HashableEq[Set] = Set{}
