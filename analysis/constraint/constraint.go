package constraint

import (
	"fmt"

	"github.com/sympath/sympath/utils"
)

type (
	// Domain identifies a family of mutually exclusive constraint tags.
	// A symbolic value carries at most one tag per domain in any given
	// program state.
	Domain uint32

	// Constraint is a named abstract fact about a symbolic value, scoped
	// to a domain. Constraints of the same domain with different tags are
	// contradictory.
	Constraint struct {
		domain Domain
		tag    uint32
		name   string
	}
)

// The built-in constraint domains. Clients may register additional
// domains through NewDomain.
const (
	DomainNilness Domain = iota
	DomainDisposal
	DomainBoolean

	domainCount
)

var nextDomain = domainCount

// NewDomain mints a fresh constraint domain, distinct from all built-in
// and previously minted domains.
func NewDomain() Domain {
	d := nextDomain
	nextDomain++
	return d
}

// The built-in constraint tags.
var (
	Nil      = New(DomainNilness, 0, "nil")
	NotNil   = New(DomainNilness, 1, "not-nil")
	Disposed = New(DomainDisposal, 0, "disposed")
	Fresh    = New(DomainDisposal, 1, "not-disposed")
	True     = New(DomainBoolean, 1, "true")
	False    = New(DomainBoolean, 0, "false")
)

// New constructs a constraint with the given domain, tag and display name.
func New(d Domain, tag uint32, name string) Constraint {
	return Constraint{domain: d, tag: tag, name: name}
}

// BoolConstraint returns the boolean-domain constraint for a truth value.
func BoolConstraint(truth bool) Constraint {
	if truth {
		return True
	}
	return False
}

func (c Constraint) Domain() Domain {
	return c.domain
}

// Contradicts checks whether two constraints are mutually exclusive:
// same domain, different tag.
func (c Constraint) Contradicts(o Constraint) bool {
	return c.domain == o.domain && c.tag != o.tag
}

func (c Constraint) Equal(o Constraint) bool {
	return c.domain == o.domain && c.tag == o.tag
}

func (c Constraint) Hash() uint32 {
	return utils.HashCombine(uint32(c.domain), c.tag)
}

func (c Constraint) String() string {
	if c.name != "" {
		return c.name
	}
	return fmt.Sprintf("constraint(%d/%d)", c.domain, c.tag)
}

var _ utils.HashableEq[Constraint] = Constraint{}
