package symbolic

import (
	"fmt"

	"github.com/sympath/sympath/utils"
)

type valueKind uint8

const (
	// kindSite marks values minted for an allocation site or operation.
	kindSite valueKind = iota
	// kindReceiver marks the canonical receiver value of the analyzed
	// procedure.
	kindReceiver
)

// Value is an opaque token standing for a runtime value. Values are
// immutable; the constraints a value carries live in the program state,
// not on the value itself.
//
// Identity derives from the allocation site or operation that minted the
// value, so revisiting the same site along different paths or loop
// iterations yields the same token.
type Value struct {
	kind valueKind
	id   uint32
	name string
}

// ForSite mints the symbolic value of an allocation site or operation.
// The id must be stable across runs for the same site.
func ForSite(id uint32, name string) Value {
	return Value{kind: kindSite, id: id, name: name}
}

// Receiver returns the canonical singleton value of the implicit receiver
// of the analyzed procedure.
func Receiver() Value {
	return Value{kind: kindReceiver, name: "this"}
}

// IsReceiver checks whether the value is the canonical receiver.
func (v Value) IsReceiver() bool {
	return v.kind == kindReceiver
}

// Name returns the display name of the value's origin.
func (v Value) Name() string {
	return v.name
}

func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.id == o.id && v.name == o.name
}

func (v Value) Hash() uint32 {
	return utils.HashCombine(uint32(v.kind), v.id)
}

func (v Value) String() string {
	if v.kind == kindReceiver {
		return "ν(this)"
	}
	if v.name != "" {
		return fmt.Sprintf("ν(%s)", v.name)
	}
	return fmt.Sprintf("ν#%d", v.id)
}

var _ utils.HashableEq[Value] = Value{}
