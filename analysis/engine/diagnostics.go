package engine

import (
	"fmt"
	"go/token"

	"github.com/sympath/sympath/utils"
)

// InternalFailureRule is the reserved rule identifier under which the
// engine surfaces unhandled failures inside semantics evaluation or
// check hooks. Verification harnesses treat its presence as an
// unconditional failure; it must never be silently dropped.
const InternalFailureRule = "sympath-internal-failure"

// Finding is one diagnostic produced by a check: a source location, a
// message, and the identifier of the rule that produced it.
type Finding struct {
	Pos     token.Position
	Message string
	Rule    string
}

func (f Finding) String() string {
	rule := utils.RuleColor(f.Rule)
	if f.IsInternalFailure() {
		rule = utils.FailColor(f.Rule)
	}
	return fmt.Sprintf("%s: %s [%s]",
		utils.PosColor(f.Pos.String()),
		f.Message,
		rule)
}

// IsInternalFailure checks whether the finding reports an engine
// internal failure rather than a property of the analyzed program.
func (f Finding) IsInternalFailure() bool {
	return f.Rule == InternalFailureRule
}

func (f Finding) less(o Finding) bool {
	if f.Pos.Filename != o.Pos.Filename {
		return f.Pos.Filename < o.Pos.Filename
	}
	if f.Pos.Line != o.Pos.Line {
		return f.Pos.Line < o.Pos.Line
	}
	if f.Pos.Column != o.Pos.Column {
		return f.Pos.Column < o.Pos.Column
	}
	return f.Rule < o.Rule
}

// Result is the outcome of one procedure traversal.
type Result struct {
	// Findings are the harvested diagnostics of all checks, ordered by
	// position. On partial runs the findings of checks that do not
	// support partial results are suppressed.
	Findings []Finding

	// Partial is set when traversal stopped on budget exhaustion with a
	// non-empty worklist.
	Partial bool

	// Steps counts dequeued exploded graph nodes.
	Steps int

	// Visited is the size of the visited set at termination.
	Visited int
}

// InternalFailures filters the findings down to internal failure
// diagnostics.
func (r *Result) InternalFailures() (res []Finding) {
	for _, f := range r.Findings {
		if f.IsInternalFailure() {
			res = append(res, f)
		}
	}
	return
}
