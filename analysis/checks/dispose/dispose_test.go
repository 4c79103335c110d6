package dispose_test

import (
	"testing"

	"github.com/sympath/sympath/analysis/checks/dispose"
	"github.com/sympath/sympath/analysis/engine"
	"github.com/sympath/sympath/testutil"
)

const scenarios = `package main

type Resource struct{ closed bool }

func (r *Resource) Close() {}

func NewResource() *Resource { return &Resource{} }

type Wrapper struct{ r *Resource }

func (w *Wrapper) Close() {}

func NewWrapper(r *Resource, leaveOpen bool) *Wrapper { return &Wrapper{r} }

func use(r *Resource) {}

func double() {
	r := NewResource()
	r.Close()
	r.Close() //@ flagged("r")
}

func viaDefer() {
	r := NewResource()
	defer r.Close() //@ flagged("r")
	use(r)
	r.Close()
}

func deferOnly() {
	r := NewResource()
	defer r.Close()
	use(r)
}

func leaveOpen() {
	inner := NewResource()
	w := NewWrapper(inner, true)
	w.Close()
	inner.Close()
}

func forwarded() {
	inner := NewResource()
	w := NewWrapper(inner, false)
	w.Close()
	inner.Close() //@ flagged("inner")
}

func (r *Resource) shutdown() {
	r.Close()
	r.Close() //@ flagged("r")
}

func rejoin(b bool) {
	r := NewResource()
	if b {
		r.Close()
	} else {
		r.Close()
	}
	r.Close() //@ flagged("r")
}

func correlated(b bool) {
	r := NewResource()
	if b {
		r.Close()
	}
	if b {
		r.Close() //@ flagged("r")
	}
	use(r)
}

func condDefer(b bool) {
	r := NewResource()
	if b {
		defer r.Close()
		use(r)
		return
	}
	r.Close()
}

func nilReceiver() {
	var r *Resource
	r.Close()
	r.Close()
}

func looping() {
	r := NewResource()
	for i := 0; i < 10; i++ {
		use(r)
	}
	r.Close()
}

func main() {}
`

func TestScenarios(t *testing.T) {
	loadRes := testutil.LoadSource(t, scenarios)
	notes := testutil.MakeNotesManager(t, loadRes)
	session := testutil.NewSession()

	var findings []engine.Finding
	for _, fun := range []string{
		"double", "viaDefer", "deferOnly", "leaveOpen", "forwarded",
		"shutdown", "rejoin", "correlated", "condDefer", "nilReceiver",
		"looping",
	} {
		res := loadRes.Analyze(t, fun, dispose.New())
		if res.Partial {
			t.Errorf("%s: expected a complete traversal", fun)
		}
		session.Record(res.Findings)
		findings = append(findings, res.Findings...)
	}

	notes.CheckFindings(t, findings)
	session.AssertExercised(t, dispose.RuleName)
	if got, want := session.Count(dispose.RuleName), notes.NoteCount(); got != want {
		t.Errorf("recorded %d findings for %s, annotations expect %d", got, dispose.RuleName, want)
	}
}

func TestRejoinReportsOnce(t *testing.T) {
	loadRes := testutil.LoadSource(t, scenarios)

	res := loadRes.Analyze(t, "rejoin", dispose.New())
	if len(res.Findings) != 1 {
		t.Errorf("a shared site reached on several paths must be flagged once, got %v", res.Findings)
	}
}
