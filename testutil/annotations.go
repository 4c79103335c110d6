package testutil

import (
	"strings"
	"testing"

	"github.com/sympath/sympath/analysis/engine"

	"golang.org/x/tools/go/expect"
)

// Expected findings are written as expectation notes adjacent to the
// annotated source line:
//
//	f.Close() //@ flagged("f")
//
// The note name is always "flagged". An optional string argument must
// occur in the finding's message; an optional second integer argument
// must equal the finding's column. Every emitted finding must match an
// unconsumed note on its line, and every note must be consumed.

// NotesManager matches the findings of an analysis against the
// expectation notes of the loaded program.
type NotesManager struct {
	notes   []*expect.Note
	loadRes LoadResult
}

// MakeNotesManager extracts the expectation notes of the loaded
// program's syntax.
func MakeNotesManager(t *testing.T, loadRes LoadResult) (n NotesManager) {
	n.loadRes = loadRes

	for _, file := range loadRes.MainPkg.Syntax {
		notes, err := expect.ExtractGo(loadRes.Prog.Fset, file)
		if err != nil {
			t.Fatal(err)
		}
		for _, note := range notes {
			if note.Name != "flagged" {
				t.Fatalf("unknown expectation note %q", note.Name)
			}
		}
		n.notes = append(n.notes, notes...)
	}

	return n
}

// NoteCount returns the number of extracted expectation notes.
func (n NotesManager) NoteCount() int {
	return len(n.notes)
}

// CheckFindings verifies the findings of a run against the extracted
// notes. Internal failure diagnostics fail unconditionally. A finding
// with no candidate note, or a note no finding consumed, is a failure.
func (n NotesManager) CheckFindings(t *testing.T, findings []engine.Finding) {
	fset := n.loadRes.Prog.Fset
	consumed := make([]bool, len(n.notes))

	for _, f := range findings {
		if f.IsInternalFailure() {
			t.Errorf("internal failure surfaced: %s", f)
			continue
		}

		matched := false
		for i, note := range n.notes {
			if consumed[i] || !n.matches(note, f) {
				continue
			}
			consumed[i] = true
			matched = true
			break
		}
		if !matched {
			t.Errorf("unexpected finding: %s", f)
		}
	}

	for i, note := range n.notes {
		if !consumed[i] {
			t.Errorf("expected finding missing at %s", fset.Position(note.Pos))
		}
	}
}

// matches checks a finding against a note: same file and line, plus
// the note's optional message substring and column arguments.
func (n NotesManager) matches(note *expect.Note, f engine.Finding) bool {
	npos := n.loadRes.Prog.Fset.Position(note.Pos)
	if npos.Filename != f.Pos.Filename || npos.Line != f.Pos.Line {
		return false
	}

	if len(note.Args) > 0 {
		msg, ok := note.Args[0].(string)
		if !ok || !strings.Contains(f.Message, msg) {
			return false
		}
	}
	if len(note.Args) > 1 {
		col, ok := note.Args[1].(int64)
		if !ok || int(col) != f.Pos.Column {
			return false
		}
	}
	return true
}
