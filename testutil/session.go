package testutil

import (
	"sync"
	"testing"

	"github.com/sympath/sympath/analysis/engine"
)

// Session accumulates findings across a batch of analysis runs so a
// test suite can assert that its rules actually fired somewhere. Safe
// for concurrent use.
type Session struct {
	mu     sync.Mutex
	counts map[string]int
	total  int
}

func NewSession() *Session {
	return &Session{counts: make(map[string]int)}
}

// Record tallies the given findings by rule.
func (s *Session) Record(findings []engine.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range findings {
		s.counts[f.Rule]++
		s.total++
	}
}

// Count returns the number of recorded findings for a rule.
func (s *Session) Count(rule string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[rule]
}

// AssertExercised fails the test for every rule with no recorded
// finding. A session with no findings at all passes vacuously, so
// suites whose programs are expected to be clean stay quiet.
func (s *Session) AssertExercised(t *testing.T, rules ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total == 0 {
		return
	}
	for _, rule := range rules {
		if s.counts[rule] == 0 {
			t.Errorf("rule %q produced no findings in this session", rule)
		}
	}
}
