package engine_test

import (
	"testing"

	"github.com/sympath/sympath/analysis/engine"

	"github.com/sebdah/goldie/v2"
)

func TestGraphRendering(t *testing.T) {
	p := &program{
		sizes: []int{2, 1},
		successors: map[int][]engine.Edge{
			0: {{To: engine.Point{Block: 1}}},
		},
	}

	eng := engine.New(p).WithGraphRecording()
	if _, err := eng.Run(); err != nil {
		t.Fatal(err)
	}

	g := goldie.New(t)
	g.Assert(t, "exploded-graph", []byte(eng.Graph().String()))
	g.Assert(t, "exploded-graph-dot", eng.Graph().Dot())
}
