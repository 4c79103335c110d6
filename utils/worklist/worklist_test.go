package worklist

import "testing"

func TestFifoOrder(t *testing.T) {
	got := []int{}
	Start(0, func(next int, add func(int)) {
		got = append(got, next)
		if next < 5 {
			add(next + 1)
		}
	})

	for i, x := range got {
		if x != i {
			t.Fatalf("expected 0..5 in order, got %v", got)
		}
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 processed elements, got %v", got)
	}
}

func TestInterleavedAdds(t *testing.T) {
	w := Empty[string]()
	w.Add("a")
	w.Add("b")

	got := []string{}
	w.Process(func(next string, add func(string)) {
		got = append(got, next)
		if next == "a" {
			add("c")
		}
	})

	want := []string{"a", "b", "c"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
