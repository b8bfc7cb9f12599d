package relation

import (
	"slices"
	"testing"
)

func TestInsertRemoveRoundTrip(t *testing.T) {
	r := New[uint64, uint64]()
	r.Insert(1, 10)

	if got := r.Forward(1); !slices.Equal(got, []uint64{10}) {
		t.Fatalf("forward(1) = %v", got)
	}
	if got := r.Backward(10); !slices.Equal(got, []uint64{1}) {
		t.Fatalf("backward(10) = %v", got)
	}

	if !r.Remove(1, 10) {
		t.Fatalf("expected edge to be removed")
	}
	if got := r.Forward(1); len(got) != 0 {
		t.Fatalf("forward(1) after remove = %v", got)
	}
	if got := r.Backward(10); len(got) != 0 {
		t.Fatalf("backward(10) after remove = %v", got)
	}
	if keys := r.ForwardKeys(); len(keys) != 0 {
		t.Fatalf("empty bucket still listed: %v", keys)
	}
	r.Check()
}

func TestInsertIsIdempotent(t *testing.T) {
	r := New[uint64, string]()
	r.Insert(1, "a")
	r.Insert(1, "a")
	if r.Len() != 1 {
		t.Fatalf("expected 1 edge, got %d", r.Len())
	}
	if r.CountForward(1) != 1 || r.CountBackward("a") != 1 {
		t.Fatalf("unexpected counts %d/%d", r.CountForward(1), r.CountBackward("a"))
	}
	r.Check()
}

func TestRemoveAbsentEdge(t *testing.T) {
	r := New[int, int]()
	r.Insert(1, 2)
	if r.Remove(1, 3) {
		t.Fatalf("removed edge that never existed")
	}
	if r.Remove(9, 9) {
		t.Fatalf("removed edge between unknown keys")
	}
	if !r.Has(1, 2) {
		t.Fatalf("existing edge lost")
	}
	r.Check()
}

func TestOrderedBuckets(t *testing.T) {
	r := New[int, int]()
	for _, y := range []int{5, 1, 9, 3} {
		r.Insert(7, y)
	}
	r.Insert(2, 3)
	if got := r.Forward(7); !slices.Equal(got, []int{1, 3, 5, 9}) {
		t.Fatalf("forward(7) = %v", got)
	}
	if got := r.Backward(3); !slices.Equal(got, []int{2, 7}) {
		t.Fatalf("backward(3) = %v", got)
	}
	if got := r.ForwardKeys(); !slices.Equal(got, []int{2, 7}) {
		t.Fatalf("keys = %v", got)
	}
	edges := r.Edges()
	if len(edges) != 5 || edges[0] != (Edge[int, int]{X: 2, Y: 3}) {
		t.Fatalf("edges = %v", edges)
	}
}

func TestForwardFrom(t *testing.T) {
	r := New[int, int]()
	for _, y := range []int{1, 2, 3, 4} {
		r.Insert(0, y)
	}
	var got []int
	cursor := 2
	found := r.ForwardFrom(0, &cursor, func(y int) bool {
		got = append(got, y)
		return len(got) < 1
	})
	if !found || !slices.Equal(got, []int{3}) {
		t.Fatalf("found=%v got=%v", found, got)
	}

	missing := 42
	if r.ForwardFrom(0, &missing, func(int) bool { return true }) {
		t.Fatalf("unknown cursor reported as found")
	}
}

func TestCustomOrdering(t *testing.T) {
	type key struct{ a, b int }
	less := func(x, y key) bool { return x.a < y.a || (x.a == y.a && x.b < y.b) }
	r := NewFunc[key, string](less, func(x, y string) bool { return x < y })
	r.Insert(key{1, 2}, "z")
	r.Insert(key{1, 1}, "z")
	if got := r.Backward("z"); len(got) != 2 || got[0] != (key{1, 1}) {
		t.Fatalf("backward = %v", got)
	}
}
