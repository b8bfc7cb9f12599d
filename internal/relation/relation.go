// Package relation implements a bidirectional many-to-many index between two
// id spaces. Both directions are kept as ordered sets and are updated
// together, so y ∈ Forward(x) exactly when x ∈ Backward(y).
package relation

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/btree"
)

const degree = 8

// Relation maps every X to an ordered set of Y and every Y to an ordered set
// of X. Buckets are removed as soon as they become empty.
//
// Relation is not safe for concurrent use.
type Relation[X, Y comparable] struct {
	lessX    btree.LessFunc[X]
	lessY    btree.LessFunc[Y]
	forward  map[X]*btree.BTreeG[Y]
	backward map[Y]*btree.BTreeG[X]
	edges    int
}

// Edge is one (x, y) pair.
type Edge[X, Y any] struct {
	X X `json:"x"`
	Y Y `json:"y"`
}

// New returns a Relation over naturally ordered keys.
func New[X, Y cmp.Ordered]() *Relation[X, Y] {
	return NewFunc[X, Y](cmp.Less[X], cmp.Less[Y])
}

// NewFunc returns a Relation ordered by the given less functions.
func NewFunc[X, Y comparable](lessX btree.LessFunc[X], lessY btree.LessFunc[Y]) *Relation[X, Y] {
	return &Relation[X, Y]{
		lessX:    lessX,
		lessY:    lessY,
		forward:  make(map[X]*btree.BTreeG[Y]),
		backward: make(map[Y]*btree.BTreeG[X]),
	}
}

// Insert adds the edge (x, y). Inserting an existing edge is a no-op.
func (r *Relation[X, Y]) Insert(x X, y Y) {
	fw, ok := r.forward[x]
	if !ok {
		fw = btree.NewG(degree, r.lessY)
		r.forward[x] = fw
	}
	bw, ok := r.backward[y]
	if !ok {
		bw = btree.NewG(degree, r.lessX)
		r.backward[y] = bw
	}
	_, hadF := fw.ReplaceOrInsert(y)
	_, hadB := bw.ReplaceOrInsert(x)
	if hadF != hadB {
		panic(fmt.Sprintf("relation: asymmetric edge (%v, %v) on insert", x, y))
	}
	if !hadF {
		r.edges++
	}
}

// Remove deletes the edge (x, y) and reports whether it existed.
func (r *Relation[X, Y]) Remove(x X, y Y) bool {
	fw, okF := r.forward[x]
	bw, okB := r.backward[y]
	if !okF && !okB {
		return false
	}
	var delF, delB bool
	if okF {
		_, delF = fw.Delete(y)
		if fw.Len() == 0 {
			delete(r.forward, x)
		}
	}
	if okB {
		_, delB = bw.Delete(x)
		if bw.Len() == 0 {
			delete(r.backward, y)
		}
	}
	if delF != delB {
		panic(fmt.Sprintf("relation: asymmetric edge (%v, %v) on remove", x, y))
	}
	if delF {
		r.edges--
	}
	return delF
}

// Has reports whether the edge (x, y) exists.
func (r *Relation[X, Y]) Has(x X, y Y) bool {
	fw, ok := r.forward[x]
	return ok && fw.Has(y)
}

// Forward returns every y related to x in ascending order. The result is
// empty, not nil-error, when x is unknown.
func (r *Relation[X, Y]) Forward(x X) []Y {
	fw, ok := r.forward[x]
	if !ok {
		return []Y{}
	}
	out := make([]Y, 0, fw.Len())
	fw.Ascend(func(y Y) bool {
		out = append(out, y)
		return true
	})
	return out
}

// Backward returns every x related to y in ascending order.
func (r *Relation[X, Y]) Backward(y Y) []X {
	bw, ok := r.backward[y]
	if !ok {
		return []X{}
	}
	out := make([]X, 0, bw.Len())
	bw.Ascend(func(x X) bool {
		out = append(out, x)
		return true
	})
	return out
}

// ForwardFrom walks the ys of x starting strictly after cursor (or from the
// beginning when cursor is nil) and stops when fn returns false. It reports
// whether the cursor was found.
func (r *Relation[X, Y]) ForwardFrom(x X, cursor *Y, fn func(Y) bool) bool {
	fw, ok := r.forward[x]
	if !ok {
		return cursor == nil
	}
	if cursor == nil {
		fw.Ascend(btree.ItemIteratorG[Y](fn))
		return true
	}
	if !fw.Has(*cursor) {
		return false
	}
	c := *cursor
	fw.AscendGreaterOrEqual(c, func(y Y) bool {
		if !r.lessY(c, y) {
			return true
		}
		return fn(y)
	})
	return true
}

func (r *Relation[X, Y]) CountForward(x X) int {
	if fw, ok := r.forward[x]; ok {
		return fw.Len()
	}
	return 0
}

func (r *Relation[X, Y]) CountBackward(y Y) int {
	if bw, ok := r.backward[y]; ok {
		return bw.Len()
	}
	return 0
}

// Len returns the number of edges.
func (r *Relation[X, Y]) Len() int { return r.edges }

// ForwardKeys returns every x with at least one edge, ascending.
func (r *Relation[X, Y]) ForwardKeys() []X {
	keys := make([]X, 0, len(r.forward))
	for x := range r.forward {
		keys = append(keys, x)
	}
	slices.SortFunc(keys, func(a, b X) int { return r.compareX(a, b) })
	return keys
}

// Edges lists every edge ordered by x then y.
func (r *Relation[X, Y]) Edges() []Edge[X, Y] {
	out := make([]Edge[X, Y], 0, r.edges)
	for _, x := range r.ForwardKeys() {
		r.forward[x].Ascend(func(y Y) bool {
			out = append(out, Edge[X, Y]{X: x, Y: y})
			return true
		})
	}
	return out
}

// Check verifies both directions agree and no bucket is empty. It panics on
// the first violation.
func (r *Relation[X, Y]) Check() {
	n := 0
	for x, fw := range r.forward {
		if fw.Len() == 0 {
			panic(fmt.Sprintf("relation: empty forward bucket for %v", x))
		}
		fw.Ascend(func(y Y) bool {
			bw, ok := r.backward[y]
			if !ok || !bw.Has(x) {
				panic(fmt.Sprintf("relation: edge (%v, %v) missing backward", x, y))
			}
			n++
			return true
		})
	}
	m := 0
	for y, bw := range r.backward {
		if bw.Len() == 0 {
			panic(fmt.Sprintf("relation: empty backward bucket for %v", y))
		}
		m += bw.Len()
	}
	if n != m || n != r.edges {
		panic(fmt.Sprintf("relation: edge counts disagree forward=%d backward=%d recorded=%d", n, m, r.edges))
	}
}

func (r *Relation[X, Y]) compareX(a, b X) int {
	switch {
	case r.lessX(a, b):
		return -1
	case r.lessX(b, a):
		return 1
	}
	return 0
}
