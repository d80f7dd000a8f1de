// Package treeset implements a sparse integer set with tree semantics.
//
// Members are stored in fixed-size bitmap buckets; a nil bucket means the
// whole range is empty, so sparse sets over a large ID space stay small.
// The set knows nothing about what the integers mean. Tree-aware
// operations (AddSubTree, RemoveSubTree, PopulateWithParents) go through an
// injected Tree adapter, which is how FileSet and ActionSet are built from
// the same type.
//
// A Set is not safe for concurrent mutation.
package treeset

import (
	"fmt"
	"iter"

	"github.com/bits-and-blooms/bitset"
)

const (
	// BucketBits is the number of IDs covered by one bucket.
	BucketBits = 2048

	// DefaultMaxID bounds the ID space when callers do not pick one.
	DefaultMaxID = 1 << 24

	// initialGrowth is the first increment, in buckets, of the bucket array.
	// Each later growth adds initialGrowth more than the previous one.
	initialGrowth = 4
)

// Tree exposes the hierarchy a Set's members live in.
// The root is the ID whose parent is itself.
type Tree interface {
	Parent(id int) (int, error)
	Children(id int) ([]int, error)
	Valid(id int) bool
}

// Funcs adapts two plain functions and a predicate to Tree.
// A nil ValidFunc treats every ID as valid.
type Funcs struct {
	ParentFunc   func(id int) int
	ChildrenFunc func(id int) []int
	ValidFunc    func(id int) bool
}

func (f Funcs) Parent(id int) (int, error) { return f.ParentFunc(id), nil }

func (f Funcs) Children(id int) ([]int, error) { return f.ChildrenFunc(id), nil }

func (f Funcs) Valid(id int) bool {
	if f.ValidFunc == nil {
		return true
	}
	return f.ValidFunc(id)
}

// BoundsError is the panic value for an Add outside [0, Max).
// It signals a programming error, never bad input.
type BoundsError struct {
	ID  int
	Max int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("treeset: id %d out of range [0, %d)", e.ID, e.Max)
}

// Set is a bucketed bitmap over [0, maxID).
type Set struct {
	tree    Tree
	maxID   int
	buckets []*bitset.BitSet
	growth  int
	size    int
}

// New returns an empty set over [0, maxID) whose tree operations use tree.
// A non-positive maxID selects DefaultMaxID.
func New(tree Tree, maxID int) *Set {
	if maxID <= 0 {
		maxID = DefaultMaxID
	}
	return &Set{tree: tree, maxID: maxID, growth: initialGrowth}
}

// MaxID returns the exclusive upper bound of the ID space.
func (s *Set) MaxID() int {
	return s.maxID
}

// Tree returns the adapter the set was built with.
func (s *Set) Tree() Tree {
	return s.tree
}

// Size returns the number of members.
func (s *Set) Size() int {
	return s.size
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool {
	return s.size == 0
}

func split(id int) (int, uint) {
	return id / BucketBits, uint(id % BucketBits)
}

// ensure grows the bucket array so that index i is addressable.
func (s *Set) ensure(i int) {
	if i < len(s.buckets) {
		return
	}
	n := len(s.buckets) + s.growth
	if n <= i {
		n = i + 1
	}
	if limit := (s.maxID + BucketBits - 1) / BucketBits; n > limit {
		n = limit
	}
	grown := make([]*bitset.BitSet, n)
	copy(grown, s.buckets)
	s.buckets = grown
	s.growth += initialGrowth
}

// Add inserts id. It panics with *BoundsError if id is outside [0, MaxID).
func (s *Set) Add(id int) {
	if id < 0 || id >= s.maxID {
		panic(&BoundsError{ID: id, Max: s.maxID})
	}
	i, bit := split(id)
	s.ensure(i)
	b := s.buckets[i]
	if b == nil {
		b = bitset.New(BucketBits)
		s.buckets[i] = b
	}
	if !b.Test(bit) {
		b.Set(bit)
		s.size++
	}
}

// AddAll inserts every id.
func (s *Set) AddAll(ids ...int) {
	for _, id := range ids {
		s.Add(id)
	}
}

// Remove deletes id, freeing its bucket once the bucket is empty.
// Removing a non-member is a no-op.
func (s *Set) Remove(id int) {
	if id < 0 || id >= s.maxID {
		return
	}
	i, bit := split(id)
	if i >= len(s.buckets) || s.buckets[i] == nil {
		return
	}
	b := s.buckets[i]
	if !b.Test(bit) {
		return
	}
	b.Clear(bit)
	s.size--
	if b.None() {
		s.buckets[i] = nil
	}
}

// IsMember reports whether id is in the set.
func (s *Set) IsMember(id int) bool {
	if id < 0 || id >= s.maxID {
		return false
	}
	i, bit := split(id)
	if i >= len(s.buckets) || s.buckets[i] == nil {
		return false
	}
	return s.buckets[i].Test(bit)
}

// Clear removes every member.
func (s *Set) Clear() {
	s.buckets = nil
	s.growth = initialGrowth
	s.size = 0
}

// Clone returns an independent deep copy sharing the same tree adapter.
func (s *Set) Clone() *Set {
	c := &Set{
		tree:    s.tree,
		maxID:   s.maxID,
		buckets: make([]*bitset.BitSet, len(s.buckets)),
		growth:  s.growth,
		size:    s.size,
	}
	for i, b := range s.buckets {
		if b != nil {
			c.buckets[i] = b.Clone()
		}
	}
	return c
}

// MergeSet adds every member of other not already present (in-place union).
// It panics with *BoundsError if other holds an ID outside this set's range.
func (s *Set) MergeSet(other *Set) {
	for i, ob := range other.buckets {
		if ob == nil {
			continue
		}
		base := i * BucketBits
		if base+BucketBits > s.maxID {
			if first, ok := ob.NextSet(uint(max(s.maxID-base, 0))); ok {
				panic(&BoundsError{ID: base + int(first), Max: s.maxID})
			}
		}
		s.ensure(i)
		if s.buckets[i] == nil {
			s.buckets[i] = ob.Clone()
			s.size += int(ob.Count())
			continue
		}
		before := s.buckets[i].Count()
		s.buckets[i].InPlaceUnion(ob)
		s.size += int(s.buckets[i].Count() - before)
	}
}

// ExtractSet removes every member that is also in other (in-place difference).
func (s *Set) ExtractSet(other *Set) {
	for i, b := range s.buckets {
		if b == nil || i >= len(other.buckets) || other.buckets[i] == nil {
			continue
		}
		before := b.Count()
		b.InPlaceDifference(other.buckets[i])
		s.size -= int(before - b.Count())
		if b.None() {
			s.buckets[i] = nil
		}
	}
}

// Intersect keeps only members also present in other.
func (s *Set) Intersect(other *Set) {
	for i, b := range s.buckets {
		if b == nil {
			continue
		}
		if i >= len(other.buckets) || other.buckets[i] == nil {
			s.size -= int(b.Count())
			s.buckets[i] = nil
			continue
		}
		before := b.Count()
		b.InPlaceIntersection(other.buckets[i])
		s.size -= int(before - b.Count())
		if b.None() {
			s.buckets[i] = nil
		}
	}
}

// Equal reports whether both sets hold exactly the same members.
func (s *Set) Equal(other *Set) bool {
	if s.size != other.size {
		return false
	}
	n := max(len(s.buckets), len(other.buckets))
	for i := 0; i < n; i++ {
		var a, b *bitset.BitSet
		if i < len(s.buckets) {
			a = s.buckets[i]
		}
		if i < len(other.buckets) {
			b = other.buckets[i]
		}
		switch {
		case a == nil && b == nil:
		case a == nil || b == nil:
			return false
		case !a.Equal(b):
			return false
		}
	}
	return true
}

// All yields members in ascending order. The set must not be mutated while
// the sequence is being consumed.
func (s *Set) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, b := range s.buckets {
			if b == nil {
				continue
			}
			base := i * BucketBits
			for bit, ok := b.NextSet(0); ok; bit, ok = b.NextSet(bit + 1) {
				if !yield(base + int(bit)) {
					return
				}
			}
		}
	}
}

// Members returns all members in ascending order.
func (s *Set) Members() []int {
	out := make([]int, 0, s.size)
	for id := range s.All() {
		out = append(out, id)
	}
	return out
}

// String renders the members, e.g. "[1 2 3]".
func (s *Set) String() string {
	return fmt.Sprint(s.Members())
}
