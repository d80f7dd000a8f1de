package treeset

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTree builds this hierarchy:
//
//	0
//	├── 1
//	│   ├── 3
//	│   └── 4
//	└── 2
//	    └── 5
//	        └── 6
func testTree() Funcs {
	parent := []int{0, 0, 0, 1, 1, 2, 5}
	children := make([][]int, len(parent))
	for id, p := range parent {
		if id != p {
			children[p] = append(children[p], id)
		}
	}
	return Funcs{
		ParentFunc:   func(id int) int { return parent[id] },
		ChildrenFunc: func(id int) []int { return children[id] },
	}
}

func newTestSet(ids ...int) *Set {
	s := New(testTree(), 0)
	s.AddAll(ids...)
	return s
}

func TestSet_AddRemoveIsMember(t *testing.T) {
	s := New(testTree(), 100000)

	s.Add(5)
	s.Add(5000)
	s.Add(5)

	assert.Equal(t, 2, s.Size())
	assert.True(t, s.IsMember(5))
	assert.True(t, s.IsMember(5000))
	assert.False(t, s.IsMember(6))
	assert.False(t, s.IsMember(-1))
	assert.False(t, s.IsMember(1_000_000))

	s.Remove(5)
	s.Remove(5)
	s.Remove(99)
	assert.Equal(t, 1, s.Size())
	assert.False(t, s.IsMember(5))
}

func TestSet_RemoveFreesEmptyBucket(t *testing.T) {
	s := New(testTree(), 0)
	s.Add(BucketBits*3 + 7)
	require.NotNil(t, s.buckets[3])

	s.Remove(BucketBits*3 + 7)
	assert.Nil(t, s.buckets[3])
	assert.True(t, s.IsEmpty())
}

func TestSet_SparseBucketsStayNil(t *testing.T) {
	s := New(testTree(), 0)
	s.Add(0)
	s.Add(BucketBits * 10)

	nonNil := 0
	for _, b := range s.buckets {
		if b != nil {
			nonNil++
		}
	}
	assert.Equal(t, 2, nonNil)
}

func TestSet_GrowthIncrementIncreases(t *testing.T) {
	s := New(testTree(), 0)

	s.Add(0)
	assert.Len(t, s.buckets, initialGrowth)

	s.Add(initialGrowth * BucketBits)
	assert.Len(t, s.buckets, initialGrowth+2*initialGrowth)

	s.Add(len(s.buckets) * BucketBits)
	assert.Len(t, s.buckets, initialGrowth+2*initialGrowth+3*initialGrowth)
}

func TestSet_GrowthCappedAtMaxID(t *testing.T) {
	s := New(testTree(), BucketBits+1)
	s.Add(BucketBits)
	assert.Len(t, s.buckets, 2)
}

func TestSet_AddOutOfRangePanics(t *testing.T) {
	s := New(testTree(), 10)

	assert.Panics(t, func() { s.Add(10) })
	assert.Panics(t, func() { s.Add(-1) })

	defer func() {
		r := recover()
		var be *BoundsError
		require.True(t, errors.As(r.(error), &be))
		assert.Equal(t, 42, be.ID)
		assert.Equal(t, 10, be.Max)
	}()
	s.Add(42)
}

func TestSet_SizeMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New(testTree(), 50000)
	model := map[int]bool{}

	for i := 0; i < 20000; i++ {
		id := rng.Intn(50000)
		if rng.Intn(3) == 0 {
			s.Remove(id)
			delete(model, id)
		} else {
			s.Add(id)
			model[id] = true
		}
	}

	require.Equal(t, len(model), s.Size())
	for id := range model {
		require.True(t, s.IsMember(id), "missing %d", id)
	}
	count := 0
	for id := range s.All() {
		require.True(t, model[id], "unexpected %d", id)
		count++
	}
	assert.Equal(t, len(model), count)
}

func TestSet_IterationAscending(t *testing.T) {
	s := newTestSet()
	s.AddAll(9000, 3, 2048, 2047, 0, 50000)

	assert.Equal(t, []int{0, 3, 2047, 2048, 9000, 50000}, s.Members())

	it := s.Iterator()
	var got []int
	for id, ok := it.Next(); ok; id, ok = it.Next() {
		got = append(got, id)
	}
	assert.Equal(t, s.Members(), got)

	// A fresh iterator and a reset iterator both restart at the lowest member.
	first, ok := s.Iterator().Next()
	require.True(t, ok)
	assert.Equal(t, 0, first)

	it.Reset()
	first, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, 0, first)
}

func TestSet_IterationEarlyBreak(t *testing.T) {
	s := newTestSet(1, 2, 3, 4)
	var got []int
	for id := range s.All() {
		if id == 3 {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := newTestSet(1, 2, 3)
	c := s.Clone()

	c.Add(4)
	c.Remove(1)

	assert.Equal(t, []int{1, 2, 3}, s.Members())
	assert.Equal(t, []int{2, 3, 4}, c.Members())
}

// Merge then extract with overlapping sets does not restore the original.
func TestSet_MergeThenExtract(t *testing.T) {
	a := newTestSet(1, 2)
	b := newTestSet(2, 3)

	a.MergeSet(b)
	assert.Equal(t, []int{1, 2, 3}, a.Members())
	assert.Equal(t, 3, a.Size())

	a.ExtractSet(b)
	assert.Equal(t, []int{1}, a.Members())
	assert.Equal(t, 1, a.Size())
	assert.Equal(t, []int{2, 3}, b.Members(), "argument is untouched")
}

func TestSet_MergeIntoEmptyBuckets(t *testing.T) {
	a := New(testTree(), 0)
	b := New(testTree(), 0)
	b.AddAll(10, BucketBits*5+1)

	a.MergeSet(b)
	assert.Equal(t, []int{10, BucketBits*5 + 1}, a.Members())

	// The merged bucket is a copy, not shared.
	b.Remove(10)
	assert.True(t, a.IsMember(10))
}

func TestSet_MergeOutOfRangePanics(t *testing.T) {
	small := New(testTree(), 100)
	big := New(testTree(), 0)
	big.Add(150)

	assert.Panics(t, func() { small.MergeSet(big) })

	big2 := New(testTree(), 0)
	big2.Add(99)
	assert.NotPanics(t, func() { small.MergeSet(big2) })
}

func TestSet_ExtractFreesBuckets(t *testing.T) {
	a := newTestSet(1, 2)
	a.ExtractSet(newTestSet(1, 2, 3))
	assert.True(t, a.IsEmpty())
	assert.Nil(t, a.buckets[0])
}

func TestSet_Intersect(t *testing.T) {
	a := newTestSet(1, 2, 3, BucketBits*2)
	a.Intersect(newTestSet(2, 3, 4))
	assert.Equal(t, []int{2, 3}, a.Members())
	assert.Equal(t, 2, a.Size())
}

func TestSet_Equal(t *testing.T) {
	assert.True(t, newTestSet(1, 2).Equal(newTestSet(2, 1)))
	assert.False(t, newTestSet(1, 2).Equal(newTestSet(1, 3)))
	assert.False(t, newTestSet(1).Equal(newTestSet(1, 2)))

	// Trailing nil buckets do not affect equality.
	a := newTestSet(1, BucketBits*8)
	a.Remove(BucketBits * 8)
	assert.True(t, a.Equal(newTestSet(1)))
}

func TestSet_Clear(t *testing.T) {
	s := newTestSet(1, 2, 3)
	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.Members())
	s.Add(4)
	assert.Equal(t, []int{4}, s.Members())
}

func TestSet_AddSubTree(t *testing.T) {
	s := newTestSet()
	require.NoError(t, s.AddSubTree(2))

	// 2's subtree plus its ancestor chain to the root.
	assert.Equal(t, []int{0, 2, 5, 6}, s.Members())
}

func TestSet_AddSubTreeStopsAtPresentAncestor(t *testing.T) {
	calls := 0
	tree := testTree()
	parentOf := tree.ParentFunc
	tree.ParentFunc = func(id int) int {
		calls++
		return parentOf(id)
	}

	s := New(tree, 0)
	s.Add(5)
	require.NoError(t, s.AddSubTree(6))

	assert.Equal(t, []int{5, 6}, s.Members(), "walk stops at 5, root not added")
	assert.Equal(t, 1, calls)
}

func TestSet_AddThenRemoveSubTreeLeavesOnlyAncestors(t *testing.T) {
	s := newTestSet()
	require.NoError(t, s.AddSubTree(5))
	assert.Equal(t, []int{0, 2, 5, 6}, s.Members())

	require.NoError(t, s.RemoveSubTree(5))
	assert.Equal(t, []int{0, 2}, s.Members())
}

func TestSet_AddRemoveSubTreeOfRootReturnsEmpty(t *testing.T) {
	s := newTestSet()
	require.NoError(t, s.AddSubTree(0))
	assert.Equal(t, 7, s.Size())
	require.NoError(t, s.RemoveSubTree(0))
	assert.True(t, s.IsEmpty())
}

func TestSet_RemoveSubTreeLeavesAncestors(t *testing.T) {
	s := newTestSet(0, 1, 2, 3, 4, 5, 6)
	require.NoError(t, s.RemoveSubTree(1))
	assert.Equal(t, []int{0, 2, 5, 6}, s.Members())
}

func TestSet_PopulateWithParents(t *testing.T) {
	s := newTestSet(3, 6)
	require.NoError(t, s.PopulateWithParents())
	assert.Equal(t, []int{0, 1, 2, 3, 5, 6}, s.Members())
}

func TestSet_PopulateWithParentsIdempotent(t *testing.T) {
	once := newTestSet(4, 6)
	require.NoError(t, once.PopulateWithParents())

	twice := newTestSet(4, 6)
	require.NoError(t, twice.PopulateWithParents())
	require.NoError(t, twice.PopulateWithParents())

	assert.True(t, once.Equal(twice))
}

func TestSet_PopulateWithParentsSkipsInvalid(t *testing.T) {
	tree := testTree()
	tree.ValidFunc = func(id int) bool { return id != 6 }

	s := New(tree, 0)
	s.AddAll(3, 6)
	require.NoError(t, s.PopulateWithParents())

	assert.Equal(t, []int{0, 1, 3, 6}, s.Members())
}

type failingTree struct{ Funcs }

func (failingTree) Children(int) ([]int, error) { return nil, errors.New("store closed") }
func (failingTree) Parent(int) (int, error)     { return 0, errors.New("store closed") }

func TestSet_TreeErrorsPropagate(t *testing.T) {
	s := New(failingTree{}, 0)
	assert.Error(t, s.AddSubTree(1))
	assert.Error(t, s.RemoveSubTree(1))

	s.Add(3)
	assert.Error(t, s.PopulateWithParents())
}
