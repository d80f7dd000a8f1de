package treeset

import "fmt"

// Iterator walks a Set in ascending order. A fresh Iterator always starts
// at the lowest member. Mutating the set during iteration is not supported.
type Iterator struct {
	s      *Set
	bucket int
	next   uint
}

// Iterator returns a new iterator positioned before the lowest member.
func (s *Set) Iterator() *Iterator {
	return &Iterator{s: s}
}

// Next returns the next member, or false when the set is exhausted.
func (it *Iterator) Next() (int, bool) {
	for it.bucket < len(it.s.buckets) {
		b := it.s.buckets[it.bucket]
		if b != nil {
			if bit, ok := b.NextSet(it.next); ok {
				it.next = bit + 1
				return it.bucket*BucketBits + int(bit), true
			}
		}
		it.bucket++
		it.next = 0
	}
	return 0, false
}

// Reset rewinds the iterator to the lowest member.
func (it *Iterator) Reset() {
	it.bucket, it.next = 0, 0
}

// AddSubTree adds id and all its descendants, then adds every missing
// ancestor of id up to the root (or the first ancestor already present) so
// the subtree stays reachable from the root.
func (s *Set) AddSubTree(id int) error {
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.Add(cur)

		children, err := s.tree.Children(cur)
		if err != nil {
			return fmt.Errorf("add subtree %d: children of %d: %w", id, cur, err)
		}
		for _, c := range children {
			if c != cur {
				stack = append(stack, c)
			}
		}
	}

	return s.addAncestors(id)
}

// RemoveSubTree removes id and all its descendants. Ancestors are untouched.
func (s *Set) RemoveSubTree(id int) error {
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.Remove(cur)

		children, err := s.tree.Children(cur)
		if err != nil {
			return fmt.Errorf("remove subtree %d: children of %d: %w", id, cur, err)
		}
		for _, c := range children {
			if c != cur {
				stack = append(stack, c)
			}
		}
	}
	return nil
}

// PopulateWithParents adds the missing ancestors of every valid member.
// It works from a snapshot of the current membership, so ancestors added
// along the way are not themselves treated as starting points. Running it
// twice gives the same result as running it once.
func (s *Set) PopulateWithParents() error {
	snapshot := s.Clone()
	for id := range snapshot.All() {
		if !s.tree.Valid(id) {
			continue
		}
		if err := s.addAncestors(id); err != nil {
			return err
		}
	}
	return nil
}

// addAncestors walks up from id, adding parents until it reaches the root
// (the fixed point of Parent) or a parent that is already a member.
func (s *Set) addAncestors(id int) error {
	cur := id
	for {
		parent, err := s.tree.Parent(cur)
		if err != nil {
			return fmt.Errorf("parent of %d: %w", cur, err)
		}
		if parent == cur || s.IsMember(parent) {
			return nil
		}
		s.Add(parent)
		cur = parent
	}
}
