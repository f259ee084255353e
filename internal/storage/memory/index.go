package memory

import "sort"

// idSet is a set of section ids.
type idSet map[int]struct{}

// sorted returns the ids in ascending order.
func (s idSet) sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SpaceIndex provides secondary indexing for sections by space.
//
// It maintains a mapping from space name to the set of live section ids
// placed in that space. It is not safe for concurrent use on its own;
// the Store guards it with its lock.
type SpaceIndex struct {
	index map[string]idSet
}

// NewSpaceIndex creates a new space index.
func NewSpaceIndex() *SpaceIndex {
	return &SpaceIndex{index: make(map[string]idSet)}
}

// Add records a section under a space.
func (i *SpaceIndex) Add(space string, id int) {
	set, ok := i.index[space]
	if !ok {
		set = make(idSet)
		i.index[space] = set
	}
	set[id] = struct{}{}
}

// Remove drops a section from a space, cleaning up empty sets.
func (i *SpaceIndex) Remove(space string, id int) {
	set, ok := i.index[space]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(i.index, space)
	}
}

// Get returns the live section ids of a space in ascending order.
func (i *SpaceIndex) Get(space string) []int {
	set, ok := i.index[space]
	if !ok {
		return nil
	}
	return set.sorted()
}

// Count returns the number of live sections in a space.
func (i *SpaceIndex) Count(space string) int {
	return len(i.index[space])
}

// Clear drops every entry.
func (i *SpaceIndex) Clear() {
	i.index = make(map[string]idSet)
}
