// Package memory provides the in-memory section and group registry for OVE core.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// Store is the section and group registry of one instance.
//
// Sections and groups are kept in arenas indexed by id. A nil slot is a
// tombstone: the id was issued once and is permanently invalid.
type Store struct {
	// Primary arena: SectionID -> Section (nil = deleted)
	sections []*domain.Section

	// Secondary index: Space -> set of SectionIDs
	spaceIndex *SpaceIndex

	// Group arena: GroupID -> SectionIDs (nil = deleted)
	groups [][]int

	mu sync.RWMutex
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		spaceIndex: NewSpaceIndex(),
	}
}

// Reset drops every section and group and restarts id allocation.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sections = nil
	s.groups = nil
	s.spaceIndex.Clear()
}

// ============================================================================
// Sections
// ============================================================================

// Create stores a new section and returns its id.
// The section's ID field is overwritten with the allocated id.
func (s *Store) Create(_ context.Context, section *domain.Section) (int, error) {
	if section == nil || section.Space == "" {
		return 0, domain.ErrInvalidSpace
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := section.Clone()
	clone.ID = len(s.sections)
	s.sections = append(s.sections, clone)
	s.spaceIndex.Add(clone.Space, clone.ID)

	return clone.ID, nil
}

// Get retrieves a live section by id.
func (s *Store) Get(_ context.Context, id int) (*domain.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	section, ok := s.live(id)
	if !ok {
		return nil, domain.ErrInvalidSectionID
	}
	return section.Clone(), nil
}

// Update replaces a live section. The section's ID selects the slot.
func (s *Store) Update(_ context.Context, section *domain.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(section)
}

// UpdateAll replaces several live sections at once. Either every section
// is replaced or, if any id is not live, none is.
func (s *Store) UpdateAll(_ context.Context, sections []*domain.Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, section := range sections {
		if _, ok := s.live(section.ID); !ok {
			return domain.ErrInvalidSectionID
		}
	}
	for _, section := range sections {
		if err := s.replace(section); err != nil {
			return err
		}
	}
	return nil
}

// Delete tombstones a section and removes it from every group. Groups left
// empty are deleted too. The removed section is returned.
func (s *Store) Delete(_ context.Context, id int) (*domain.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	section, ok := s.live(id)
	if !ok {
		return nil, domain.ErrInvalidSectionID
	}

	s.sections[id] = nil
	s.spaceIndex.Remove(section.Space, id)
	s.removeFromGroups(id)

	return section, nil
}

// List returns clones of the live sections in id order. An empty space
// lists every live section.
func (s *Store) List(_ context.Context, space string) []*domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if space != "" {
		ids := s.spaceIndex.Get(space)
		out := make([]*domain.Section, 0, len(ids))
		for _, id := range ids {
			out = append(out, s.sections[id].Clone())
		}
		return out
	}

	out := make([]*domain.Section, 0, len(s.sections))
	for _, section := range s.sections {
		if section != nil {
			out = append(out, section.Clone())
		}
	}
	return out
}

// ListIDs returns clones of the given live sections in id order. Unknown
// or deleted ids are skipped.
func (s *Store) ListIDs(_ context.Context, ids []int) []*domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make([]*domain.Section, 0, len(sorted))
	for _, id := range sorted {
		if section, ok := s.live(id); ok {
			out = append(out, section.Clone())
		}
	}
	return out
}

// Count returns the number of live sections.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, section := range s.sections {
		if section != nil {
			n++
		}
	}
	return n
}

func (s *Store) live(id int) (*domain.Section, bool) {
	if id < 0 || id >= len(s.sections) || s.sections[id] == nil {
		return nil, false
	}
	return s.sections[id], true
}

func (s *Store) replace(section *domain.Section) error {
	old, ok := s.live(section.ID)
	if !ok {
		return domain.ErrInvalidSectionID
	}
	if section.Space == "" {
		return domain.ErrInvalidSpace
	}
	if old.Space != section.Space {
		s.spaceIndex.Remove(old.Space, section.ID)
		s.spaceIndex.Add(section.Space, section.ID)
	}
	s.sections[section.ID] = section.Clone()
	return nil
}

// ============================================================================
// Groups
// ============================================================================

// CreateGroup stores a new group and returns its id.
func (s *Store) CreateGroup(_ context.Context, ids []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.validMembers(ids)
	if err != nil {
		return 0, err
	}
	s.groups = append(s.groups, members)
	return len(s.groups) - 1, nil
}

// UpdateGroup replaces the members of an existing group.
func (s *Store) UpdateGroup(_ context.Context, id int, ids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.liveGroup(id); !ok {
		return domain.ErrInvalidGroupID
	}
	members, err := s.validMembers(ids)
	if err != nil {
		return err
	}
	s.groups[id] = members
	return nil
}

// GetGroup retrieves a live group.
func (s *Store) GetGroup(_ context.Context, id int) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.liveGroup(id)
	if !ok {
		return nil, domain.ErrInvalidGroupID
	}
	return &domain.Group{ID: id, Sections: slices.Clone(members)}, nil
}

// DeleteGroup tombstones a group. The sections it references are untouched.
func (s *Store) DeleteGroup(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.liveGroup(id); !ok {
		return domain.ErrInvalidGroupID
	}
	s.groups[id] = nil
	return nil
}

// Groups returns every live group in id order.
func (s *Store) Groups(_ context.Context) []*domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Group, 0, len(s.groups))
	for id, members := range s.groups {
		if len(members) > 0 {
			out = append(out, &domain.Group{ID: id, Sections: slices.Clone(members)})
		}
	}
	return out
}

func (s *Store) liveGroup(id int) ([]int, bool) {
	if id < 0 || id >= len(s.groups) || len(s.groups[id]) == 0 {
		return nil, false
	}
	return s.groups[id], true
}

// validMembers checks every id is a live section and returns the ids
// deduplicated in request order.
func (s *Store) validMembers(ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, domain.ErrInvalidSectionID.WithDetails("group has no sections")
	}
	members := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.live(id); !ok {
			return nil, domain.ErrInvalidSectionID
		}
		if !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	return members, nil
}

func (s *Store) removeFromGroups(id int) {
	for gid, members := range s.groups {
		if len(members) == 0 {
			continue
		}
		idx := slices.Index(members, id)
		if idx < 0 {
			continue
		}
		members = slices.Delete(members, idx, idx+1)
		if len(members) == 0 {
			members = nil
		}
		s.groups[gid] = members
	}
}
