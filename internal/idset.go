package internal

import "slices"

// idSet is an insertion-ordered set of handles.
// Subjects keep their subscribers as watcher ids and watchers keep their
// dependencies as subject ids, so neither side owns the other.
type idSet struct {
	order []uint64
	index map[uint64]struct{}
}

func newIDSet() idSet {
	return idSet{index: make(map[uint64]struct{})}
}

func (s *idSet) Has(id uint64) bool {
	_, ok := s.index[id]
	return ok
}

// Add appends id if absent and reports whether it was added.
func (s *idSet) Add(id uint64) bool {
	if s.index == nil {
		s.index = make(map[uint64]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}

	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *idSet) Remove(id uint64) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)

	if i := slices.Index(s.order, id); i != -1 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

func (s *idSet) Len() int { return len(s.order) }

// Snapshot returns a copy safe to iterate while the set is being mutated.
func (s *idSet) Snapshot() []uint64 {
	return slices.Clone(s.order)
}

func (s *idSet) Clear() {
	s.order = s.order[:0]
	clear(s.index)
}
