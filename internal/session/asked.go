package session

// DefaultAskedLimit bounds the asked set when no explicit limit is configured.
const DefaultAskedLimit = 500

// AskedSet is an insertion-ordered set of question ids with a fixed capacity.
// When the capacity is reached the oldest id is evicted.
type AskedSet struct {
	limit int
	order []string
	index map[string]struct{}
}

// NewAskedSet creates an empty set holding at most limit ids.
func NewAskedSet(limit int) *AskedSet {
	if limit <= 0 {
		limit = DefaultAskedLimit
	}
	return &AskedSet{
		limit: limit,
		index: make(map[string]struct{}),
	}
}

// Add inserts id and reports whether the set changed.
// Re-adding a known id does not refresh its position.
func (s *AskedSet) Add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.index[id]; ok {
		return false
	}

	if len(s.order) >= s.limit {
		oldest := s.order[0]
		delete(s.index, oldest)
		s.order = append(s.order[:0], s.order[1:]...)
	}

	s.order = append(s.order, id)
	s.index[id] = struct{}{}
	return true
}

// Contains reports whether id is in the set.
func (s *AskedSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of ids in the set.
func (s *AskedSet) Len() int {
	return len(s.order)
}

// IDs returns a copy of the ids, oldest first.
func (s *AskedSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clear removes every id.
func (s *AskedSet) Clear() {
	s.order = nil
	s.index = make(map[string]struct{})
}
