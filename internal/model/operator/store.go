package operator

// Store exposes operator lookup for the identity service.
type Store interface {
	List() []Operator
	FindByUsername(username string) (Operator, bool)
}

// MemoryStore implements Store with an in-memory slice loaded at startup.
type MemoryStore struct {
	items []Operator
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied operators.
// Later entries win when a username appears twice.
func NewMemoryStore(items []Operator) *MemoryStore {
	deduped := make([]Operator, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := index[item.Username]; ok {
			deduped[i] = item
			continue
		}
		index[item.Username] = len(deduped)
		deduped = append(deduped, item)
	}
	return &MemoryStore{items: deduped}
}

// List returns the configured operators.
func (s *MemoryStore) List() []Operator {
	return append([]Operator(nil), s.items...)
}

// FindByUsername looks up an operator by username.
func (s *MemoryStore) FindByUsername(username string) (Operator, bool) {
	for _, item := range s.items {
		if item.Username == username {
			return item, true
		}
	}
	return Operator{}, false
}
