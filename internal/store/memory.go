package store

import (
	"context"
	"sync"
	"time"

	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

// MemoryStore keeps messages in process memory. Used for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]contact.Message
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]contact.Message)}
}

// Put stores msg unless its id is already taken.
func (s *MemoryStore) Put(_ context.Context, msg contact.Message) error {
	defer observe("memory", "put", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return ErrDuplicateID
	}
	s.messages[msg.ID] = msg
	return nil
}

// ScanAll returns every stored message in no particular order.
func (s *MemoryStore) ScanAll(_ context.Context) ([]contact.Message, error) {
	defer observe("memory", "scan", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contact.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		out = append(out, msg)
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
