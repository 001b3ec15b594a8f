// Package session keeps one activity ledger per authenticated subject in memory.
package session

import (
	"sort"
	"sync"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/observability"
)

// InMemoryStore maps session keys to ledgers for the lifetime of the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	ledgers map[domain.SessionKey]*domain.Ledger
	opts    []domain.Option
}

// NewInMemoryStore constructs an empty store. The options are applied to every ledger it creates.
func NewInMemoryStore(opts ...domain.Option) *InMemoryStore {
	return &InMemoryStore{
		ledgers: make(map[domain.SessionKey]*domain.Ledger),
		opts:    opts,
	}
}

// Ledger implements domain.SessionStore.
func (s *InMemoryStore) Ledger(key domain.SessionKey) *domain.Ledger {
	s.mu.RLock()
	ledger, ok := s.ledgers[key]
	s.mu.RUnlock()
	if ok {
		return ledger
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger, ok := s.ledgers[key]; ok {
		return ledger
	}
	ledger = domain.NewLedger(s.opts...)
	s.ledgers[key] = ledger
	observability.SetSessions(len(s.ledgers))
	return ledger
}

// Drop discards a session and everything it holds.
func (s *InMemoryStore) Drop(key domain.SessionKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledgers[key]; !ok {
		return false
	}
	delete(s.ledgers, key)
	observability.SetSessions(len(s.ledgers))
	return true
}

// Len reports the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ledgers)
}

// Keys lists live sessions in a stable order.
func (s *InMemoryStore) Keys() []domain.SessionKey {
	s.mu.RLock()
	keys := make([]domain.SessionKey, 0, len(s.ledgers))
	for key := range s.ledgers {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}
