// Package recorder keeps a bounded, in-memory history of cycle snapshots.
package recorder

import (
	"sync"

	"github.com/hamed0406/healthalert/internal/domain"
)

// DefaultMaxRecordings is used when an alert does not set maxRecordings.
const DefaultMaxRecordings = 3

type Store struct {
	mu    sync.RWMutex
	max   int
	items []domain.Snapshot // oldest first
}

// New returns a store holding at most max snapshots. max <= 0 selects
// DefaultMaxRecordings.
func New(max int) *Store {
	if max <= 0 {
		max = DefaultMaxRecordings
	}
	return &Store{max: max, items: make([]domain.Snapshot, 0, max)}
}

// Record appends s, evicting the oldest snapshot once the store is full.
func (m *Store) Record(s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == m.max {
		copy(m.items, m.items[1:])
		m.items = m.items[:m.max-1]
	}
	m.items = append(m.items, s)
	return nil
}

func (m *Store) Latest() (domain.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.items) == 0 {
		return domain.Snapshot{}, false
	}
	return m.items[len(m.items)-1], true
}

// All returns a copy of the history, oldest first.
func (m *Store) All() []domain.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Snapshot, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Store) Max() int { return m.max }
