package store

import (
	"sync"

	"github.com/rickgao/spreadcache/internal/model"
)

// KeyMutex hands out one mutex per key. Entries are dropped once no
// goroutine holds or waits for them.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[model.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex creates an empty KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[model.Key]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (m *KeyMutex) Lock(key model.Key) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Len returns the number of keys currently held or awaited.
func (m *KeyMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
