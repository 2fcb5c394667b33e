package index

import (
	"fmt"
	"sync"
)

// MultiIndex namespaces named triple indexes. There is no single teacher
// analog — storage.Database wraps exactly one BadgerStore — so this is new
// code styled after storage.NewDatabase's constructor conventions and the
// precondition-violation-panics-loudly style of database.go's Transaction
// guards.
type MultiIndex struct {
	mu      sync.RWMutex
	indexes map[string]*TripleIndex
}

// NewMultiIndex returns an empty namespace of named triple indexes.
func NewMultiIndex() *MultiIndex {
	return &MultiIndex{indexes: make(map[string]*TripleIndex)}
}

// Register adds idx under name. Registering a name that already exists is a
// precondition violation: a programmer error, not a recoverable one, so
// this panics rather than returning an error (spec.md §4.3, §7).
func (m *MultiIndex) Register(name string, idx *TripleIndex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.indexes[name]; exists {
		panic(fmt.Sprintf("index: database %q already registered", name))
	}
	m.indexes[name] = idx
}

// Unregister removes name. Unregistering a name that was never registered is
// a precondition violation.
func (m *MultiIndex) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.indexes[name]; !exists {
		panic(fmt.Sprintf("index: database %q is not registered", name))
	}
	delete(m.indexes, name)
}

// Get returns the triple index registered under name, or nil if none.
func (m *MultiIndex) Get(name string) *TripleIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexes[name]
}

// Names returns every registered database name.
func (m *MultiIndex) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.indexes))
	for n := range m.indexes {
		names = append(names, n)
	}
	return names
}

// Snapshot returns a shallow copy of the name→index map, suitable for
// passing to ChangeSet.Commit without holding MultiIndex's lock across the
// commit.
func (m *MultiIndex) Snapshot() map[string]*TripleIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*TripleIndex, len(m.indexes))
	for n, idx := range m.indexes {
		out[n] = idx
	}
	return out
}
