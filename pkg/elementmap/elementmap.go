// Package elementmap holds the metadata table for primitive element classes.
//
// The compiler treats the table as read-only. Sources (files, loam
// directories, in-memory fixtures) populate a Map once and then share it
// across compilations.
package elementmap

import (
	"sort"
	"sync"

	"github.com/aretw0/weft/pkg/domain"
)

// Map is a thread-safe table of primitive class traits keyed by class name.
type Map struct {
	mu         sync.RWMutex
	traits     map[string]domain.Traits
	provisions map[string]bool
	extra      map[string]bool
	version    uint64
}

// New creates a map holding the given traits.
func New(traits ...domain.Traits) *Map {
	m := &Map{
		traits:     make(map[string]domain.Traits),
		provisions: make(map[string]bool),
		extra:      make(map[string]bool),
	}
	for _, t := range traits {
		m.Add(t)
	}
	return m
}

// Add registers traits. An entry with the same name is overwritten.
func (m *Map) Add(t domain.Traits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, replaced := m.traits[t.Name]
	m.traits[t.Name] = t
	m.version++
	if replaced {
		m.rebuildProvisions()
		return
	}
	m.provisions[t.Name] = true
	for _, w := range domain.Words(t.Provisions) {
		m.provisions[w] = true
	}
}

// Remove deletes the entry for name, if any.
func (m *Map) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.traits[name]; !ok {
		return
	}
	delete(m.traits, name)
	m.version++
	m.rebuildProvisions()
}

// Merge copies every entry of other into m.
func (m *Map) Merge(other *Map) {
	for _, t := range other.All() {
		m.Add(t)
	}
}

// Provide records a provision that no element class carries, such as a
// driver capability of the embedding environment.
func (m *Map) Provide(words ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range words {
		m.extra[w] = true
	}
	m.version++
	m.rebuildProvisions()
}

func (m *Map) rebuildProvisions() {
	keep := make(map[string]bool, len(m.extra)+len(m.traits))
	for w := range m.extra {
		keep[w] = true
	}
	for name, t := range m.traits {
		keep[name] = true
		for _, w := range domain.Words(t.Provisions) {
			keep[w] = true
		}
	}
	m.provisions = keep
}

// Lookup returns the traits registered for name.
func (m *Map) Lookup(name string) (domain.Traits, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.traits[name]
	return t, ok
}

// Provides reports whether some class or explicit provision satisfies word.
// Every class name counts as a provision of itself.
func (m *Map) Provides(word string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provisions[word]
}

// Version changes whenever the table changes.
func (m *Map) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Len returns the number of registered classes.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.traits)
}

// Names returns the registered class names in sorted order.
func (m *Map) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.traits))
	for name := range m.traits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every entry sorted by name.
func (m *Map) All() []domain.Traits {
	names := m.Names()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Traits, 0, len(names))
	for _, name := range names {
		if t, ok := m.traits[name]; ok {
			out = append(out, t)
		}
	}
	return out
}
