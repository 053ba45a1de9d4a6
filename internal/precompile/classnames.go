package precompile

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"rescomp/internal/source"
)

// ClassEntry is one registration of a class name.
type ClassEntry struct {
	Name     string
	Resource string
	Pos      source.Span
}

// Duplicate lists every registration of Name, in registration order.
type Duplicate struct {
	Name    string
	Entries []ClassEntry
}

// ClassNames is the session registry of instance class names. Names are
// compared after NFC normalization; empty names are never inserted.
type ClassNames struct {
	mu      sync.Mutex
	entries []ClassEntry
	index   map[string][]int
}

func NewClassNames() *ClassNames {
	return &ClassNames{index: make(map[string][]int)}
}

func normalizeClassName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Insert registers name for resource, declared at pos. It reports false for an empty name.
func (c *ClassNames) Insert(name, resource string, pos source.Span) bool {
	name = normalizeClassName(name)
	if name == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[name] = append(c.index[name], len(c.entries))
	c.entries = append(c.entries, ClassEntry{Name: name, Resource: resource, Pos: pos})
	return true
}

func (c *ClassNames) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[normalizeClassName(name)]
	return ok
}

// Len counts registrations, duplicates included.
func (c *ClassNames) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns registrations in order.
func (c *ClassNames) Entries() []ClassEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ClassEntry(nil), c.entries...)
}

// Duplicates returns names registered more than once, ordered by first registration.
func (c *ClassNames) Duplicates() []Duplicate {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Duplicate
	reported := map[string]bool{}
	for _, e := range c.entries {
		idx := c.index[e.Name]
		if len(idx) < 2 || reported[e.Name] {
			continue
		}
		reported[e.Name] = true
		d := Duplicate{Name: e.Name}
		for _, i := range idx {
			d.Entries = append(d.Entries, c.entries[i])
		}
		out = append(out, d)
	}
	return out
}
