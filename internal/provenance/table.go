// Package provenance maps synthesized script nodes back to authored text.
package provenance

import (
	"sync"

	"rescomp/internal/script/ast"
	"rescomp/internal/source"
)

// Entry is where a node came from and the pass index after which it exists.
type Entry struct {
	Span           source.Span
	AvailableAfter int
}

// Table is the position table of one session.
type Table struct {
	mu      sync.RWMutex
	entries map[ast.NodeID]Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[ast.NodeID]Entry)}
}

// Record stores e for id, replacing an earlier entry.
func (t *Table) Record(id ast.NodeID, e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = e
}

func (t *Table) Lookup(id ast.NodeID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Clear drops every entry.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.entries)
}

// Fill records every node under root that has no entry yet: nodes with an
// authored position get that position, the rest get base.Span.
func (t *Table) Fill(root ast.Node, base Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fillLocked(root, base)
}

func (t *Table) fillLocked(root ast.Node, base Entry) {
	ast.Inspect(root, func(n ast.Node) bool {
		if _, ok := t.entries[n.ID()]; ok {
			return true
		}
		e := base
		if sp := n.Span(); !sp.IsZero() {
			e.Span = sp
		}
		t.entries[n.ID()] = e
		return true
	})
}

// Apply writes updates produced by Derive, in order.
func (t *Table) Apply(updates []Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range updates {
		if u.Fill {
			t.fillLocked(u.Root, u.Entry)
			continue
		}
		t.entries[u.Root.ID()] = u.Entry
	}
}
