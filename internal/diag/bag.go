package diag

import "sync"

// Bag is the ordered diagnostics sink. It only appends: nothing is filtered,
// sorted or deduplicated, so the order of Items is the order of emission.
type Bag struct {
	mu    sync.Mutex
	items []Diagnostic
}

func NewBag(capHint int) *Bag {
	if capHint < 0 {
		capHint = 0
	}
	return &Bag{items: make([]Diagnostic, 0, capHint)}
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.mu.Lock()
	b.items = append(b.items, d)
	b.mu.Unlock()
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (b *Bag) HasErrors() bool {
	return b.Count(SevError) > 0
}

// HasWarnings возвращает true, если есть хотя бы одна диагностика с Severity >= Warning
func (b *Bag) HasWarnings() bool {
	return b.Count(SevWarning) > 0
}

// Count returns the number of diagnostics whose severity is at least sev.
func (b *Bag) Count(sev Severity) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.items {
		if b.items[i].Severity >= sev {
			n++
		}
	}
	return n
}

// длина
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items возвращает копию диагностик в порядке добавления.
func (b *Bag) Items() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	return out
}

// Merge appends every diagnostic of other, preserving its order.
func (b *Bag) Merge(other *Bag) {
	if other == nil || other == b {
		return
	}
	for _, d := range other.Items() {
		b.Add(d)
	}
}

// Sink receives diagnostics in the order they are produced. *Bag is the usual one.
type Sink interface {
	Add(d Diagnostic)
}
