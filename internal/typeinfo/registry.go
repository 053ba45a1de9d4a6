// Package typeinfo is the reflection cache: type descriptors for GUI types,
// classes of assemblies loaded in this session, and imported metadata.
package typeinfo

import (
	"sort"
	"sync"

	"rescomp/internal/script"
)

// Registry implements script.TypeProvider. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]*script.TypeDesc
	imported []*script.Metadata
	loaded   map[string]*script.TypeDesc
	cache    map[string]*script.TypeDesc
	hits     int
	misses   int
}

// NewRegistry returns a registry that knows the builtin GUI types.
func NewRegistry() *Registry {
	r := &Registry{
		builtins: make(map[string]*script.TypeDesc),
		loaded:   make(map[string]*script.TypeDesc),
		cache:    make(map[string]*script.TypeDesc),
	}
	for i := range builtinTypes {
		d := builtinTypes[i]
		r.builtins[d.Name] = &d
	}
	return r
}

// Import makes the classes of md resolvable. Imports survive Clear.
func (r *Registry) Import(md *script.Metadata) {
	if md == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imported = append(r.imported, md)
	clear(r.cache)
}

// Register adds the classes compiled into asm. Later registrations win.
func (r *Registry) Register(asm *script.Assembly) {
	if asm == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range asm.Classes {
		d := asm.Classes[i]
		r.loaded[d.Name] = &d
		delete(r.cache, d.Name)
	}
}

// LookupType resolves name: loaded classes, imports, then builtins.
func (r *Registry) LookupType(name string) (*script.TypeDesc, bool) {
	r.mu.RLock()
	if d, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		r.mu.Lock()
		r.hits++
		r.mu.Unlock()
		return d, true
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
	d := r.resolveLocked(name)
	if d == nil {
		return nil, false
	}
	r.cache[name] = d
	return d, true
}

func (r *Registry) resolveLocked(name string) *script.TypeDesc {
	if d, ok := r.loaded[name]; ok {
		return d
	}
	for i := len(r.imported) - 1; i >= 0; i-- {
		if d, ok := r.imported[i].LookupType(name); ok {
			return d
		}
	}
	return r.builtins[name]
}

// Event finds an event on typeName or one of its bases.
func (r *Registry) Event(typeName, event string) (script.EventDesc, bool) {
	seen := map[string]bool{}
	for cur := typeName; cur != "" && !seen[cur]; {
		seen[cur] = true
		d, ok := r.LookupType(cur)
		if !ok {
			break
		}
		if ev, ok := d.Event(event); ok {
			return ev, true
		}
		cur = d.Base
	}
	return script.EventDesc{}, false
}

// Prop finds a property, or a field, on typeName or one of its bases.
func (r *Registry) Prop(typeName, prop string) (script.PropDesc, bool) {
	seen := map[string]bool{}
	for cur := typeName; cur != "" && !seen[cur]; {
		seen[cur] = true
		d, ok := r.LookupType(cur)
		if !ok {
			break
		}
		if p, ok := d.Prop(prop); ok {
			return p, true
		}
		if f, ok := d.Field(prop); ok {
			return f, true
		}
		cur = d.Base
	}
	return script.PropDesc{}, false
}

// Clear forgets loaded classes and cached lookups.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.loaded)
	clear(r.cache)
}

// Stats reports cache hits and misses since creation.
func (r *Registry) Stats() (hits, misses int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hits, r.misses
}

// Names lists every resolvable type name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := map[string]bool{}
	for n := range r.builtins {
		set[n] = true
	}
	for _, md := range r.imported {
		for _, c := range md.Classes {
			set[c.Name] = true
		}
	}
	for n := range r.loaded {
		set[n] = true
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
