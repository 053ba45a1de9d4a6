// Package workflow keeps the script modules produced from resources in named
// buckets and lowers each bucket into an assembly at most once per invalidation.
package workflow

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"rescomp/internal/script"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
)

// Kind is fixed when a bucket is first created.
type Kind uint8

const (
	KindShared Kind = iota + 1
	KindTemporaryUnit
	KindCombinedUnit
)

func (k Kind) String() string {
	switch k {
	case KindShared:
		return "Shared"
	case KindTemporaryUnit:
		return "TemporaryUnit"
	case KindCombinedUnit:
		return "CombinedUnit"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Bucket paths used by the resolvers.
const (
	PathShared         = "Workflow/Shared"
	PathTemporaryClass = "Workflow/TemporaryClass"
	PathInstanceClass  = "Workflow/InstanceClass"
)

// ErrKindMismatch is returned when a bucket is populated under a kind other than its own.
var ErrKindMismatch = errors.New("bucket kind mismatch")

// ModuleID addresses a module in the session Arena.
type ModuleID int32

// Arena owns every module of a session. Buckets refer to modules by ID, so
// copying a record into another bucket never clones a tree.
type Arena struct {
	mu      sync.RWMutex
	modules []*ast.Module
}

func (a *Arena) Add(m *ast.Module) ModuleID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.modules = append(a.modules, m)
	return ModuleID(len(a.modules) - 1)
}

// Get returns nil for an unknown ID.
func (a *Arena) Get(id ModuleID) *ast.Module {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id < 0 || int(id) >= len(a.modules) {
		return nil
	}
	return a.modules[id]
}

func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.modules)
}

// ModuleRecord is one contribution to a bucket.
type ModuleRecord struct {
	Module   ModuleID
	Position source.Span // tag position of the contributing resource
	Shared   bool
	Resource string
}

// Bucket accumulates modules destined for one assembly.
type Bucket struct {
	Path     string
	Kind     Kind
	Records  []ModuleRecord
	Assembly *script.Assembly
	Context  *script.Context
	Metadata *script.Metadata
}

// Invalidate drops the assembly, its loaded context and retained metadata.
func (b *Bucket) Invalidate() {
	b.ReleaseContext()
	b.Assembly = nil
	b.Metadata = nil
}

// ReleaseContext unloads the execution context but keeps the assembly.
func (b *Bucket) ReleaseContext() {
	if b.Context != nil {
		b.Context.Release()
		b.Context = nil
	}
}

// SharedRecords returns the records flagged as shared, in contribution order.
func (b *Bucket) SharedRecords() []ModuleRecord {
	var out []ModuleRecord
	for _, r := range b.Records {
		if r.Shared {
			out = append(out, r)
		}
	}
	return out
}

// Store maps bucket paths to buckets for one session.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

func NewStore() *Store {
	return &Store{buckets: make(map[string]*Bucket)}
}

// Get returns the bucket at path, if it was created.
func (s *Store) Get(path string) (*Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[path]
	return b, ok
}

// Ensure returns the bucket at path, creating it with kind when absent.
func (s *Store) Ensure(path string, kind Kind) (*Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(path, kind)
}

func (s *Store) ensureLocked(path string, kind Kind) (*Bucket, error) {
	if b, ok := s.buckets[path]; ok {
		if b.Kind != kind {
			return nil, fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, path, b.Kind, kind)
		}
		return b, nil
	}
	b := &Bucket{Path: path, Kind: kind}
	s.buckets[path] = b
	return b, nil
}

// AddModule appends rec to the bucket at path.
func (s *Store) AddModule(path string, kind Kind, rec ModuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.ensureLocked(path, kind)
	if err != nil {
		return err
	}
	b.Records = append(b.Records, rec)
	return nil
}

// CopyShared appends the shared records of from to the bucket at to.
func (s *Store) CopyShared(from, to string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst, err := s.ensureLocked(to, kind)
	if err != nil {
		return err
	}
	if src, ok := s.buckets[from]; ok {
		dst.Records = append(dst.Records, src.SharedRecords()...)
	}
	return nil
}

// ClearRecords drops the records of the bucket at path. The assembly stays.
func (s *Store) ClearRecords(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[path]; ok {
		b.Records = nil
	}
}

// Paths lists bucket paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.buckets))
	for p := range s.buckets {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
