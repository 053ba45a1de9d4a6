package precompile

import (
	"context"

	"rescomp/internal/diag"
	"rescomp/internal/observ"
	"rescomp/internal/provenance"
	"rescomp/internal/resource"
	"rescomp/internal/script"
	"rescomp/internal/typeinfo"
	"rescomp/internal/workflow"
)

// PassEvent is reported to Options.Observe while the engine runs.
type PassEvent struct {
	Pass     int
	Name     string
	Resource string // empty for pass boundaries and per-pass hooks
	Done     bool   // pass finished
}

// Options configure a Session.
type Options struct {
	Strict bool
	Jobs   int
	// NewCompiler overrides the engine factory; the default builds a
	// script.Engine over the session type registry.
	NewCompiler func(name string) workflow.Compiler
	Types       *typeinfo.Registry
	Styles      map[string]*resource.StyleContext
	Diags       *diag.Bag
	Timer       *observ.Timer
	Observe     func(PassEvent)
}

// Session is the state of one compilation: every bucket, the position
// table and the class-name registry live here and die with it.
type Session struct {
	Store      *workflow.Store
	Arena      *workflow.Arena
	Positions  *provenance.Table
	ClassNames *ClassNames
	Types      *typeinfo.Registry
	Styles     map[string]*resource.StyleContext
	Diags      *diag.Bag
	Timer      *observ.Timer

	newCompiler func(name string) workflow.Compiler
	strict      bool
	jobs        int
	observe     func(PassEvent)
	pass        int
}

func NewSession(opts Options) *Session {
	s := &Session{
		Store:       workflow.NewStore(),
		Arena:       &workflow.Arena{},
		Positions:   provenance.NewTable(),
		ClassNames:  NewClassNames(),
		Types:       opts.Types,
		Styles:      opts.Styles,
		Diags:       opts.Diags,
		Timer:       opts.Timer,
		newCompiler: opts.NewCompiler,
		strict:      opts.Strict,
		jobs:        max(opts.Jobs, 1),
		observe:     opts.Observe,
		pass:        -1,
	}
	if s.Types == nil {
		s.Types = typeinfo.NewRegistry()
	}
	if s.Diags == nil {
		s.Diags = diag.NewBag(16)
	}
	if s.Styles == nil {
		s.Styles = map[string]*resource.StyleContext{}
	}
	if s.newCompiler == nil {
		s.newCompiler = func(name string) workflow.Compiler {
			return script.NewEngine(name, s.Types)
		}
	}
	return s
}

// Pass returns the pass index being run, -1 before the first pass.
func (s *Session) Pass() int { return s.pass }

// NewCompiler returns a fresh engine.
func (s *Session) NewCompiler(name string) workflow.Compiler { return s.newCompiler(name) }

func (s *Session) env() *workflow.Env {
	return &workflow.Env{
		Store:       s.Store,
		Arena:       s.Arena,
		Positions:   s.Positions,
		NewCompiler: s.newCompiler,
		Strict:      s.strict,
		Pass:        s.pass,
		Loaded:      func(b *workflow.Bucket) { s.Types.Register(b.Assembly) },
		Timer:       s.Timer,
	}
}

// GenerateAssembly lowers the bucket at path unless it already has an assembly.
func (s *Session) GenerateAssembly(ctx context.Context, path string, keepMetadata bool) error {
	return workflow.GenerateAssembly(ctx, s.env(), path, s.Diags, keepMetadata)
}

// Bucket returns the bucket at path, or nil.
func (s *Session) Bucket(path string) *workflow.Bucket {
	b, _ := s.Store.Get(path)
	return b
}

// HasAssembly reports whether the bucket at path has an assembly.
func (s *Session) HasAssembly(path string) bool {
	b := s.Bucket(path)
	return b != nil && b.Assembly != nil
}

func (s *Session) notify(ev PassEvent) {
	if s.observe != nil {
		s.observe(ev)
	}
}
