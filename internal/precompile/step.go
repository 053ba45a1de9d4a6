package precompile

import (
	"fmt"

	"rescomp/internal/diag"
	"rescomp/internal/provenance"
	"rescomp/internal/resource"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
	"rescomp/internal/workflow"
)

type pendingClass struct {
	name string
	pos  source.Span
}

type pendingModule struct {
	path   string
	kind   workflow.Kind
	module *ast.Module
	pos    source.Span
	shared bool
}

// Step is what one per-resource invocation produced. Steps of one pass run
// independently and are committed to the session in resource order.
type Step struct {
	Session  *Session
	Pass     int
	Resource *resource.Resource

	modules []pendingModule
	classes []pendingClass
	diags   []diag.Diagnostic
}

func newStep(s *Session, pass int, res *resource.Resource) *Step {
	return &Step{Session: s, Pass: pass, Resource: res}
}

// AddModule queues m for the bucket at path, tagged with pos.
func (st *Step) AddModule(path string, kind workflow.Kind, m *ast.Module, pos source.Span, shared bool) {
	st.modules = append(st.modules, pendingModule{path: path, kind: kind, module: m, pos: pos, shared: shared})
}

// RegisterClass queues a class name declared at pos for the session registry.
func (st *Step) RegisterClass(name string, pos source.Span) {
	st.classes = append(st.classes, pendingClass{name: name, pos: pos})
}

// Report queues a diagnostic on behalf of the step's resource.
func (st *Step) Report(sev diag.Severity, code diag.Code, pos source.Span, format string, args ...any) {
	d := diag.New(sev, code, pos, fmt.Sprintf(format, args...))
	st.diags = append(st.diags, d.WithResource(st.Resource.Name))
}

// ReportAll queues already built diagnostics.
func (st *Step) ReportAll(ds []diag.Diagnostic) {
	for _, d := range ds {
		st.diags = append(st.diags, d.WithResource(st.Resource.Name))
	}
}

// Errors counts the error diagnostics queued so far.
func (st *Step) Errors() int {
	n := 0
	for _, d := range st.diags {
		if d.Severity == diag.SevError {
			n++
		}
	}
	return n
}

// flush moves the queued diagnostics to the session sink.
func (st *Step) flush() {
	for _, d := range st.diags {
		st.Session.Diags.Add(d)
	}
	st.diags = nil
}

// commit applies the step. Diagnostics go first so a structural failure
// still leaves them in the sink.
func (st *Step) commit() error {
	s := st.Session
	st.flush()
	for _, c := range st.classes {
		s.ClassNames.Insert(c.name, st.Resource.Name, c.pos)
	}
	for _, pm := range st.modules {
		id := s.Arena.Add(pm.module)
		s.Positions.Record(pm.module.ID(), provenance.Entry{Span: pm.pos, AvailableAfter: st.Pass})
		rec := workflow.ModuleRecord{Module: id, Position: pm.pos, Shared: pm.shared, Resource: st.Resource.Name}
		if err := s.Store.AddModule(pm.path, pm.kind, rec); err != nil {
			return err
		}
	}
	return nil
}
