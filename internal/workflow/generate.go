package workflow

import (
	"context"
	"fmt"

	"rescomp/internal/diag"
	"rescomp/internal/observ"
	"rescomp/internal/provenance"
	"rescomp/internal/script"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
	"rescomp/internal/trace"
)

// Compiler is the script compilation engine as seen by assembly generation.
// *script.Engine implements it.
type Compiler interface {
	Parse(src []byte, region source.Region) (*ast.Module, []script.Error)
	AddModule(m *ast.Module)
	Rebuild(strict bool) []script.Error
	GenerateAssembly() (*script.Assembly, error)
	Clear(keepTypes, fullReset bool)
	ExtractMetadata() *script.Metadata
}

// Env is the part of a session assembly generation works with.
type Env struct {
	Store     *Store
	Arena     *Arena
	Positions *provenance.Table
	// NewCompiler returns a fresh engine for one generation.
	NewCompiler func(name string) Compiler
	Strict      bool
	Pass        int
	// Loaded is called with every assembly whose context was initialized.
	Loaded func(b *Bucket)
	Timer  *observ.Timer
}

// GenerateAssembly lowers the bucket at path unless it already has an
// assembly. Engine errors become diagnostics in sink; the assembly then stays
// absent. A missing bucket is not an error. The returned error is reserved
// for broken invariants.
func GenerateAssembly(ctx context.Context, env *Env, path string, sink diag.Sink, keepMetadata bool) error {
	b, ok := env.Store.Get(path)
	if !ok || b.Assembly != nil {
		return nil
	}

	tr := trace.FromContext(ctx)
	span := trace.BeginPass(tr, trace.ScopeResource, "generate", env.Pass, path, trace.CurrentSpan(ctx)).
		WithExtra("records", fmt.Sprint(len(b.Records)))
	phase := env.Timer.Begin("generate " + path)

	compiler := env.NewCompiler(path)
	modules := make([]*ast.Module, len(b.Records))
	for i, rec := range b.Records {
		m := env.Arena.Get(rec.Module)
		if m == nil {
			span.End("broken")
			env.Timer.End(phase, "")
			return fmt.Errorf("%s: record %d refers to unknown module %d", path, i, rec.Module)
		}
		modules[i] = m
		compiler.AddModule(m)
	}

	outcome := "ok"
	if errs := compiler.Rebuild(env.Strict); len(errs) > 0 {
		outcome = fmt.Sprintf("%d errors", len(errs))
		reportErrors(env, b, modules, errs, sink)
		trace.Failure(tr, env.Pass, path, outcome)
	} else {
		asm, err := compiler.GenerateAssembly()
		if err != nil {
			span.End("broken")
			env.Timer.End(phase, "")
			return fmt.Errorf("%s: %w", path, err)
		}
		b.Assembly = asm
		if err := load(b); err != nil {
			outcome = "init failed"
			sink.Add(diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.PreAssemblyFailed,
				Message:  fmt.Sprintf("%s: %v", path, err),
				Resource: firstResource(b),
				Primary:  firstPosition(b),
			})
		} else if env.Loaded != nil {
			env.Loaded(b)
		}
	}

	if keepMetadata {
		b.Metadata = compiler.ExtractMetadata()
	}
	compiler.Clear(false, true)
	span.End(outcome)
	env.Timer.End(phase, outcome)
	return nil
}

func load(b *Bucket) error {
	cx, err := script.Load(b.Assembly)
	if err != nil {
		return err
	}
	if err := cx.Initialize(); err != nil {
		return err
	}
	b.Context = cx
	return nil
}

// reportErrors derives positions for expanded nodes, fills the rest of each
// module with its record's tag position, and emits one diagnostic per error.
func reportErrors(env *Env, b *Bucket, modules []*ast.Module, errs []script.Error, sink diag.Sink) {
	owner := make(map[ast.NodeID]int)
	for i, m := range modules {
		base := provenance.Entry{Span: b.Records[i].Position, AvailableAfter: env.Pass}
		env.Positions.Apply(provenance.Derive(m, env.Positions, base))
		env.Positions.Fill(m, base)
		ast.Inspect(m, func(n ast.Node) bool {
			if _, seen := owner[n.ID()]; !seen {
				owner[n.ID()] = i
			}
			return true
		})
	}
	for _, e := range errs {
		rec := ModuleRecord{Position: firstPosition(b), Resource: firstResource(b)}
		if i, ok := owner[e.Node]; ok {
			rec = b.Records[i]
		}
		pos := rec.Position
		if entry, ok := env.Positions.Lookup(e.Node); ok && !entry.Span.IsZero() {
			pos = entry.Span
		} else if !e.Span.IsZero() {
			pos = e.Span
		}
		sink.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     e.Code,
			Message:  e.Message,
			Resource: rec.Resource,
			Primary:  pos,
		})
	}
}

func firstPosition(b *Bucket) source.Span {
	if len(b.Records) == 0 {
		return source.Span{}
	}
	return b.Records[0].Position
}

func firstResource(b *Bucket) string {
	if len(b.Records) == 0 {
		return ""
	}
	return b.Records[0].Resource
}
