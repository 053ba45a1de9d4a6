package buildpipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"rescomp/internal/diag"
	"rescomp/internal/metacache"
	"rescomp/internal/observ"
	"rescomp/internal/precompile"
	"rescomp/internal/project"
	"rescomp/internal/resource"
	"rescomp/internal/source"
	"rescomp/internal/typeinfo"
	"rescomp/internal/workflow"
)

// ErrDiagnostics is returned when the build finished with error diagnostics
// and the request did not allow them.
var ErrDiagnostics = errors.New("diagnostics reported errors")

// CompileRequest configures the shared compilation pipeline.
type CompileRequest struct {
	Manifest *project.Manifest
	Strict   bool
	Jobs     int
	// Imports are metadata files of earlier sessions, manifest-relative or absolute.
	Imports               []string
	AllowDiagnosticsError bool
	Progress              ProgressSink
	// NewCompiler replaces the script engine; nil uses the default one.
	NewCompiler func(name string) workflow.Compiler
}

// NewCompileRequest fills a request from the [build] section of m.
func NewCompileRequest(m *project.Manifest) *CompileRequest {
	return &CompileRequest{
		Manifest: m,
		Strict:   m.Config.Build.Strict,
		Jobs:     m.Config.Build.Jobs,
		Imports:  append([]string(nil), m.Config.Build.Imports...),
	}
}

// CompileResult captures compilation artefacts and stage timings.
type CompileResult struct {
	FileSet   *source.FileSet
	Resources []*resource.Resource
	Bag       *diag.Bag
	Session   *precompile.Session
	// Fingerprint identifies the inputs: manifest, resource files, imports and options.
	Fingerprint project.Digest
	Timer       *observ.Timer
	Timings     Timings
}

type inputs struct {
	names  []string
	styles map[string]*resource.StyleContext
	types  *typeinfo.Registry
}

// Compile loads the resources of the manifest and runs every resolver pass.
func Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var result CompileResult
	if ctx == nil {
		ctx = context.Background()
	}
	in, err := prepare(ctx, req, &result)
	if err != nil {
		return result, err
	}
	if err := runPasses(ctx, req, in, &result); err != nil {
		return result, err
	}
	return result, checkDiagnostics(req, &result)
}

func prepare(ctx context.Context, req *CompileRequest, result *CompileResult) (*inputs, error) {
	if req == nil || req.Manifest == nil {
		return nil, fmt.Errorf("missing compile request")
	}
	m := req.Manifest
	specs := m.Specs()
	in := &inputs{
		names:  make([]string, len(specs)),
		styles: make(map[string]*resource.StyleContext),
		types:  typeinfo.NewRegistry(),
	}
	for i, spec := range specs {
		in.names[i] = spec.Name
	}
	result.FileSet = source.NewFileSetWithBase(m.Root)
	result.Bag = diag.NewBag(16)
	result.Timer = observ.NewTimer()
	emitQueued(req.Progress, in.names)

	parts := []project.Digest{optionsDigest(req)}

	loadStart := time.Now()
	phase := result.Timer.Begin(string(StageLoad))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			result.Timer.End(phase, "cancelled")
			return nil, err
		}
		emit(req.Progress, Event{Resource: spec.Name, Stage: StageLoad, Status: StatusWorking})
		res, diags := resource.Load(result.FileSet, m.Root, spec)
		status := StatusDone
		for _, d := range diags {
			result.Bag.Add(d)
			if d.Severity >= diag.SevError {
				status = StatusError
			}
		}
		if res == nil {
			emit(req.Progress, Event{Resource: spec.Name, Stage: StageLoad, Status: StatusError})
			continue
		}
		parts = append(parts, result.FileSet.Get(res.File).Hash)
		if res.Style != nil {
			addStyle(in.styles, res, result.Bag)
		}
		result.Resources = append(result.Resources, res)
		emit(req.Progress, Event{Resource: spec.Name, Stage: StageLoad, Status: status})
	}
	result.Timer.End(phase, fmt.Sprintf("%d resources", len(result.Resources)))
	result.Timings.Set(StageLoad, time.Since(loadStart))

	importStart := time.Now()
	phase = result.Timer.Begin(string(StageImport))
	for _, path := range req.Imports {
		p, err := metacache.ReadFile(m.Resolve(path))
		if err != nil {
			msg := fmt.Sprintf("cannot import metadata %s: %v", path, err)
			result.Bag.Add(diag.NewError(diag.PrjMetadataImport, source.Span{}, msg))
			continue
		}
		in.types.Import(p.Metadata)
		parts = append(parts, p.Fingerprint)
	}
	result.Timer.End(phase, fmt.Sprintf("%d imports", len(req.Imports)))
	result.Timings.Set(StageImport, time.Since(importStart))

	result.Fingerprint = project.Combine(m.Digest, parts...)
	return in, nil
}

// addStyle registers a decoded style by its own name. The first declaration wins.
func addStyle(styles map[string]*resource.StyleContext, res *resource.Resource, bag *diag.Bag) {
	name := res.Style.Name
	if _, dup := styles[name]; dup {
		msg := fmt.Sprintf("style %s is declared more than once", name)
		bag.Add(diag.NewError(diag.ResDuplicateName, res.Style.NamePos, msg).WithResource(res.Name))
		return
	}
	styles[name] = res.Style
}

func optionsDigest(req *CompileRequest) project.Digest {
	return sha256.Sum256(fmt.Appendf(nil, "strict=%t schema=%d", req.Strict, metacache.SchemaVersion))
}

func runPasses(ctx context.Context, req *CompileRequest, in *inputs, result *CompileResult) error {
	start := time.Now()
	obs := passObserver{sink: req.Progress}
	s := precompile.NewSession(precompile.Options{
		Strict:      req.Strict,
		Jobs:        req.Jobs,
		NewCompiler: req.NewCompiler,
		Types:       in.types,
		Styles:      in.styles,
		Diags:       result.Bag,
		Timer:       result.Timer,
		Observe:     obs.onPass,
	})
	result.Session = s

	manager := precompile.NewManager()
	err := precompile.Run(ctx, s, result.Resources, manager.Participants(), manager.MaxPass())
	elapsed := time.Since(start)
	result.Timings.Set(StagePrecompile, elapsed)
	if err != nil {
		emitStage(req.Progress, nil, StagePrecompile, StatusError, err, elapsed)
		return err
	}

	failed := failedResources(result.Bag)
	for _, name := range in.names {
		status := StatusDone
		if failed[name] {
			status = StatusError
		}
		emit(req.Progress, Event{Resource: name, Stage: StagePrecompile, Status: status, Elapsed: elapsed})
	}
	emit(req.Progress, Event{Stage: StagePrecompile, Status: StatusDone, Elapsed: elapsed})
	return nil
}

func checkDiagnostics(req *CompileRequest, result *CompileResult) error {
	if result.Bag.HasErrors() && !req.AllowDiagnosticsError {
		return ErrDiagnostics
	}
	return nil
}

func failedResources(bag *diag.Bag) map[string]bool {
	out := make(map[string]bool)
	for _, d := range bag.Items() {
		if d.Severity >= diag.SevError && d.Resource != "" {
			out[d.Resource] = true
		}
	}
	return out
}

type passObserver struct {
	sink ProgressSink
}

// onPass translates engine notifications into progress events.
func (p passObserver) onPass(ev precompile.PassEvent) {
	if p.sink == nil || ev.Done {
		return
	}
	p.sink.OnEvent(Event{
		Resource: ev.Resource,
		Stage:    StagePrecompile,
		Status:   StatusWorking,
		Pass:     ev.Pass,
		PassName: precompile.PassName(ev.Pass),
	})
}
