package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rescomp/internal/diag"
	"rescomp/internal/provenance"
	"rescomp/internal/script"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
)

type countingCompiler struct {
	*script.Engine
	generated *int
	errs      []script.Error
}

func (c countingCompiler) GenerateAssembly() (*script.Assembly, error) {
	*c.generated++
	return c.Engine.GenerateAssembly()
}

func (c countingCompiler) Rebuild(strict bool) []script.Error {
	errs := c.Engine.Rebuild(strict)
	return append(errs, c.errs...)
}

func newEnv(generated *int, injected ...script.Error) *Env {
	return &Env{
		Store:     NewStore(),
		Arena:     &Arena{},
		Positions: provenance.NewTable(),
		NewCompiler: func(name string) Compiler {
			return countingCompiler{Engine: script.NewEngine(name, nil), generated: generated, errs: injected}
		},
		Pass: 1,
	}
}

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.wfs", []byte(src))
	m, errs := script.Parse([]byte(src), source.ContiguousRegion(fs.Whole(id)))
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	return m
}

func tag(start uint32) source.Span { return source.Span{File: 9, Start: start, End: start + 4} }

func TestGenerateAssemblyIsMemoized(t *testing.T) {
	generated := 0
	env := newEnv(&generated)
	id := env.Arena.Add(parse(t, "func F(): int { return 1; }"))
	if err := env.Store.AddModule(PathShared, KindShared, ModuleRecord{Module: id, Position: tag(0), Shared: true}); err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(4)
	for i := 0; i < 2; i++ {
		if err := GenerateAssembly(context.Background(), env, PathShared, bag, false); err != nil {
			t.Fatal(err)
		}
	}
	b, _ := env.Store.Get(PathShared)
	if generated != 1 || b.Assembly == nil || b.Context == nil {
		t.Fatalf("generated=%d assembly=%v context=%v", generated, b.Assembly != nil, b.Context != nil)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	b.Invalidate()
	if err := GenerateAssembly(context.Background(), env, PathShared, bag, true); err != nil {
		t.Fatal(err)
	}
	if generated != 2 || b.Metadata == nil || len(b.Metadata.Funcs) != 1 {
		t.Fatalf("invalidated bucket should be rebuilt once with metadata: generated=%d md=%+v", generated, b.Metadata)
	}
}

func TestMissingBucketIsNoop(t *testing.T) {
	generated := 0
	env := newEnv(&generated)
	if err := GenerateAssembly(context.Background(), env, "Workflow/Nowhere", diag.NewBag(1), false); err != nil {
		t.Fatal(err)
	}
	if generated != 0 {
		t.Fatal("nothing should be generated")
	}
}

func TestKindInvariant(t *testing.T) {
	s := NewStore()
	if err := s.AddModule("B", KindShared, ModuleRecord{}); err != nil {
		t.Fatal(err)
	}
	err := s.AddModule("B", KindTemporaryUnit, ModuleRecord{})
	if !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	if err := s.CopyShared("B", "B", KindCombinedUnit); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch from CopyShared, got %v", err)
	}
	b, _ := s.Get("B")
	if len(b.Records) != 1 {
		t.Fatal("failed add must not append")
	}
}

func TestCopySharedKeepsOrder(t *testing.T) {
	s := NewStore()
	_ = s.AddModule(PathShared, KindShared, ModuleRecord{Module: 0, Shared: true})
	_ = s.AddModule(PathShared, KindShared, ModuleRecord{Module: 1, Shared: false})
	_ = s.AddModule(PathShared, KindShared, ModuleRecord{Module: 2, Shared: true})
	_ = s.AddModule(PathTemporaryClass, KindTemporaryUnit, ModuleRecord{Module: 7})
	if err := s.CopyShared(PathShared, PathTemporaryClass, KindTemporaryUnit); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Get(PathTemporaryClass)
	var got []ModuleID
	for _, r := range b.Records {
		got = append(got, r.Module)
	}
	if diff := cmp.Diff([]ModuleID{7, 0, 2}, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{PathShared, PathTemporaryClass}, s.Paths()); diff != "" {
		t.Fatal(diff)
	}
}

func TestErrorOnSynthesizedNodeFallsBackToTag(t *testing.T) {
	generated := 0
	synthetic := ast.NewIdent(source.Span{}, "missing")
	mod := ast.NewModule(source.Span{}, "", ast.NewFunc(source.Span{}, "F", nil, ast.NewType(source.Span{}, "int"),
		ast.NewBlock(source.Span{}, ast.NewReturn(source.Span{}, synthetic))))
	env := newEnv(&generated)
	id := env.Arena.Add(mod)
	_ = env.Store.AddModule(PathInstanceClass, KindCombinedUnit, ModuleRecord{Module: id, Position: tag(40), Resource: "MainWindow"})

	bag := diag.NewBag(1)
	if err := GenerateAssembly(context.Background(), env, PathInstanceClass, bag, false); err != nil {
		t.Fatal(err)
	}
	items := bag.Items()
	if len(items) != 1 {
		t.Fatalf("expected one diagnostic, got %v", items)
	}
	if items[0].Primary != tag(40) || items[0].Resource != "MainWindow" || items[0].Code != diag.SemaUndefinedName {
		t.Fatalf("unexpected diagnostic %+v", items[0])
	}
	if b, _ := env.Store.Get(PathInstanceClass); b.Assembly != nil {
		t.Fatal("failed bucket must not get an assembly")
	}
	if generated != 0 {
		t.Fatal("GenerateAssembly must not run after a failed rebuild")
	}
}

func TestErrorUsesRecordedProvenance(t *testing.T) {
	generated := 0
	mod := parse(t, "func F(): void {}")
	node := mod.Decls[0]
	env := newEnv(&generated, script.Error{Code: diag.SemaError, Node: node.ID(), Message: "rejected"})
	id := env.Arena.Add(mod)
	_ = env.Store.AddModule(PathShared, KindShared, ModuleRecord{Module: id, Position: tag(0), Shared: true, Resource: "Scripts/A"})

	want := source.Span{File: 3, Start: 100, End: 120}
	env.Positions.Record(node.ID(), provenance.Entry{Span: want, AvailableAfter: 0})

	bag := diag.NewBag(1)
	if err := GenerateAssembly(context.Background(), env, PathShared, bag, false); err != nil {
		t.Fatal(err)
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Primary != want {
		t.Fatalf("diagnostic should be positioned at the recorded span: %+v", items)
	}
}

func TestUnknownModuleIsStructural(t *testing.T) {
	generated := 0
	env := newEnv(&generated)
	_ = env.Store.AddModule(PathShared, KindShared, ModuleRecord{Module: 42})
	if err := GenerateAssembly(context.Background(), env, PathShared, diag.NewBag(1), false); err == nil {
		t.Fatal("expected an error")
	}
}
