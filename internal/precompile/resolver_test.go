package precompile

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rescomp/internal/diag"
	"rescomp/internal/resource"
	"rescomp/internal/script"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
	"rescomp/internal/workflow"
)

const sharedScript = `module Shared;
var greeting: string = "hi";
func Twice(x: int): int { return x + x; }
`

const darkStyle = `name: Dark
properties:
  - name: Background
    value: black
  - name: Title
    value: Styled
`

const mainWindow = `class: MainWindow
base: gui:Window
styles: [Dark]
properties:
  - name: Title
    value: Hello
  - name: Count
    value: 3
events:
  - name: Clicked
    handler: OnClicked
  - name: Closing
    handler: OnClosing
script: |
  prop Count: int;
  func OnClicked(sender: object): void {
    this.Count = this.Count + 1;
  }
`

type project struct {
	fs        *source.FileSet
	resources []*resource.Resource
	styles    map[string]*resource.StyleContext
}

func newProject() *project {
	return &project{fs: source.NewFileSet(), styles: map[string]*resource.StyleContext{}}
}

func (p *project) add(t *testing.T, name string, kind resource.Kind, content string) *resource.Resource {
	t.Helper()
	id := p.fs.AddVirtual(name, []byte(content))
	res, diags := resource.FromFile(p.fs.Get(id), resource.Spec{Name: name, Kind: kind, Path: name})
	if len(diags) > 0 {
		t.Fatalf("%s: %v", name, diags)
	}
	if kind == resource.KindInstanceStyle {
		p.styles[res.Style.Name] = res.Style
	}
	p.resources = append(p.resources, res)
	return res
}

func (p *project) run(t *testing.T, opts Options, maxPass int) *Session {
	t.Helper()
	opts.Styles = p.styles
	s := NewSession(opts)
	if err := Run(context.Background(), s, p.resources, NewManager().Participants(), maxPass); err != nil {
		t.Fatal(err)
	}
	return s
}

func diagCodes(s *Session) []diag.Code {
	var out []diag.Code
	for _, d := range s.Diags.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestSharedScriptCompiles(t *testing.T) {
	p := newProject()
	p.add(t, "Scripts/Shared", resource.KindScript, sharedScript)
	s := p.run(t, Options{Strict: true}, PassCompileScripts)

	b := s.Bucket(workflow.PathShared)
	if b == nil || len(b.Records) != 1 || !b.Records[0].Shared {
		t.Fatalf("unexpected shared bucket %+v", b)
	}
	if b.Assembly == nil || b.Context == nil {
		t.Fatal("shared assembly was not generated")
	}
	if s.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", s.Diags.Items())
	}
}

func TestSharedScriptSyntaxError(t *testing.T) {
	p := newProject()
	p.add(t, "Scripts/Broken", resource.KindScript, "func F(): int { return 1 +; }\n")
	s := p.run(t, Options{}, PassCompileScripts)

	if diff := cmp.Diff([]diag.Code{diag.SynExpectExpression}, diagCodes(s)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if d := s.Diags.Items()[0]; d.Resource != "Scripts/Broken" || d.Primary.IsZero() {
		t.Fatalf("diagnostic not attributed: %+v", d)
	}
	if s.Bucket(workflow.PathShared) != nil {
		t.Fatal("a rejected script must not create the shared bucket")
	}
}

func TestNonWorkflowScriptIgnored(t *testing.T) {
	p := newProject()
	res := p.add(t, "Scripts/Lua", resource.KindScript, "this is not workflow")
	res.Script.Language = "Lua"
	s := p.run(t, Options{}, MaxPass)
	if s.Diags.Len() != 0 || s.Bucket(workflow.PathShared) != nil {
		t.Fatalf("foreign script was compiled: %v", s.Diags.Items())
	}
}

func TestMissingClassName(t *testing.T) {
	p := newProject()
	p.add(t, "Instances/Nameless", resource.KindInstance, "class: \"\"\nbase: gui:Button\n")
	s := p.run(t, Options{}, MaxPass)

	items := s.Diags.Items()
	if len(items) != 1 {
		t.Fatalf("expected one diagnostic, got %v", items)
	}
	d := items[0]
	if d.Code != diag.PreMissingClassName || d.Resource != "Instances/Nameless" || !strings.Contains(d.Message, "gui:Button") {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if s.ClassNames.Len() != 0 {
		t.Fatalf("class names registered: %v", s.ClassNames.Entries())
	}
	if s.Bucket(workflow.PathTemporaryClass) != nil {
		t.Fatal("no skeleton should be synthesized for a nameless instance")
	}
}

type recordingCompiler struct {
	*script.Engine
	added *[]string
}

func (c recordingCompiler) AddModule(m *ast.Module) {
	*c.added = append(*c.added, m.Name)
	c.Engine.AddModule(m)
}

func TestCompileInstanceTypesCopiesSharedRecords(t *testing.T) {
	var added []string
	s := NewSession(Options{})
	s.newCompiler = func(name string) workflow.Compiler {
		return recordingCompiler{Engine: script.NewEngine(name, s.Types), added: &added}
	}
	s.pass = PassCompileInstanceTypes

	parse := func(src string) *ast.Module {
		m, errs := script.Parse([]byte(src), source.ContiguousRegion(source.Span{}))
		if len(errs) > 0 {
			t.Fatal(errs)
		}
		return m
	}
	add := func(path string, kind workflow.Kind, m *ast.Module, shared bool) {
		rec := workflow.ModuleRecord{Module: s.Arena.Add(m), Shared: shared}
		if err := s.Store.AddModule(path, kind, rec); err != nil {
			t.Fatal(err)
		}
	}
	add(workflow.PathTemporaryClass, workflow.KindTemporaryUnit, parse("module Skeleton; class Main : Window {}"), false)
	add(workflow.PathShared, workflow.KindShared, parse("module Public; func A(): int { return 1; }"), true)
	add(workflow.PathShared, workflow.KindShared, parse("module Private; func B(): int { return 2; }"), false)

	if err := compileInstanceTypes(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Skeleton", "Public"}, added); diff != "" {
		t.Fatalf("compiled modules mismatch (-want +got):\n%s", diff)
	}
	tmp := s.Bucket(workflow.PathTemporaryClass)
	if tmp.Assembly == nil || len(tmp.Records) != 0 {
		t.Fatalf("temporary class: assembly=%v records=%d", tmp.Assembly != nil, len(tmp.Records))
	}
}

func TestInstanceClassBuildsAndRuns(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		p := newProject()
		p.add(t, "Scripts/Shared", resource.KindScript, sharedScript)
		p.add(t, "Styles/Dark", resource.KindInstanceStyle, darkStyle)
		p.add(t, "Instances/Main", resource.KindInstance, mainWindow)
		s := p.run(t, Options{Strict: true, Jobs: jobs}, MaxPass)

		if s.Diags.Len() != 0 {
			t.Fatalf("jobs=%d: unexpected diagnostics: %v", jobs, s.Diags.Items())
		}
		b := s.Bucket(workflow.PathInstanceClass)
		if b == nil || b.Assembly == nil || b.Context == nil || b.Metadata == nil {
			t.Fatalf("jobs=%d: instance class was not generated", jobs)
		}
		// constructor, class body, then the shared script
		if len(b.Records) != 3 || !b.Records[2].Shared {
			t.Fatalf("jobs=%d: unexpected records %+v", jobs, b.Records)
		}
		if tmp := s.Bucket(workflow.PathTemporaryClass); tmp.Assembly == nil || tmp.Context != nil {
			t.Fatalf("jobs=%d: temporary class context must be released, assembly kept", jobs)
		}
		if s.Positions.Len() != 0 {
			t.Fatalf("jobs=%d: position table not cleared", jobs)
		}

		obj, err := b.Context.New("MainWindow")
		if err != nil {
			t.Fatal(err)
		}
		if obj.Fields["Title"] != "Hello" || obj.Fields["Background"] != "black" || obj.Fields["__Count"] != int64(3) {
			t.Fatalf("jobs=%d: unexpected fields %v", jobs, obj.Fields)
		}
		if diff := cmp.Diff([]string{"OnClicked"}, obj.Handlers("Clicked")); diff != "" {
			t.Fatal(diff)
		}
		if err := b.Context.Raise(obj, "Clicked", obj); err != nil {
			t.Fatal(err)
		}
		if obj.Fields["__Count"] != int64(4) {
			t.Fatalf("jobs=%d: handler did not run: %v", jobs, obj.Fields)
		}
		if err := b.Context.Raise(obj, "Closing", obj); err != nil {
			t.Fatalf("generated handler stub failed: %v", err)
		}
	}
}

func TestHandlerMismatchIsPositionedAtBinding(t *testing.T) {
	const inst = `class: Main
base: gui:Window
events:
  - name: Clicked
    handler: OnClicked
script: |
  func OnClicked(): void {}
`
	p := newProject()
	p.add(t, "Instances/Main", resource.KindInstance, inst)
	s := p.run(t, Options{}, MaxPass)

	items := s.Diags.Items()
	if len(items) != 1 || items[0].Code != diag.SemaBadAttach {
		t.Fatalf("expected one attach error, got %v", items)
	}
	start, _ := p.fs.Resolve(items[0].Primary)
	if start.Line != 4 || start.Col != 11 {
		t.Fatalf("error at %d:%d, want 4:11", start.Line, start.Col)
	}
	if items[0].Resource != "Instances/Main" {
		t.Fatalf("error attributed to %q", items[0].Resource)
	}
}

func TestReferenceErrorsSkipGeneration(t *testing.T) {
	const inst = `class: Main
base: gui:Window
properties:
  - name: Nope
    value: 1
  - name: Resizable
    value: maybe
events:
  - name: Exploded
    handler: OnBoom
`
	p := newProject()
	p.add(t, "Instances/Main", resource.KindInstance, inst)
	s := p.run(t, Options{}, MaxPass)

	want := []diag.Code{diag.PreUnknownEvent, diag.PreUnknownProperty, diag.ResMalformed}
	if diff := cmp.Diff(want, diagCodes(s)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if s.Bucket(workflow.PathInstanceClass) != nil {
		t.Fatal("instance class must not be generated after reference errors")
	}
}

func TestUnknownBaseTypeSkipsInstanceClass(t *testing.T) {
	p := newProject()
	p.add(t, "Instances/Main", resource.KindInstance, "class: Main\nbase: gui:Spaceship\n")
	s := p.run(t, Options{}, MaxPass)

	// pass 3 rejects the skeleton, pass 6 checks the base type again
	want := []diag.Code{diag.SemaUnknownType, diag.PreUnknownBaseType}
	if diff := cmp.Diff(want, diagCodes(s)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if s.Bucket(workflow.PathInstanceClass) != nil {
		t.Fatal("instance class must not be generated")
	}
	for _, d := range s.Diags.Items() {
		start, _ := p.fs.Resolve(d.Primary)
		if start.Line != 2 || start.Col != 7 {
			t.Fatalf("%s at %d:%d, want 2:7", d.Code.ID(), start.Line, start.Col)
		}
	}
}

func TestEventHandlersRebuildAfterFailedTypes(t *testing.T) {
	const inst = `class: Main
base: gui:Window
script: |
  prop X: Nope;
`
	setup := func() *project {
		p := newProject()
		p.add(t, "Scripts/Shared", resource.KindScript, sharedScript)
		p.add(t, "Instances/Main", resource.KindInstance, inst)
		return p
	}

	s := setup().run(t, Options{}, PassCompileInstanceTypes)
	if s.HasAssembly(workflow.PathTemporaryClass) {
		t.Fatal("skeleton with an unknown type compiled")
	}
	if diff := cmp.Diff([]diag.Code{diag.SemaUnknownType}, diagCodes(s)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}

	s = setup().run(t, Options{}, PassCompileEventHandlers)
	tmp := s.Bucket(workflow.PathTemporaryClass)
	if tmp == nil || tmp.Assembly == nil {
		t.Fatal("temporary class was not rebuilt from the shared records")
	}
	if len(tmp.Records) != 1 || !tmp.Records[0].Shared {
		t.Fatalf("unexpected records %+v", tmp.Records)
	}

	// pass 6 goes on and pass 7 reports the class body
	s = setup().run(t, Options{}, MaxPass)
	want := []diag.Code{diag.SemaUnknownType, diag.SemaUnknownType}
	if diff := cmp.Diff(want, diagCodes(s)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if s.HasAssembly(workflow.PathInstanceClass) {
		t.Fatal("instance class with an unknown type compiled")
	}
	if d := s.Diags.Items()[1]; d.Resource != "Instances/Main" {
		t.Fatalf("error attributed to %q", d.Resource)
	}
}

func TestDuplicateClassNamesWarn(t *testing.T) {
	p := newProject()
	p.add(t, "Instances/A", resource.KindInstance, "class: Main\nbase: gui:Button\n")
	p.add(t, "Instances/B", resource.KindInstance, "class: Main\nbase: gui:Label\n")
	s := p.run(t, Options{}, PassCompileInstanceTypes)

	var warnings []diag.Diagnostic
	for _, d := range s.Diags.Items() {
		if d.Code == diag.PreDuplicateClassName {
			warnings = append(warnings, d)
		}
	}
	if len(warnings) != 1 || warnings[0].Severity != diag.SevWarning || warnings[0].Resource != "Instances/B" {
		t.Fatalf("unexpected warnings %v", warnings)
	}
}

func TestResolverTables(t *testing.T) {
	m := NewManager()
	if m.MaxPass() != MaxPass {
		t.Fatalf("MaxPass = %d", m.MaxPass())
	}
	shared, _ := m.ForKind(resource.KindScript)
	inst, _ := m.ForKind(resource.KindInstance)
	style, _ := m.ForKind(resource.KindInstanceStyle)

	var got [][]Granularity
	for _, r := range []Resolver{shared, inst, style} {
		row := make([]Granularity, MaxPass+1)
		for pass := range row {
			row[pass] = r.Support(pass)
		}
		got = append(got, row)
	}
	N, R, P := NotSupported, PerResource, PerPass
	want := [][]Granularity{
		{R, P, N, N, N, N, N, N},
		{N, N, R, P, R, P, R, P},
		{N, N, N, N, N, N, N, N},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tables mismatch (-want +got):\n%s", diff)
	}
	if style.MaxPass() != -1 {
		t.Fatalf("style resolver takes part in pass %d", style.MaxPass())
	}
}

func TestResolveSerializeStyle(t *testing.T) {
	r := Resolver{Kind: ResolverStyle}
	res, diags := r.Resolve("Styles/Dark", []byte(darkStyle))
	if len(diags) != 0 {
		t.Fatal(diags)
	}
	if res.Style.Name != "Dark" || len(res.Style.Properties) != 2 {
		t.Fatalf("unexpected style %+v", res.Style)
	}
	out, err := r.Serialize(res)
	if err != nil {
		t.Fatal(err)
	}
	again, diags := r.Resolve("Styles/Dark", out)
	if len(diags) != 0 || again.Style.Properties[0].Value != "black" {
		t.Fatalf("serialized style does not resolve: %s", out)
	}
	if _, err := (Resolver{Kind: ResolverInstance}).Serialize(res); err == nil {
		t.Fatal("instance resolver serialized a style")
	}
}
