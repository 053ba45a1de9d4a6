package script

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rescomp/internal/diag"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
)

var gui = &Metadata{Classes: []TypeDesc{{
	Name:   "Window",
	Props:  []PropDesc{{Name: "Title", Type: TypeString}},
	Events: []EventDesc{{Name: "Clicked", Params: []string{TypeObject}}},
}}}

func parseOK(t *testing.T, src string) *ast.Module {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.wfs", []byte(src))
	mod, errs := Parse([]byte(src), source.ContiguousRegion(fs.Whole(id)))
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return mod
}

func build(t *testing.T, strict bool, srcs ...string) (*Engine, []Error) {
	t.Helper()
	e := NewEngine("test", gui)
	for _, src := range srcs {
		e.AddModule(parseOK(t, src))
	}
	return e, e.Rebuild(strict)
}

func codes(errs []Error) []diag.Code {
	out := make([]diag.Code, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestParseErrorsMapThroughRegion(t *testing.T) {
	fs := source.NewFileSet()
	content := "script: |\n  func F(): int {\n    return 1 +;\n  }\n"
	id := fs.AddVirtual("inst.yaml", []byte(content))
	f := fs.Get(id)
	text := []byte("func F(): int {\n  return 1 +;\n}\n")
	region := source.BlockRegion(f, 2, 2, text, source.Span{File: id, Start: 0, End: 6})

	mod, errs := Parse(text, region)
	if mod != nil || len(errs) != 1 {
		t.Fatalf("expected one error and no module, got %v", errs)
	}
	if errs[0].Code != diag.SynExpectExpression {
		t.Fatalf("unexpected code %v", errs[0].Code)
	}
	start, _ := fs.Resolve(errs[0].Span)
	if start.Line != 3 || start.Col != 15 {
		t.Fatalf("error at %d:%d, want 3:15", start.Line, start.Col)
	}
}

func TestParseRecoversAfterBrokenDecl(t *testing.T) {
	src := "var a: = 1;\nfunc F(): void {}\nvar b int;\n"
	fs := source.NewFileSet()
	id := fs.AddVirtual("x.wfs", []byte(src))
	_, errs := Parse([]byte(src), source.ContiguousRegion(fs.Whole(id)))
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
}

func TestParseMembers(t *testing.T) {
	src := "prop Count: int;\nevent Changed(v: int);\nfunc OnClick(sender: object): void {}\n"
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.wfs", []byte(src))
	members, errs := ParseMembers([]byte(src), source.ContiguousRegion(fs.Whole(id)))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var kinds []ast.DeclKind
	for _, d := range members {
		kinds = append(kinds, d.Kind)
	}
	if len(kinds) != 3 || kinds[0] != ast.DeclProp || kinds[1] != ast.DeclEvent || kinds[2] != ast.DeclFunc {
		t.Fatalf("unexpected member kinds %v", kinds)
	}

	nested := "class Inner {}\n"
	_, errs = ParseMembers([]byte(nested), source.ContiguousRegion(source.Span{File: id, End: uint32(len(nested))}))
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "nested") {
		t.Fatalf("expected nested class error, got %v", errs)
	}
}

func TestRebuildAcceptsValidProgram(t *testing.T) {
	_, errs := build(t, true, `
module Shared;
var greeting: string = "hi";
func Twice(x: int): int { return x + x; }
class Counter {
  prop Value: int;
  func Bump(): void { this.Value = this.Value + 1; }
}
`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestRebuildReportsErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want diag.Code
	}{
		{"undefined", "func F(): int { return y; }", diag.SemaUndefinedName},
		{"unknown type", "var x: Widget;", diag.SemaUnknownType},
		{"duplicate", "var x: int; var x: int;", diag.SemaDuplicateDecl},
		{"mismatch", "var x: int = \"s\";", diag.SemaTypeMismatch},
		{"arity", "func F(a: int): void {} func G(): void { F(); }", diag.SemaArityMismatch},
		{"no member", "class C { } func F(c: C): int { return c.Nope; }", diag.SemaNoMember},
		{"this outside", "func F(): void { this.X = 1; }", diag.SemaThisOutsideType},
		{"cycle", "class A : B {} class B : A {}", diag.SemaBaseCycle},
		{"missing return", "func F(): int { var x = 1; }", diag.SemaMissingReturn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := build(t, true, tt.src)
			found := false
			for _, c := range codes(errs) {
				found = found || c == tt.want
			}
			if !found {
				t.Fatalf("expected %v, got %v", tt.want, errs)
			}
		})
	}
}

func TestMissingReturnOnlyInStrictMode(t *testing.T) {
	if _, errs := build(t, false, "func F(): int { var x = 1; }"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestErrorsOnExpandedNodesHaveNoSpan(t *testing.T) {
	e, errs := build(t, false, "class C { prop P: Widget; }")
	// field, getter and setter share one type reference
	if diff := cmp.Diff([]diag.Code{diag.SemaUnknownType}, codes(errs)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	prop := e.Modules()[0].Decls[0].Members[0]
	field := prop.Expanded[0]
	if errs[0].Node != field.Type.ID() || !errs[0].Span.IsZero() {
		t.Fatalf("error should point at the synthesized field type: %+v", errs[0])
	}
}

func TestAttachChecksHandlerSignature(t *testing.T) {
	_, errs := build(t, false, `
class W : Window {
  func OnClick(sender: object): void {}
  func Wrong(n: int): void {}
  func Init(): void {
    attach(this.Clicked, this.OnClick);
    attach(this.Clicked, this.Wrong);
  }
}`)
	if len(errs) != 1 || errs[0].Code != diag.SemaBadAttach {
		t.Fatalf("expected one attach error, got %v", errs)
	}
	if !errs[0].Span.IsZero() {
		t.Fatal("attach errors are raised on the expanded call")
	}
}

func TestAssemblyRuns(t *testing.T) {
	e, errs := build(t, true, `
var base: int = 40;
func Add(a: int, b: int): int { return a + b; }
func Answer(): int { return Add(base, 2); }
class Clicker : Window {
  prop Count: int;
  func OnClick(sender: object): void { this.Count = this.Count + 1; }
}
func __init_Clicker(self: Clicker): void {
  self.Title = "main";
  attach(self.Clicked, self.OnClick);
}
`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	asm, err := e.GenerateAssembly()
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := Load(asm)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.Initialize(); err != nil {
		t.Fatal(err)
	}
	got, err := ctx.Call("Answer")
	if err != nil || got != int64(42) {
		t.Fatalf("Answer() = %v, %v", got, err)
	}

	obj, err := ctx.New("Clicker")
	if err != nil {
		t.Fatal(err)
	}
	if obj.Fields["Title"] != "main" {
		t.Fatalf("initializer did not run: %v", obj.Fields)
	}
	if h := obj.Handlers("Clicked"); len(h) != 1 || h[0] != "OnClick" {
		t.Fatalf("unexpected handlers %v", h)
	}
	for i := 0; i < 2; i++ {
		if err := ctx.Raise(obj, "Clicked", obj); err != nil {
			t.Fatal(err)
		}
	}
	if obj.Fields["__Count"] != int64(2) {
		t.Fatalf("Count = %v, want 2", obj.Fields["__Count"])
	}

	ctx.Release()
	if _, err := ctx.Call("Answer"); err != ErrReleased {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
	if _, err := Load(asm); err != nil {
		t.Fatalf("assembly must stay loadable after release: %v", err)
	}
}

func TestDecodeRejectsTamperedCode(t *testing.T) {
	e, _ := build(t, false, "func F(): void {}")
	asm, err := e.GenerateAssembly()
	if err != nil {
		t.Fatal(err)
	}
	asm.Code = append([]byte(nil), asm.Code...)
	asm.Code[len(asm.Code)-1] ^= 0xff
	if _, err := Load(asm); err == nil || !strings.Contains(err.Error(), "digest") {
		t.Fatalf("expected digest error, got %v", err)
	}
}

func TestGenerateRequiresSuccessfulRebuild(t *testing.T) {
	e, errs := build(t, false, "var x: Nope;")
	if len(errs) == 0 {
		t.Fatal("expected errors")
	}
	if _, err := e.GenerateAssembly(); err != ErrNotBuilt {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
	md := e.ExtractMetadata()
	if len(md.Globals) != 1 || md.Globals[0].Name != "x" {
		t.Fatalf("metadata should survive a failed rebuild: %+v", md)
	}
}

func TestClear(t *testing.T) {
	e, _ := build(t, false, "class A {} func F(): void {}")
	e.Clear(true, false)
	if len(e.Modules()) != 0 {
		t.Fatal("modules should be dropped")
	}
	if md := e.ExtractMetadata(); len(md.Classes) != 1 || len(md.Funcs) != 1 {
		t.Fatalf("keepTypes should keep symbols: %+v", md)
	}
	e.Clear(false, true)
	if md := e.ExtractMetadata(); len(md.Classes) != 0 {
		t.Fatal("symbols should be dropped")
	}
}
