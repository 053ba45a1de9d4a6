package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"rescomp/internal/diag"
	"rescomp/internal/script"
	"rescomp/internal/source"
)

const mainWindow = `class: MainWindow
base: gui:Window
styles: [Dark, Big]
properties:
  - name: Title
    value: "Hello"
  - name: Width
    value: 640
events:
  - name: Clicked
    handler: OnClicked
script: |
  func OnClicked(sender: object): void {
    this.Title = 1;
  }
`

func load(t *testing.T, kind Kind, content string) (*source.FileSet, *Resource, []diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("res.yaml", []byte(content))
	r, diags := FromFile(fs.Get(id), Spec{Name: "MainWindow", Kind: kind})
	return fs, r, diags
}

func TestDecodeInstance(t *testing.T) {
	fs, r, diags := load(t, KindInstance, mainWindow)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	c := r.Instance
	if c.ClassName != "MainWindow" || c.QualifiedType() != "gui:Window" || c.TypeName != "Window" {
		t.Fatalf("unexpected header: %+v", c)
	}
	if diff := cmp.Diff([]string{"Dark", "Big"}, []string{c.Styles[0].Name, c.Styles[1].Name}); diff != "" {
		t.Fatal(diff)
	}
	w, ok := c.Property("Width")
	if !ok || w.Value != "640" || w.Tag != "!!int" {
		t.Fatalf("Width = %+v", w)
	}
	start, _ := fs.Resolve(w.ValuePos)
	if start.Line != 8 || start.Col != 12 {
		t.Fatalf("Width value at %d:%d, want 8:12", start.Line, start.Col)
	}
	if r.TagPos != c.ClassPos {
		t.Fatal("instance tag position is the class name")
	}
	if len(c.Events) != 1 || c.Events[0].Handler != "OnClicked" {
		t.Fatalf("unexpected events %+v", c.Events)
	}
}

func TestScriptBlockMapsToFileLines(t *testing.T) {
	fs, r, _ := load(t, KindInstance, mainWindow)
	c := r.Instance
	mod, errs := script.Parse(c.Script, c.ScriptRegion)
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	assign := mod.Decls[0].Body.Stmts[0]
	start, _ := fs.Resolve(assign.X.Pos)
	// "    this.Title = 1;" on line 14, the literal is in column 18
	if start.Line != 14 || start.Col != 18 {
		t.Fatalf("literal at %d:%d, want 14:18", start.Line, start.Col)
	}
}

func TestDecodeReportsProblems(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want diag.Code
		line uint32
	}{
		{"malformed", "class: A\nbase: [\n", diag.ResMalformed, 0},
		{"unknown field", "class: A\nbase: Window\ncolour: red\n", diag.ResMalformed, 3},
		{"no base", "class: A\n", diag.ResMissingField, 1},
		{"not a mapping", "- a\n- b\n", diag.ResMalformed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, _, diags := load(t, KindInstance, tt.src)
			if len(diags) != 1 || diags[0].Code != tt.want {
				t.Fatalf("expected one %v, got %v", tt.want, diags)
			}
			if diags[0].Resource != "MainWindow" {
				t.Fatal("diagnostics must name the resource")
			}
			if tt.line != 0 {
				if start, _ := fs.Resolve(diags[0].Primary); start.Line != tt.line {
					t.Fatalf("reported on line %d, want %d", start.Line, tt.line)
				}
			}
		})
	}
}

func TestEmptyClassNameDecodes(t *testing.T) {
	_, r, diags := load(t, KindInstance, "class: \"\"\nbase: gui:Button\n")
	if len(diags) != 0 || r.Instance.ClassName != "" {
		t.Fatalf("empty class names are reported by the resolver, not the decoder: %v", diags)
	}
}

func TestApplyStyles(t *testing.T) {
	_, r, _ := load(t, KindInstance, mainWindow)
	c := r.Instance
	styles := map[string]*StyleContext{
		"Dark": {Name: "Dark", Properties: []Setter{{Name: "Background", Value: "black"}, {Name: "Foreground", Value: "white"}}},
		"Big":  {Name: "Big", Properties: []Setter{{Name: "Width", Value: "1024"}, {Name: "Background", Value: "gray"}}},
	}
	if diags := ApplyStyles(c, styles); len(diags) != 0 {
		t.Fatal(diags)
	}
	got := map[string]string{}
	for _, p := range c.Properties {
		got[p.Name] = p.Value
	}
	want := map[string]string{"Title": "Hello", "Width": "640", "Background": "gray", "Foreground": "white"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("applied properties (-want +got):\n%s", diff)
	}

	c.Styles = append(c.Styles, Ref{Name: "Missing"})
	diags := ApplyStyles(c, styles)
	if len(diags) != 1 || diags[0].Code != diag.PreUnknownStyle {
		t.Fatalf("expected unknown style, got %v", diags)
	}
}

func TestInstanceRoundTrip(t *testing.T) {
	_, r, _ := load(t, KindInstance, mainWindow)
	data, err := EncodeInstance(r.Instance)
	if err != nil {
		t.Fatal(err)
	}
	back, diags := ResolveInstance("again.yaml", data)
	if len(diags) != 0 {
		t.Fatalf("re-decode failed: %v\n%s", diags, data)
	}
	ignorePos := cmpopts.IgnoreFields(Setter{}, "NamePos", "ValuePos")
	opts := cmp.Options{
		ignorePos,
		cmpopts.IgnoreFields(InstanceContext{}, "ClassPos", "BasePos", "ScriptRegion"),
		cmpopts.IgnoreFields(Binding{}, "EventPos", "HandlerPos"),
		cmpopts.IgnoreFields(Ref{}, "Pos"),
	}
	if diff := cmp.Diff(r.Instance, back, opts); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStyleRoundTrip(t *testing.T) {
	style, diags := ResolveStyle("dark.yaml", []byte("name: Dark\nproperties:\n  - name: Visible\n    value: true\n"))
	if len(diags) != 0 {
		t.Fatal(diags)
	}
	data, err := EncodeStyle(style)
	if err != nil {
		t.Fatal(err)
	}
	back, _ := ResolveStyle("x.yaml", data)
	if back.Name != "Dark" || back.Properties[0].Tag != "!!bool" || back.Properties[0].Value != "true" {
		t.Fatalf("unexpected style %+v\n%s", back, data)
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "helpers.wfs"), []byte("func F(): void {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	r, diags := Load(fs, dir, Spec{Name: "Scripts/Helpers", Kind: KindScript, Path: "helpers.wfs"})
	if len(diags) != 0 || !r.Script.Workflow() {
		t.Fatalf("unexpected result %+v %v", r, diags)
	}
	if _, errs := script.Parse(r.Script.Code, r.Script.Region); len(errs) != 0 {
		t.Fatal(errs)
	}

	_, diags = Load(fs, dir, Spec{Name: "Gone", Kind: KindScript, Path: "gone.wfs"})
	if len(diags) != 1 || diags[0].Code != diag.ResUnreadable || diags[0].Resource != "Gone" {
		t.Fatalf("expected unreadable diagnostic, got %v", diags)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"Script": KindScript, "instance": KindInstance, "InstanceStyle": KindInstanceStyle} {
		if got, err := ParseKind(in); err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseKind("Template"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
