package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"rescomp/internal/diag"
	"rescomp/internal/source"
)

const instanceYAML = "class: MainWindow\nbase: gui:Window\nstyles: [Dark]\n"

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSetWithBase("/home/user/project")
	fileID := fs.AddVirtual("/home/user/project/instances/main.yaml", []byte(instanceYAML))

	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.PreUnknownStyle, source.Span{File: fileID, Start: 44, End: 48}, `style "Dark" is not defined`).
		WithResource("Instances/Main"))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/instances/main.yaml:3:10"},
		{"Relative path", PathModeRelative, "instances/main.yaml:3:10"},
		{"Basename only", PathModeBasename, "main.yaml:3:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode})
			output := buf.String()

			for _, want := range []string{tt.contains, "ERROR PRE4003", "is not defined", "[Instances/Main]"} {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, output)
				}
			}
		})
	}
}

func TestPrettySnippet(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("main.yaml", []byte(instanceYAML))

	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevWarning, diag.PreUnknownStyle, source.Span{File: fileID, Start: 44, End: 48}, "unknown style"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename})

	want := strings.Join([]string{
		"main.yaml:3:10: WARNING PRE4003: unknown style",
		" 2 | base: gui:Window",
		" 3 | styles: [Dark]",
		"   |          ^~~~",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyWithoutPosition(t *testing.T) {
	bag := diag.NewBag(2)
	bag.Add(diag.NewError(diag.ResUnreadable, source.Span{}, "cannot read styles/dark.yaml").WithResource("Styles/Dark"))
	bag.Add(diag.NewError(diag.PrjMetadataImport, source.Span{}, "cannot import metadata"))

	var buf bytes.Buffer
	Pretty(&buf, bag, source.NewFileSet(), PrettyOpts{})
	output := buf.String()
	if !strings.Contains(output, "Styles/Dark: ERROR RES1001") || !strings.Contains(output, "<project>: ERROR PRJ5001") {
		t.Fatalf("unexpected output:\n%s", output)
	}
}

func TestPrettyNotesAndLimit(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("main.yaml", []byte(instanceYAML))

	bag := diag.NewBag(3)
	d := diag.New(diag.SevWarning, diag.PreDuplicateClassName, source.Span{File: fileID, Start: 7, End: 17}, "class MainWindow is already declared")
	bag.Add(d.WithNote(source.Span{File: fileID, Start: 0, End: 5}, "first declared here"))
	bag.Add(d)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true, Max: 1})
	output := buf.String()
	if !strings.Contains(output, "note: main.yaml:1:1: first declared here") {
		t.Fatalf("expected note with location, got:\n%s", output)
	}
	if !strings.Contains(output, "... and 2 more diagnostics") {
		t.Fatalf("expected truncation summary, got:\n%s", output)
	}
}

func TestUnderline(t *testing.T) {
	tests := []struct {
		line     string
		from, to int
		want     string
	}{
		{"styles: [Dark]", 9, 13, "         ^~~~"},
		{"\tname: x", 1, 5, "\t^~~~"},
		{"名前: x", 8, 9, "      ^"},
		{"short", 3, 40, "   ^~"},
		{"", 0, 0, "^"},
	}
	for _, tt := range tests {
		if got := underline(tt.line, tt.from, tt.to); got != tt.want {
			t.Errorf("underline(%q, %d, %d) = %q, want %q", tt.line, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParsePathMode(t *testing.T) {
	for in, want := range map[string]PathMode{"": PathModeAuto, "relative": PathModeRelative, "basename": PathModeBasename} {
		if got, ok := ParsePathMode(in); !ok || got != want {
			t.Errorf("ParsePathMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParsePathMode("short"); ok {
		t.Error("unexpected mode accepted")
	}
}
