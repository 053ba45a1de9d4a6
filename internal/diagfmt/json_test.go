package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rescomp/internal/diag"
	"rescomp/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("main.yaml", []byte(instanceYAML))

	bag := diag.NewBag(3)
	d := diag.NewError(diag.PreUnknownStyle, source.Span{File: fileID, Start: 44, End: 48}, "unknown style").
		WithResource("Instances/Main").
		WithNote(source.Span{File: fileID, Start: 0, End: 5}, "declared here")
	bag.Add(d)
	bag.Add(diag.NewError(diag.PrjMetadataImport, source.Span{}, "cannot import"))
	bag.Add(diag.New(diag.SevWarning, diag.PreInfo, source.Span{}, "dropped by Max"))

	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, PathMode: PathModeBasename, Max: 2, IncludeNotes: true}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	want := DiagnosticsOutput{
		Diagnostics: []DiagnosticJSON{
			{
				Severity: "ERROR",
				Code:     "PRE4003",
				Message:  "unknown style",
				Resource: "Instances/Main",
				Location: LocationJSON{File: "main.yaml", StartByte: 44, EndByte: 48, StartLine: 3, StartCol: 10, EndLine: 3, EndCol: 14},
				Notes: []NoteJSON{{
					Message:  "declared here",
					Location: LocationJSON{File: "main.yaml", StartByte: 0, EndByte: 5, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 6},
				}},
			},
			{Severity: "ERROR", Code: "PRJ5001", Message: "cannot import"},
		},
		Count: 2,
		Total: 3,
	}
	if diff := cmp.Diff(want, output); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONWithoutPositions(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("main.yaml", []byte(instanceYAML))
	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevWarning, diag.PreUnknownStyle, source.Span{File: fileID, Start: 44, End: 48}, "unknown style").
		WithNote(source.Span{File: fileID}, "hidden"))

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{PathMode: PathModeBasename})
	got := out.Diagnostics[0]
	if got.Location.StartLine != 0 || got.Notes != nil || got.Severity != "WARNING" {
		t.Fatalf("unexpected diagnostic %+v", got)
	}
}
