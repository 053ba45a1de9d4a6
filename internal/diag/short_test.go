package diag

import (
	"testing"

	"rescomp/internal/source"
)

func TestFormatShortDiagnosticsKeepsSinkOrder(t *testing.T) {
	fs := source.NewFileSetWithBase("/workspace")
	file := fs.Add("/workspace/ui/main.yaml", []byte("a\nb\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     SemaError,
			Message:  "later position first",
			Resource: "MainWindow",
			Primary:  source.Span{File: file, Start: 2, End: 3},
		},
		{
			Severity: SevError,
			Code:     PreMissingClassName,
			Message:  "first line\nsecond",
			Resource: "MainWindow",
			Primary:  source.Span{File: file, Start: 0, End: 1},
			Notes:    []Note{{Span: source.Span{File: file, Start: 2, End: 3}, Msg: "note line"}},
		},
		{
			Severity: SevError,
			Code:     PrjMetadataImport,
			Message:  "no position",
		},
	}

	expected := "warning SEM3001 ui/main.yaml:2:1 [MainWindow] later position first\n" +
		"error PRE4001 ui/main.yaml:1:1 [MainWindow] first line second\n" +
		"note PRE4001 ui/main.yaml:2:1 note line\n" +
		"error PRJ5001 <project> no position"

	if got := FormatShortDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagAppendsWithoutFiltering(t *testing.T) {
	bag := NewBag(0)
	d := NewError(SemaError, source.Span{}, "same")
	bag.Add(d)
	bag.Add(d)
	bag.Add(New(SevWarning, SemaInfo, source.Span{}, "w"))

	if bag.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (no dedup)", bag.Len())
	}
	if bag.Count(SevError) != 2 || !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("unexpected counts: errors=%d", bag.Count(SevError))
	}

	other := NewBag(1)
	BagReporter{Bag: other, Resource: "R"}.Report(SemaError, SevError, source.Span{}, "from reporter", nil)
	bag.Merge(other)
	items := bag.Items()
	if last := items[len(items)-1]; last.Resource != "R" || last.Message != "from reporter" {
		t.Fatalf("merged item = %+v", last)
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	b := ReportError(BagReporter{Bag: bag}, SemaNoMember, source.Span{}, "x").WithNote(source.Span{}, "n")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 || len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("bag = %+v", bag.Items())
	}
}
