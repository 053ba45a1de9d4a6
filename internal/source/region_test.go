package source

import "testing"

func TestContiguousRegion(t *testing.T) {
	r := ContiguousRegion(Span{File: 3, Start: 100, End: 150})
	if got := r.MapSpan(4, 9); got != (Span{File: 3, Start: 104, End: 109}) {
		t.Fatalf("MapSpan = %v", got)
	}
}

func TestBlockRegionRestoresIndentation(t *testing.T) {
	content := "script: |\n  func A(): void;\n  func B(): void;\n"
	fs := NewFileSet()
	id := fs.AddVirtual("inst.yaml", []byte(content))
	f := fs.Get(id)

	// YAML hands us the scalar with indentation stripped.
	text := []byte("func A(): void;\nfunc B(): void;\n")
	r := BlockRegion(f, 2, 2, text, fs.Whole(id))

	local := uint32(len("func A(): void;\nfunc "))
	got := r.Map(local)
	start, _ := fs.Resolve(Span{File: id, Start: got, End: got})
	if start != (LineCol{Line: 3, Col: 8}) {
		t.Fatalf("mapped to %+v, want 3:8", start)
	}
	if content[got] != 'B' {
		t.Fatalf("mapped byte = %q, want 'B'", content[got])
	}
}
