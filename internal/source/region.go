package source

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// Region describes where an embedded text fragment lives inside a file.
// Scripts stored in their own file map one to one; scripts embedded in a
// YAML block scalar lose their indentation, so every fragment line carries
// its own file offset.
type Region struct {
	// Span is the fragment's tag position in file coordinates.
	Span Span

	localStarts []uint32 // local offset of each fragment line
	fileStarts  []uint32 // file offset of the same line
}

// ContiguousRegion maps fragment offsets onto span.Start + offset.
func ContiguousRegion(span Span) Region {
	return Region{Span: span}
}

// BlockRegion builds a region for a fragment whose i-th line starts at
// column indent+1 of file line firstLine+i.
func BlockRegion(f *File, firstLine, indent uint32, text []byte, tag Span) Region {
	r := Region{Span: tag}
	line := firstLine
	r.localStarts = append(r.localStarts, 0)
	r.fileStarts = append(r.fileStarts, f.LineStart(line)+indent)
	for i, b := range text {
		if b != '\n' || i+1 >= len(text) {
			continue
		}
		local, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			panic(fmt.Errorf("region offset overflow: %w", err))
		}
		line++
		r.localStarts = append(r.localStarts, local)
		r.fileStarts = append(r.fileStarts, f.LineStart(line)+indent)
	}
	return r
}

// Map converts a fragment-local byte offset into a file offset.
func (r Region) Map(local uint32) uint32 {
	if len(r.localStarts) == 0 {
		return r.Span.Start + local
	}
	i := sort.Search(len(r.localStarts), func(i int) bool { return r.localStarts[i] > local }) - 1
	if i < 0 {
		i = 0
	}
	return r.fileStarts[i] + (local - r.localStarts[i])
}

// MapSpan converts a fragment-local [start, end) range into a file span.
func (r Region) MapSpan(start, end uint32) Span {
	return Span{File: r.Span.File, Start: r.Map(start), End: r.Map(end)}
}
