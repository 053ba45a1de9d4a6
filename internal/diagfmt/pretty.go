package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"rescomp/internal/diag"
	"rescomp/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue),
		gutter: color.New(color.FgHiBlack),
		caret:  color.New(color.FgGreen, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид, в порядке Bag.
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message> [<resource>]
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	items := bag.Items()
	shown := len(items)
	if opts.Max > 0 && opts.Max < shown {
		shown = opts.Max
	}
	for i := range shown {
		d := &items[i]
		loc := location(fs, d.Primary, d.Resource, opts.PathMode)
		fmt.Fprintf(w, "%s: %s %s: %s", pal.bold.Sprint(loc),
			pal.severity(d.Severity).Sprint(d.Severity.String()), d.Code.ID(), d.Message)
		if d.Resource != "" && !d.Primary.IsZero() {
			fmt.Fprintf(w, " [%s]", d.Resource)
		}
		fmt.Fprintln(w)
		writeSnippet(w, fs, d.Primary, int(opts.Context), pal)

		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", pal.note.Sprint("note:"),
				location(fs, n.Span, d.Resource, opts.PathMode), n.Msg)
		}
	}
	if rest := len(items) - shown; rest > 0 {
		fmt.Fprintf(w, "... and %d more diagnostics\n", rest)
	}
}

func location(fs *source.FileSet, span source.Span, resource string, mode PathMode) string {
	var f *source.File
	if fs != nil && !span.IsZero() {
		f = fs.Get(span.File)
	}
	if f == nil {
		if resource == "" {
			return "<project>"
		}
		return resource
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(f, fs, mode), start.Line, start.Col)
}

func formatPath(f *source.File, fs *source.FileSet, mode PathMode) string {
	if mode == PathModeRelative {
		return f.FormatPath("relative", fs.BaseDir())
	}
	return f.FormatPath(mode.mode(), "")
}

// writeSnippet prints the lines of span with context lines around them and
// underlines the first line of the span.
func writeSnippet(w io.Writer, fs *source.FileSet, span source.Span, context int, pal palette) {
	if fs == nil || span.IsZero() {
		return
	}
	f := fs.Get(span.File)
	if f == nil {
		return
	}
	start, end := fs.Resolve(span)
	if start.Line == 0 {
		return
	}
	first := max(int(start.Line)-context, 1)
	last := int(start.Line) + context
	width := len(fmt.Sprint(last))

	for ln := first; ln <= last; ln++ {
		line := f.GetLine(uint32(ln)) //nolint:gosec // ln is bounded by start.Line
		if ln > int(start.Line) && line == "" && ln > len(f.LineIdx) {
			break
		}
		line = strings.TrimRight(line, "\r")
		gutter := pal.gutter.Sprintf("%*d |", width, ln)
		fmt.Fprintf(w, " %s %s\n", gutter, line)
		if ln != int(start.Line) {
			continue
		}
		from := int(start.Col) - 1
		to := len(line)
		if end.Line == start.Line {
			to = int(end.Col) - 1
		}
		fmt.Fprintf(w, " %s %s\n", pal.gutter.Sprintf("%*s |", width, ""), pal.caret.Sprint(underline(line, from, to)))
	}
}

// underline builds the ^~~~ marker for line[from:to]. Tabs are kept so the
// marker stays aligned; wide runes take two cells.
func underline(line string, from, to int) string {
	from = min(max(from, 0), len(line))
	to = min(max(to, from), len(line))
	var b strings.Builder
	for _, r := range line[:from] {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	n := runewidth.StringWidth(line[from:to])
	b.WriteByte('^')
	if n > 1 {
		b.WriteString(strings.Repeat("~", n-1))
	}
	return b.String()
}
