package diag

import (
	"fmt"
	"strings"

	"rescomp/internal/source"
)

// FormatShortDiagnostics renders diagnostics one per line, in sink order:
//
//	<severity> <CODE> <path>:<line>:<col> [<resource>] <message>
//
// Diagnostics without a position print the resource name in place of the path.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	lines := make([]string, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		lines = append(lines, fmt.Sprintf("%s %s %s%s %s",
			severityLabel(d.Severity), d.Code.ID(), location(fs, d.Primary, d.Resource),
			resourceSuffix(d), sanitizeMessage(d.Message)))
		if !includeNotes {
			continue
		}
		for _, note := range d.Notes {
			lines = append(lines, fmt.Sprintf("note %s %s %s",
				d.Code.ID(), location(fs, note.Span, d.Resource), sanitizeMessage(note.Msg)))
		}
	}
	return strings.Join(lines, "\n")
}

func location(fs *source.FileSet, span source.Span, resource string) string {
	if fs == nil || span.IsZero() {
		if resource == "" {
			return "<project>"
		}
		return resource
	}
	file := fs.Get(span.File)
	if file == nil {
		return resource
	}
	start, _ := fs.Resolve(span)
	path := strings.TrimPrefix(file.FormatPath("relative", fs.BaseDir()), "./")
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

func resourceSuffix(d *Diagnostic) string {
	if d.Resource == "" || d.Primary.IsZero() {
		return ""
	}
	return " [" + d.Resource + "]"
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
