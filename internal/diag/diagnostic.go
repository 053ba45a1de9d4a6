package diag

import (
	"rescomp/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	// Resource names the resource the finding belongs to ("" for project-level findings).
	Resource string
	Primary  source.Span
	Notes    []Note
}
