package script

import (
	"fmt"

	"rescomp/internal/diag"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
)

// Error is one engine finding. Parse errors carry Span; rebuild errors carry
// Node, and Span only when the node has an authored position.
type Error struct {
	Code    diag.Code
	Node    ast.NodeID
	Span    source.Span
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Message)
}

func nodeError(n ast.Node, code diag.Code, format string, args ...any) Error {
	return Error{Code: code, Node: n.ID(), Span: n.Span(), Message: fmt.Sprintf(format, args...)}
}
