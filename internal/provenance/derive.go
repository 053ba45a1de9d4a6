package provenance

import (
	"rescomp/internal/script/ast"
)

// Update is one change Derive wants to make to a Table. With Fill unset it
// overwrites Root's entry; with Fill set it records Root's subtree where entries are absent.
type Update struct {
	Root  ast.Node
	Entry Entry
	Fill  bool
}

// Derive computes the entries of nodes produced by expanding virtual
// constructs in mod. A virtual node's own entry comes from the table, then
// from its authored position, then from fallback; its expansion roots are
// overwritten with it and their subtrees filled. Derive does not modify the table.
func Derive(mod *ast.Module, table *Table, fallback Entry) []Update {
	var out []Update
	for _, v := range ast.Virtuals(mod) {
		e, ok := Entry{}, false
		if table != nil {
			e, ok = table.Lookup(v.ID())
		}
		if !ok {
			e = fallback
			if sp := v.Span(); !sp.IsZero() {
				e.Span = sp
			}
		}
		for _, root := range ast.ExpandedRoots(v) {
			out = append(out, Update{Root: root, Entry: e}, Update{Root: root, Entry: e, Fill: true})
		}
	}
	return out
}
