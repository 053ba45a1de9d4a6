package ast

// Inspect walks the tree rooted at n in depth-first order. For virtual nodes
// that were already expanded, the expansion is visited instead of the
// original children, so every node is reached once. If fn returns false the
// children of that node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	switch n := n.(type) {
	case *Module:
		if n == nil || !fn(n) {
			return
		}
		for _, d := range n.Decls {
			Inspect(d, fn)
		}
	case *Decl:
		if n == nil || !fn(n) {
			return
		}
		if n.Virtual() && len(n.Expanded) > 0 {
			for _, d := range n.Expanded {
				Inspect(d, fn)
			}
			return
		}
		inspectType(n.Super, fn)
		inspectType(n.Type, fn)
		for _, p := range n.Params {
			if fn(p) {
				inspectType(p.Type, fn)
			}
		}
		if n.Init != nil {
			Inspect(n.Init, fn)
		}
		if n.Body != nil {
			Inspect(n.Body, fn)
		}
		for _, m := range n.Members {
			Inspect(m, fn)
		}
	case *Block:
		if n == nil || !fn(n) {
			return
		}
		for _, s := range n.Stmts {
			Inspect(s, fn)
		}
	case *Stmt:
		if n == nil || !fn(n) {
			return
		}
		inspectType(n.Type, fn)
		if n.Target != nil {
			Inspect(n.Target, fn)
		}
		if n.X != nil {
			Inspect(n.X, fn)
		}
	case *Expr:
		if n == nil || !fn(n) {
			return
		}
		if n.Virtual() && n.Expanded != nil {
			Inspect(n.Expanded, fn)
			return
		}
		if n.X != nil {
			Inspect(n.X, fn)
		}
		if n.Y != nil {
			Inspect(n.Y, fn)
		}
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	case *TypeRef:
		inspectType(n, fn)
	case *Param:
		if n != nil && fn(n) {
			inspectType(n.Type, fn)
		}
	}
}

func inspectType(t *TypeRef, fn func(Node) bool) {
	if t != nil {
		fn(t)
	}
}

// Virtuals returns the virtual nodes of m in walk order.
func Virtuals(m *Module) []Node {
	var out []Node
	Inspect(m, func(n Node) bool {
		switch n := n.(type) {
		case *Decl:
			if n.Virtual() {
				out = append(out, n)
			}
		case *Expr:
			if n.Virtual() {
				out = append(out, n)
			}
		}
		return true
	})
	return out
}

// ExpandedRoots returns the roots a virtual node expanded into, or nil.
func ExpandedRoots(n Node) []Node {
	switch n := n.(type) {
	case *Decl:
		out := make([]Node, 0, len(n.Expanded))
		for _, d := range n.Expanded {
			out = append(out, d)
		}
		return out
	case *Expr:
		if n.Expanded != nil {
			return []Node{n.Expanded}
		}
	}
	return nil
}
