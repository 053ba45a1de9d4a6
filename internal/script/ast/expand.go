package ast

import "rescomp/internal/source"

// Prop accessor naming.
func BackingField(prop string) string { return "__" + prop }
func Getter(prop string) string       { return "Get" + prop }
func Setter(prop string) string       { return "Set" + prop }

// Expand replaces virtual constructs in m with their expansions. Nodes produced
// here have no authored position. Already expanded nodes are left as they are,
// so expanding a module shared between several compilations is stable.
// It returns the virtual nodes expanded by this call.
func Expand(m *Module) []Node {
	var expanded []Node
	Inspect(m, func(n Node) bool {
		switch n := n.(type) {
		case *Decl:
			if n.Kind == DeclProp && len(n.Expanded) == 0 {
				n.Expanded = expandProp(n)
				expanded = append(expanded, n)
			}
		case *Expr:
			if n.Kind == ExprAttach && n.Expanded == nil {
				n.Expanded = expandAttach(n)
				expanded = append(expanded, n)
			}
		}
		return true
	})
	return expanded
}

func expandProp(p *Decl) []*Decl {
	var none source.Span
	typeName := "object"
	if p.Type != nil {
		typeName = p.Type.Name
	}
	field := NewVar(none, BackingField(p.Name), NewType(none, typeName), nil)
	getter := NewFunc(none, Getter(p.Name), nil, NewType(none, typeName),
		NewBlock(none, NewReturn(none, NewMember(none, NewThis(none), field.Name))))
	setter := NewFunc(none, Setter(p.Name),
		[]*Param{NewParam(none, "value", NewType(none, typeName))}, nil,
		NewBlock(none, NewAssign(none, NewMember(none, NewThis(none), field.Name), NewIdent(none, "value"))))
	return []*Decl{field, getter, setter}
}

func expandAttach(a *Expr) *Expr {
	var none source.Span
	return NewCall(none, NewIdent(none, AttachIntrinsic), a.Args...)
}
