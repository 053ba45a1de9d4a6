package precompile

import (
	"fmt"
	"strconv"

	"rescomp/internal/resource"
	"rescomp/internal/script"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
	"rescomp/internal/typeinfo"
)

// baseTypeName maps the authored instance type onto a registry name. Builtin
// GUI types live in their own namespace; other namespaces are kept verbatim.
func baseTypeName(c *resource.InstanceContext) string {
	if c.Namespace == "" || c.Namespace == typeinfo.Namespace {
		return c.TypeName
	}
	return c.QualifiedType()
}

// parseMembers parses the instance script. A missing script yields no members.
func parseMembers(c *resource.InstanceContext) ([]*ast.Decl, []script.Error) {
	if !c.HasScript {
		return nil, nil
	}
	return script.ParseMembers(c.Script, c.ScriptRegion)
}

// signatureOf copies a member without function bodies.
func signatureOf(d *ast.Decl) *ast.Decl {
	if d.Kind != ast.DeclFunc {
		return d
	}
	return ast.NewFunc(d.Pos, d.Name, d.Params, d.Type, nil)
}

func declares(members []*ast.Decl, name string) bool {
	for _, d := range members {
		if d.Name == name {
			return true
		}
	}
	return false
}

// handlerSig is a handler method inferred from an event binding.
type handlerSig struct {
	binding resource.Binding
	params  []string
}

func handlerDecl(h handlerSig, withBody bool) *ast.Decl {
	params := make([]*ast.Param, len(h.params))
	for i, t := range h.params {
		params[i] = ast.NewParam(source.Span{}, fmt.Sprintf("arg%d", i), ast.NewType(source.Span{}, t))
	}
	var body *ast.Block
	if withBody {
		body = ast.NewBlock(source.Span{})
	}
	return ast.NewFunc(h.binding.HandlerPos, h.binding.Handler, params, ast.NewType(source.Span{}, script.TypeVoid), body)
}

// skeleton is the type signature of an instance class: base type, member
// signatures and handler signatures, no bodies.
func skeleton(c *resource.InstanceContext, members []*ast.Decl, handlers []handlerSig) *ast.Module {
	cls := ast.NewClass(c.ClassPos, c.ClassName, ast.NewType(c.BasePos, baseTypeName(c)))
	for _, d := range members {
		cls.Members = append(cls.Members, signatureOf(d))
	}
	for _, h := range handlers {
		if !declares(members, h.binding.Handler) {
			cls.Members = append(cls.Members, handlerDecl(h, false))
		}
	}
	return ast.NewModule(source.Span{}, c.ClassName, cls)
}

// classBody is the full instance class: the script members and an empty
// method for every bound handler the script does not define.
func classBody(c *resource.InstanceContext, members []*ast.Decl, handlers []handlerSig) *ast.Module {
	cls := ast.NewClass(c.ClassPos, c.ClassName, ast.NewType(c.BasePos, baseTypeName(c)), members...)
	for _, h := range handlers {
		if !declares(members, h.binding.Handler) {
			cls.Members = append(cls.Members, handlerDecl(h, true))
		}
	}
	return ast.NewModule(source.Span{}, c.ClassName, cls)
}

// assignment is a property setter with its literal already converted.
type assignment struct {
	setter resource.Setter
	value  *ast.Expr
}

// constructor builds __init_<Class>(self): property assignments in authored
// order, then one attach per event binding.
func constructor(c *resource.InstanceContext, sets []assignment, handlers []handlerSig) *ast.Module {
	var none source.Span
	self := func(pos source.Span) *ast.Expr { return ast.NewIdent(pos, "self") }
	body := ast.NewBlock(none)
	for _, a := range sets {
		target := ast.NewMember(a.setter.NamePos, self(a.setter.NamePos), a.setter.Name)
		body.Stmts = append(body.Stmts, ast.NewAssign(a.setter.NamePos, target, a.value))
	}
	for _, h := range handlers {
		b := h.binding
		event := ast.NewMember(b.EventPos, self(b.EventPos), b.Event)
		handler := ast.NewMember(b.HandlerPos, self(b.HandlerPos), b.Handler)
		body.Stmts = append(body.Stmts, ast.NewExprStmt(b.EventPos, ast.NewAttach(b.EventPos, event, handler)))
	}
	name := script.InitializerName(c.ClassName)
	params := []*ast.Param{ast.NewParam(none, "self", ast.NewType(none, c.ClassName))}
	fn := ast.NewFunc(none, name, params, ast.NewType(none, script.TypeVoid), body)
	return ast.NewModule(none, name, fn)
}

// literal converts a setter value to an expression of type typ.
func literal(s resource.Setter, typ string) (*ast.Expr, error) {
	switch typ {
	case script.TypeInt:
		v, err := strconv.ParseInt(s.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an int", s.Value)
		}
		return ast.NewInt(s.ValuePos, v), nil
	case script.TypeBool:
		v, err := strconv.ParseBool(s.Value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a bool", s.Value)
		}
		return ast.NewBool(s.ValuePos, v), nil
	case script.TypeString, script.TypeObject, "":
		return ast.NewString(s.ValuePos, s.Value), nil
	default:
		return nil, fmt.Errorf("a literal cannot be assigned to a property of type %s", typ)
	}
}
