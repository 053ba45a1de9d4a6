package script

import (
	"rescomp/internal/diag"
	"rescomp/internal/script/ast"
)

type classSym struct {
	decl *ast.Decl
	desc *TypeDesc
}

type funcSym struct {
	decl   *ast.Decl
	name   string // qualified: "Class.Method" for methods
	class  string
	params []string
	result string
	index  int
	locals int
}

type globalSym struct {
	decl  *ast.Decl
	typ   string
	index int
}

type refKind uint8

const (
	refLocal refKind = iota + 1
	refGlobal
	refFunc
	refField
	refScriptProp
	refMethod
	refEvent
)

type ref struct {
	kind  refKind
	index int
	name  string
	fn    *funcSym
	event EventDesc
	meth  MethodDesc
}

// program is the result of a successful or failed Rebuild.
type program struct {
	classes     map[string]*classSym
	classOrder  []*classSym
	funcs       map[string]*funcSym
	funcOrder   []*funcSym
	globals     map[string]*globalSym
	globalOrder []*globalSym

	types map[*ast.Expr]string
	refs  map[*ast.Expr]ref
	slots map[*ast.Stmt]int
}

type checker struct {
	prog   *program
	ext    TypeProvider
	strict bool
	errs   []Error

	// типы развёрнутых prop, уже проверенные один раз
	known map[*ast.TypeRef]string

	// текущая функция
	fn     *funcSym
	locals map[string]localVar
}

type localVar struct {
	slot int
	typ  string
}

func newProgram() *program {
	return &program{
		classes: make(map[string]*classSym),
		funcs:   make(map[string]*funcSym),
		globals: make(map[string]*globalSym),
		types:   make(map[*ast.Expr]string),
		refs:    make(map[*ast.Expr]ref),
		slots:   make(map[*ast.Stmt]int),
	}
}

func (c *checker) errorf(n ast.Node, code diag.Code, format string, args ...any) {
	c.errs = append(c.errs, nodeError(n, code, format, args...))
}

func check(modules []*ast.Module, ext TypeProvider, strict bool) (*program, []Error) {
	c := &checker{prog: newProgram(), ext: ext, strict: strict, known: make(map[*ast.TypeRef]string)}
	for _, m := range modules {
		c.collect(m)
	}
	c.resolveClasses()
	c.resolveSignatures()
	for _, g := range c.prog.globalOrder {
		if g.decl.Init != nil {
			c.enter(nil)
			t := c.expr(g.decl.Init)
			c.assignable(g.decl.Init, t, g.typ)
		}
	}
	for _, f := range c.prog.funcOrder {
		c.body(f)
	}
	return c.prog, c.errs
}

func (c *checker) collect(m *ast.Module) {
	for _, d := range m.Decls {
		switch d.Kind {
		case ast.DeclVar:
			if _, dup := c.prog.globals[d.Name]; dup || c.prog.funcs[d.Name] != nil {
				c.errorf(d, diag.SemaDuplicateDecl, "%s is declared more than once", d.Name)
				continue
			}
			g := &globalSym{decl: d, index: len(c.prog.globalOrder)}
			c.prog.globals[d.Name] = g
			c.prog.globalOrder = append(c.prog.globalOrder, g)
		case ast.DeclFunc:
			if _, dup := c.prog.funcs[d.Name]; dup || c.prog.globals[d.Name] != nil {
				c.errorf(d, diag.SemaDuplicateDecl, "%s is declared more than once", d.Name)
				continue
			}
			c.addFunc(d, "", d.Name)
		case ast.DeclClass:
			if _, dup := c.prog.classes[d.Name]; dup || isBuiltin(d.Name) {
				c.errorf(d, diag.SemaDuplicateDecl, "class %s is declared more than once", d.Name)
				continue
			}
			cls := &classSym{decl: d, desc: &TypeDesc{Name: d.Name, Script: true}}
			c.prog.classes[d.Name] = cls
			c.prog.classOrder = append(c.prog.classOrder, cls)
		default:
			c.errorf(d, diag.SemaError, "%s %s is only allowed inside a class", d.Kind, d.Name)
		}
	}
}

func (c *checker) addFunc(d *ast.Decl, class, name string) *funcSym {
	f := &funcSym{decl: d, name: name, class: class, index: len(c.prog.funcOrder)}
	c.prog.funcs[name] = f
	c.prog.funcOrder = append(c.prog.funcOrder, f)
	return f
}

// lookupClass finds a class declared in the module set, then asks the provider.
func (c *checker) lookupClass(name string) (*TypeDesc, bool) {
	if cls, ok := c.prog.classes[name]; ok {
		return cls.desc, true
	}
	if c.ext != nil {
		return c.ext.LookupType(name)
	}
	return nil, false
}

func (c *checker) typeKnown(t *ast.TypeRef, allowVoid bool) string {
	if t == nil {
		return ""
	}
	if typ, ok := c.known[t]; ok {
		return typ
	}
	if t.Name == TypeVoid && !allowVoid {
		c.errorf(t, diag.SemaUnknownType, "void is not a value type")
		return ""
	}
	if isBuiltin(t.Name) {
		return t.Name
	}
	if _, ok := c.lookupClass(t.Name); ok {
		return t.Name
	}
	c.errorf(t, diag.SemaUnknownType, "unknown type %s", t.Name)
	return ""
}

func (c *checker) resolveClasses() {
	for _, cls := range c.prog.classOrder {
		d := cls.decl
		if d.Super != nil {
			switch {
			case isBuiltin(d.Super.Name) && d.Super.Name != TypeObject:
				c.errorf(d.Super, diag.SemaUnknownType, "class %s cannot derive from %s", d.Name, d.Super.Name)
			case d.Super.Name == TypeObject:
			default:
				if _, ok := c.lookupClass(d.Super.Name); !ok {
					c.errorf(d.Super, diag.SemaUnknownType, "unknown base type %s", d.Super.Name)
				} else {
					cls.desc.Base = d.Super.Name
				}
			}
		}
	}
	for _, cls := range c.prog.classOrder {
		seen := map[string]bool{cls.desc.Name: true}
		for base := cls.desc.Base; base != ""; {
			if seen[base] {
				c.errorf(cls.decl, diag.SemaBaseCycle, "class %s inherits from itself", cls.desc.Name)
				cls.desc.Base = ""
				break
			}
			seen[base] = true
			next, ok := c.lookupClass(base)
			if !ok {
				break
			}
			base = next.Base
		}
	}
}

func (c *checker) resolveSignatures() {
	for _, g := range c.prog.globalOrder {
		g.typ = c.typeKnown(g.decl.Type, false)
	}
	for _, f := range c.prog.funcOrder {
		c.signature(f)
	}
	for _, cls := range c.prog.classOrder {
		c.members(cls)
	}
}

func (c *checker) signature(f *funcSym) {
	f.params = make([]string, len(f.decl.Params))
	for i, p := range f.decl.Params {
		f.params[i] = c.typeKnown(p.Type, false)
	}
	f.result = TypeVoid
	if f.decl.Type != nil {
		f.result = c.typeKnown(f.decl.Type, true)
	}
}

func (c *checker) members(cls *classSym) {
	names := map[string]bool{}
	declare := func(d *ast.Decl) bool {
		if names[d.Name] {
			c.errorf(d, diag.SemaDuplicateDecl, "%s.%s is declared more than once", cls.desc.Name, d.Name)
			return false
		}
		names[d.Name] = true
		return true
	}
	var visit func(d *ast.Decl)
	visit = func(d *ast.Decl) {
		switch d.Kind {
		case ast.DeclVar:
			if declare(d) {
				cls.desc.Fields = append(cls.desc.Fields, PropDesc{Name: d.Name, Type: c.typeKnown(d.Type, false)})
			}
		case ast.DeclProp:
			if !declare(d) {
				return
			}
			// field, getter and setter share the prop type: one error per prop
			if len(d.Expanded) > 0 {
				resolved := c.typeKnown(d.Expanded[0].Type, false)
				for _, x := range d.Expanded {
					c.seedType(x, resolved)
				}
			}
			for _, x := range d.Expanded {
				visit(x)
			}
			typ := ""
			if len(d.Expanded) > 0 {
				typ = d.Expanded[0].Type.Name
			}
			cls.desc.Props = append(cls.desc.Props, PropDesc{Name: d.Name, Type: typ})
		case ast.DeclEvent:
			if declare(d) {
				ev := EventDesc{Name: d.Name, Params: make([]string, len(d.Params))}
				for i, p := range d.Params {
					ev.Params[i] = c.typeKnown(p.Type, false)
				}
				cls.desc.Events = append(cls.desc.Events, ev)
			}
		case ast.DeclFunc:
			if declare(d) {
				f := c.addFunc(d, cls.desc.Name, cls.desc.Name+"."+d.Name)
				c.signature(f)
				cls.desc.Methods = append(cls.desc.Methods, MethodDesc{Name: d.Name, Params: f.params, Result: f.result})
			}
		default:
			c.errorf(d, diag.SemaError, "%s is not allowed inside a class", d.Kind)
		}
	}
	for _, m := range cls.decl.Members {
		visit(m)
	}
}

func (c *checker) seedType(d *ast.Decl, typ string) {
	if d.Type != nil {
		c.known[d.Type] = typ
	}
	for _, p := range d.Params {
		if p.Type != nil {
			c.known[p.Type] = typ
		}
	}
}

// assignable: equal types, anything but void into object, derived into base.
func (c *checker) isAssignable(from, to string) bool {
	if from == "" || to == "" || from == to {
		return true
	}
	if to == TypeObject {
		return from != TypeVoid
	}
	seen := map[string]bool{}
	for cur := from; cur != "" && !seen[cur]; {
		seen[cur] = true
		desc, ok := c.lookupClass(cur)
		if !ok {
			return false
		}
		if desc.Base == to {
			return true
		}
		cur = desc.Base
	}
	return false
}

func (c *checker) assignable(n ast.Node, from, to string) {
	if !c.isAssignable(from, to) {
		c.errorf(n, diag.SemaTypeMismatch, "cannot use %s as %s", from, to)
	}
}

// member resolves name on typeName or one of its bases.
func (c *checker) member(typeName, name string) (ref, string, bool) {
	seen := map[string]bool{}
	for cur := typeName; cur != "" && !seen[cur]; {
		seen[cur] = true
		desc, ok := c.lookupClass(cur)
		if !ok {
			return ref{}, "", false
		}
		if f, ok := desc.Field(name); ok {
			return ref{kind: refField, name: name}, f.Type, true
		}
		if p, ok := desc.Prop(name); ok {
			if desc.Script {
				return ref{kind: refScriptProp, name: name}, p.Type, true
			}
			return ref{kind: refField, name: name}, p.Type, true
		}
		if m, ok := desc.Method(name); ok {
			return ref{kind: refMethod, name: name, meth: m}, "", true
		}
		if e, ok := desc.Event(name); ok {
			return ref{kind: refEvent, name: name, event: e}, "", true
		}
		cur = desc.Base
	}
	return ref{}, "", false
}

func (c *checker) enter(f *funcSym) {
	c.fn = f
	c.locals = make(map[string]localVar)
	if f == nil {
		return
	}
	slot := 0
	if f.class != "" {
		slot = 1 // this
	}
	for i, p := range f.decl.Params {
		if _, dup := c.locals[p.Name]; dup {
			c.errorf(p, diag.SemaDuplicateDecl, "parameter %s is declared more than once", p.Name)
		}
		c.locals[p.Name] = localVar{slot: slot, typ: f.params[i]}
		slot++
	}
	f.locals = slot
}

func (c *checker) body(f *funcSym) {
	c.enter(f)
	if f.decl.Body == nil {
		return
	}
	for _, s := range f.decl.Body.Stmts {
		c.stmt(s)
	}
	if c.strict && f.result != TypeVoid && f.result != "" {
		stmts := f.decl.Body.Stmts
		if len(stmts) == 0 || stmts[len(stmts)-1].Kind != ast.StmtReturn {
			c.errorf(f.decl, diag.SemaMissingReturn, "function %s must end with a return statement", f.decl.Name)
		}
	}
}

func (c *checker) stmt(s *ast.Stmt) {
	switch s.Kind {
	case ast.StmtExpr:
		c.expr(s.X)
	case ast.StmtVar:
		typ := ""
		if s.Type != nil {
			typ = c.typeKnown(s.Type, false)
		}
		if s.X != nil {
			t := c.expr(s.X)
			if s.Type == nil {
				if t == TypeVoid {
					c.errorf(s.X, diag.SemaTypeMismatch, "cannot use a void value")
				}
				typ = t
			} else {
				c.assignable(s.X, t, typ)
			}
		}
		if _, dup := c.locals[s.Name]; dup {
			c.errorf(s, diag.SemaDuplicateDecl, "%s is declared more than once", s.Name)
		}
		slot := c.fn.locals
		c.fn.locals++
		c.locals[s.Name] = localVar{slot: slot, typ: typ}
		c.prog.slots[s] = slot
	case ast.StmtReturn:
		want := c.fn.result
		if s.X == nil {
			if want != TypeVoid && want != "" {
				c.errorf(s, diag.SemaTypeMismatch, "missing return value of type %s", want)
			}
			return
		}
		t := c.expr(s.X)
		if want == TypeVoid {
			c.errorf(s.X, diag.SemaTypeMismatch, "function %s does not return a value", c.fn.decl.Name)
			return
		}
		c.assignable(s.X, t, want)
	case ast.StmtAssign:
		target := c.assignTarget(s.Target)
		t := c.expr(s.X)
		c.assignable(s.X, t, target)
	}
}

func (c *checker) assignTarget(x *ast.Expr) string {
	switch x.Kind {
	case ast.ExprIdent:
		if l, ok := c.locals[x.Name]; ok {
			c.prog.refs[x] = ref{kind: refLocal, index: l.slot}
			return l.typ
		}
		if g, ok := c.prog.globals[x.Name]; ok {
			c.prog.refs[x] = ref{kind: refGlobal, index: g.index}
			return g.typ
		}
		c.errorf(x, diag.SemaUndefinedName, "undefined: %s", x.Name)
		return ""
	case ast.ExprMember:
		recv := c.expr(x.X)
		if recv == "" {
			return ""
		}
		r, typ, ok := c.member(recv, x.Name)
		if !ok {
			c.errorf(x, diag.SemaNoMember, "%s has no member %s", recv, x.Name)
			return ""
		}
		if r.kind != refField && r.kind != refScriptProp {
			c.errorf(x, diag.SemaNotAssignable, "%s.%s is not assignable", recv, x.Name)
			return ""
		}
		c.prog.refs[x] = r
		return typ
	}
	c.errorf(x, diag.SemaNotAssignable, "expression is not assignable")
	return ""
}

func (c *checker) expr(x *ast.Expr) string {
	t := c.exprType(x)
	c.prog.types[x] = t
	return t
}

func (c *checker) exprType(x *ast.Expr) string {
	switch x.Kind {
	case ast.ExprInt:
		return TypeInt
	case ast.ExprString:
		return TypeString
	case ast.ExprBool:
		return TypeBool
	case ast.ExprThis:
		if c.fn == nil || c.fn.class == "" {
			c.errorf(x, diag.SemaThisOutsideType, "this is only available inside a class")
			return ""
		}
		return c.fn.class
	case ast.ExprIdent:
		if l, ok := c.locals[x.Name]; ok {
			c.prog.refs[x] = ref{kind: refLocal, index: l.slot}
			return l.typ
		}
		if g, ok := c.prog.globals[x.Name]; ok {
			c.prog.refs[x] = ref{kind: refGlobal, index: g.index}
			return g.typ
		}
		if _, ok := c.prog.funcs[x.Name]; ok {
			c.errorf(x, diag.SemaTypeMismatch, "function %s used as a value", x.Name)
			return ""
		}
		c.errorf(x, diag.SemaUndefinedName, "undefined: %s", x.Name)
		return ""
	case ast.ExprMember:
		recv := c.expr(x.X)
		if recv == "" {
			return ""
		}
		r, typ, ok := c.member(recv, x.Name)
		if !ok {
			c.errorf(x, diag.SemaNoMember, "%s has no member %s", recv, x.Name)
			return ""
		}
		if r.kind == refMethod || r.kind == refEvent {
			c.errorf(x, diag.SemaTypeMismatch, "%s.%s cannot be used as a value", recv, x.Name)
			return ""
		}
		c.prog.refs[x] = r
		return typ
	case ast.ExprBinary:
		l, r := c.expr(x.X), c.expr(x.Y)
		if l == "" || r == "" {
			return ""
		}
		switch x.Op {
		case "+":
			if l == r && (l == TypeInt || l == TypeString) {
				return l
			}
		case "-":
			if l == TypeInt && r == TypeInt {
				return TypeInt
			}
		case "==", "!=":
			if l == r && l != TypeVoid {
				return TypeBool
			}
		}
		c.errorf(x, diag.SemaTypeMismatch, "operator %s is not defined for %s and %s", x.Op, l, r)
		return ""
	case ast.ExprCall:
		return c.call(x)
	case ast.ExprAttach:
		if x.Expanded == nil {
			c.errorf(x, diag.SemaBadAttach, "attach was not expanded")
			return ""
		}
		return c.expr(x.Expanded)
	}
	return ""
}

func (c *checker) call(x *ast.Expr) string {
	callee := x.X
	var params []string
	var result string
	switch callee.Kind {
	case ast.ExprIdent:
		if callee.Name == ast.AttachIntrinsic {
			return c.attach(x)
		}
		f, ok := c.prog.funcs[callee.Name]
		if !ok {
			if _, local := c.locals[callee.Name]; local {
				c.errorf(callee, diag.SemaNotCallable, "%s is not callable", callee.Name)
			} else {
				c.errorf(callee, diag.SemaUndefinedName, "undefined: %s", callee.Name)
			}
			c.args(x, nil)
			return ""
		}
		c.prog.refs[callee] = ref{kind: refFunc, index: f.index, fn: f}
		params, result = f.params, f.result
	case ast.ExprMember:
		recv := c.expr(callee.X)
		if recv == "" {
			c.args(x, nil)
			return ""
		}
		r, _, ok := c.member(recv, callee.Name)
		if !ok {
			c.errorf(callee, diag.SemaNoMember, "%s has no member %s", recv, callee.Name)
			c.args(x, nil)
			return ""
		}
		if r.kind != refMethod {
			c.errorf(callee, diag.SemaNotCallable, "%s.%s is not callable", recv, callee.Name)
			c.args(x, nil)
			return ""
		}
		c.prog.refs[callee] = r
		params, result = r.meth.Params, r.meth.Result
	default:
		c.expr(callee)
		c.errorf(callee, diag.SemaNotCallable, "expression is not callable")
		c.args(x, nil)
		return ""
	}
	if len(x.Args) != len(params) {
		c.errorf(x, diag.SemaArityMismatch, "expected %d arguments, got %d", len(params), len(x.Args))
		c.args(x, nil)
		return result
	}
	c.args(x, params)
	return result
}

func (c *checker) args(x *ast.Expr, params []string) {
	for i, a := range x.Args {
		t := c.expr(a)
		if params != nil {
			c.assignable(a, t, params[i])
		}
	}
}

// attach checks __attach(receiver.Event, handler): the handler is a method
// reached through a receiver, or a global function, with the event's parameters.
func (c *checker) attach(x *ast.Expr) string {
	if len(x.Args) != 2 {
		c.errorf(x, diag.SemaBadAttach, "attach takes an event and a handler")
		return TypeVoid
	}
	evExpr, hExpr := x.Args[0], x.Args[1]
	if evExpr.Kind != ast.ExprMember {
		c.errorf(evExpr, diag.SemaBadAttach, "first attach argument must name an event")
		return TypeVoid
	}
	recv := c.expr(evExpr.X)
	if recv == "" {
		return TypeVoid
	}
	er, _, ok := c.member(recv, evExpr.Name)
	if !ok || er.kind != refEvent {
		c.errorf(evExpr, diag.SemaBadAttach, "%s has no event %s", recv, evExpr.Name)
		return TypeVoid
	}
	c.prog.refs[evExpr] = er

	var hParams []string
	var hResult string
	switch hExpr.Kind {
	case ast.ExprMember:
		hRecv := c.expr(hExpr.X)
		if hRecv == "" {
			return TypeVoid
		}
		hr, _, ok := c.member(hRecv, hExpr.Name)
		if !ok || hr.kind != refMethod {
			c.errorf(hExpr, diag.SemaBadAttach, "%s has no method %s", hRecv, hExpr.Name)
			return TypeVoid
		}
		c.prog.refs[hExpr] = hr
		hParams, hResult = hr.meth.Params, hr.meth.Result
	case ast.ExprIdent:
		f, ok := c.prog.funcs[hExpr.Name]
		if !ok || f.class != "" {
			c.errorf(hExpr, diag.SemaBadAttach, "undefined handler %s", hExpr.Name)
			return TypeVoid
		}
		c.prog.refs[hExpr] = ref{kind: refFunc, index: f.index, fn: f}
		hParams, hResult = f.params, f.result
	default:
		c.errorf(hExpr, diag.SemaBadAttach, "second attach argument must name a handler")
		return TypeVoid
	}
	if !sameTypes(hParams, er.event.Params) || hResult != TypeVoid {
		c.errorf(x, diag.SemaBadAttach, "handler %s does not match event %s(%s)", hExpr.Name, evExpr.Name, joinTypes(er.event.Params))
	}
	return TypeVoid
}

func joinTypes(ts []string) string {
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
