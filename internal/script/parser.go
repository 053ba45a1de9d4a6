package script

import (
	"strconv"

	"rescomp/internal/diag"
	"rescomp/internal/script/ast"
	"rescomp/internal/source"
)

// maxParseErrors limits cascades after a broken declaration.
const maxParseErrors = 20

type bailout struct{}

type parser struct {
	lx     lexer
	region source.Region
	tok    token
	prev   token
}

// Parse reads one workflow script. Offsets inside src are mapped into file
// coordinates through region. A module is returned only when there were no errors.
func Parse(src []byte, region source.Region) (*ast.Module, []Error) {
	p := &parser{region: region}
	p.lx = lexer{src: src, pos: func(start, end uint32) Error {
		return Error{Span: region.MapSpan(start, end)}
	}}
	p.advance()

	mod := &ast.Module{Base: ast.At(region.MapSpan(0, p.lx.offset(len(src))))}
	if p.tok.kind == tokModule {
		p.advance()
		mod.Name = p.expect(tokIdent).text
		p.expect(tokSemicolon)
	}
	for p.tok.kind != tokEOF && len(p.lx.errs) < maxParseErrors {
		if d := p.guardedDecl(false); d != nil {
			mod.Decls = append(mod.Decls, d)
		}
	}
	if len(p.lx.errs) > 0 {
		return nil, p.lx.errs
	}
	return mod, nil
}

// ParseMembers reads a list of class member declarations, as written in the
// script of an instance. Nested classes are rejected.
func ParseMembers(src []byte, region source.Region) ([]*ast.Decl, []Error) {
	p := &parser{region: region}
	p.lx = lexer{src: src, pos: func(start, end uint32) Error {
		return Error{Span: region.MapSpan(start, end)}
	}}
	p.advance()

	var members []*ast.Decl
	for p.tok.kind != tokEOF && len(p.lx.errs) < maxParseErrors {
		if d := p.guardedDecl(true); d != nil {
			members = append(members, d)
		}
	}
	if len(p.lx.errs) > 0 {
		return nil, p.lx.errs
	}
	return members, nil
}

func (p *parser) advance() {
	p.prev = p.tok
	p.tok = p.lx.next()
	for p.tok.kind == tokInvalid {
		p.tok = p.lx.next()
	}
}

func (p *parser) span(from token) source.Span {
	return p.region.MapSpan(from.start, p.prev.end)
}

func (p *parser) tokSpan(t token) source.Span {
	return p.region.MapSpan(t.start, t.end)
}

func (p *parser) errorf(code diag.Code, format string, args ...any) {
	p.lx.fail(code, int(p.tok.start), int(p.tok.end), format, args...)
	panic(bailout{})
}

func (p *parser) expect(kind tokKind) token {
	if p.tok.kind != kind {
		code := diag.SynUnexpectedToken
		if kind == tokIdent {
			code = diag.SynExpectIdentifier
		}
		p.errorf(code, "expected %s, found %s", kind, p.tok.kind)
	}
	t := p.tok
	p.advance()
	return t
}

func (p *parser) accept(kind tokKind) bool {
	if p.tok.kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *parser) guardedDecl(member bool) (d *ast.Decl) {
	from := p.tok.start
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			d = nil
			if p.tok.start == from && p.tok.kind != tokEOF {
				p.advance()
			}
			p.sync()
		}
	}()
	return p.decl(member)
}

// sync skips to the next declaration keyword outside any block opened after the error.
func (p *parser) sync() {
	depth := 0
	for p.tok.kind != tokEOF {
		switch p.tok.kind {
		case tokLBrace:
			depth++
		case tokRBrace:
			depth--
		case tokVar, tokFunc, tokClass, tokEvent, tokProp:
			if depth <= 0 {
				return
			}
		}
		p.advance()
	}
}

func (p *parser) decl(member bool) *ast.Decl {
	start := p.tok
	switch p.tok.kind {
	case tokVar:
		p.advance()
		name := p.expect(tokIdent).text
		var typ *ast.TypeRef
		if p.accept(tokColon) {
			typ = p.typeRef()
		}
		var init *ast.Expr
		if p.accept(tokAssign) {
			init = p.expr()
		}
		if typ == nil && init == nil {
			p.errorf(diag.SynExpectType, "variable %s needs a type or an initializer", name)
		}
		p.expect(tokSemicolon)
		return &ast.Decl{Base: ast.At(p.span(start)), Kind: ast.DeclVar, Name: name, Type: typ, Init: init}
	case tokFunc:
		p.advance()
		name := p.expect(tokIdent).text
		params := p.params()
		var result *ast.TypeRef
		if p.accept(tokColon) {
			result = p.typeRef()
		}
		var body *ast.Block
		if !p.accept(tokSemicolon) {
			body = p.block()
		}
		return &ast.Decl{Base: ast.At(p.span(start)), Kind: ast.DeclFunc, Name: name, Params: params, Type: result, Body: body}
	case tokClass:
		if member {
			p.errorf(diag.SynUnexpectedToken, "nested classes are not supported")
		}
		p.advance()
		name := p.expect(tokIdent).text
		var super *ast.TypeRef
		if p.accept(tokColon) {
			super = p.typeRef()
		}
		open := p.expect(tokLBrace)
		var members []*ast.Decl
		for p.tok.kind != tokRBrace {
			if p.tok.kind == tokEOF {
				p.lx.fail(diag.SynUnclosedBlock, int(open.start), int(open.end), "class %s is not closed", name)
				panic(bailout{})
			}
			members = append(members, p.decl(true))
		}
		p.advance()
		return &ast.Decl{Base: ast.At(p.span(start)), Kind: ast.DeclClass, Name: name, Super: super, Members: members}
	case tokEvent, tokProp:
		if !member {
			p.errorf(diag.SynUnexpectedToken, "%s is only allowed inside a class", p.tok.kind)
		}
		kind := p.tok.kind
		p.advance()
		name := p.expect(tokIdent).text
		if kind == tokEvent {
			params := p.params()
			p.expect(tokSemicolon)
			return &ast.Decl{Base: ast.At(p.span(start)), Kind: ast.DeclEvent, Name: name, Params: params}
		}
		p.expect(tokColon)
		typ := p.typeRef()
		p.expect(tokSemicolon)
		return &ast.Decl{Base: ast.At(p.span(start)), Kind: ast.DeclProp, Name: name, Type: typ}
	default:
		p.errorf(diag.SynUnexpectedToken, "expected declaration, found %s", p.tok.kind)
		return nil
	}
}

func (p *parser) typeRef() *ast.TypeRef {
	if p.tok.kind != tokIdent {
		p.errorf(diag.SynExpectType, "expected type, found %s", p.tok.kind)
	}
	t := p.tok
	p.advance()
	return &ast.TypeRef{Base: ast.At(p.tokSpan(t)), Name: t.text}
}

func (p *parser) params() []*ast.Param {
	p.expect(tokLParen)
	var out []*ast.Param
	for p.tok.kind != tokRParen {
		if len(out) > 0 {
			p.expect(tokComma)
		}
		start := p.tok
		name := p.expect(tokIdent).text
		p.expect(tokColon)
		typ := p.typeRef()
		out = append(out, &ast.Param{Base: ast.At(p.span(start)), Name: name, Type: typ})
	}
	p.advance()
	return out
}

func (p *parser) block() *ast.Block {
	open := p.expect(tokLBrace)
	var stmts []*ast.Stmt
	for p.tok.kind != tokRBrace {
		if p.tok.kind == tokEOF {
			p.lx.fail(diag.SynUnclosedBlock, int(open.start), int(open.end), "block is not closed")
			panic(bailout{})
		}
		stmts = append(stmts, p.stmt())
	}
	p.advance()
	return &ast.Block{Base: ast.At(p.span(open)), Stmts: stmts}
}

func (p *parser) stmt() *ast.Stmt {
	start := p.tok
	switch p.tok.kind {
	case tokVar:
		p.advance()
		name := p.expect(tokIdent).text
		var typ *ast.TypeRef
		if p.accept(tokColon) {
			typ = p.typeRef()
		}
		var x *ast.Expr
		if p.accept(tokAssign) {
			x = p.expr()
		}
		if typ == nil && x == nil {
			p.errorf(diag.SynExpectType, "variable %s needs a type or an initializer", name)
		}
		p.expect(tokSemicolon)
		return &ast.Stmt{Base: ast.At(p.span(start)), Kind: ast.StmtVar, Name: name, Type: typ, X: x}
	case tokReturn:
		p.advance()
		var x *ast.Expr
		if p.tok.kind != tokSemicolon {
			x = p.expr()
		}
		p.expect(tokSemicolon)
		return &ast.Stmt{Base: ast.At(p.span(start)), Kind: ast.StmtReturn, X: x}
	}
	x := p.expr()
	if p.accept(tokAssign) {
		value := p.expr()
		p.expect(tokSemicolon)
		return &ast.Stmt{Base: ast.At(p.span(start)), Kind: ast.StmtAssign, Target: x, X: value}
	}
	p.expect(tokSemicolon)
	return &ast.Stmt{Base: ast.At(p.span(start)), Kind: ast.StmtExpr, X: x}
}

func (p *parser) expr() *ast.Expr {
	start := p.tok
	x := p.additive()
	for p.tok.kind == tokEq || p.tok.kind == tokNe {
		op := p.tok.text
		p.advance()
		y := p.additive()
		x = &ast.Expr{Base: ast.At(p.span(start)), Kind: ast.ExprBinary, Op: op, X: x, Y: y}
	}
	return x
}

func (p *parser) additive() *ast.Expr {
	start := p.tok
	x := p.postfix()
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		op := p.tok.text
		p.advance()
		y := p.postfix()
		x = &ast.Expr{Base: ast.At(p.span(start)), Kind: ast.ExprBinary, Op: op, X: x, Y: y}
	}
	return x
}

func (p *parser) postfix() *ast.Expr {
	start := p.tok
	x := p.primary()
	for {
		switch p.tok.kind {
		case tokDot:
			p.advance()
			name := p.expect(tokIdent).text
			x = &ast.Expr{Base: ast.At(p.span(start)), Kind: ast.ExprMember, X: x, Name: name}
		case tokLParen:
			args := p.args()
			x = &ast.Expr{Base: ast.At(p.span(start)), Kind: ast.ExprCall, X: x, Args: args}
		default:
			return x
		}
	}
}

func (p *parser) args() []*ast.Expr {
	p.expect(tokLParen)
	var out []*ast.Expr
	for p.tok.kind != tokRParen {
		if len(out) > 0 {
			p.expect(tokComma)
		}
		out = append(out, p.expr())
	}
	p.advance()
	return out
}

func (p *parser) primary() *ast.Expr {
	t := p.tok
	switch t.kind {
	case tokIdent:
		p.advance()
		return &ast.Expr{Base: ast.At(p.tokSpan(t)), Kind: ast.ExprIdent, Name: t.text}
	case tokInt:
		p.advance()
		v, _ := strconv.ParseInt(t.text, 10, 64) //nolint:errcheck // validated by the lexer
		return &ast.Expr{Base: ast.At(p.tokSpan(t)), Kind: ast.ExprInt, Int: v}
	case tokMinus:
		p.advance()
		n := p.expect(tokInt)
		v, _ := strconv.ParseInt(n.text, 10, 64) //nolint:errcheck // validated by the lexer
		return &ast.Expr{Base: ast.At(p.span(t)), Kind: ast.ExprInt, Int: -v}
	case tokString:
		p.advance()
		return &ast.Expr{Base: ast.At(p.tokSpan(t)), Kind: ast.ExprString, Str: t.text}
	case tokTrue, tokFalse:
		p.advance()
		return &ast.Expr{Base: ast.At(p.tokSpan(t)), Kind: ast.ExprBool, Bool: t.kind == tokTrue}
	case tokThis:
		p.advance()
		return &ast.Expr{Base: ast.At(p.tokSpan(t)), Kind: ast.ExprThis}
	case tokLParen:
		p.advance()
		x := p.expr()
		p.expect(tokRParen)
		return x
	case tokAttach:
		p.advance()
		args := p.args()
		if len(args) != 2 {
			p.lx.fail(diag.SynUnexpectedToken, int(t.start), int(p.prev.end), "attach takes an event and a handler")
			panic(bailout{})
		}
		return &ast.Expr{Base: ast.At(p.span(t)), Kind: ast.ExprAttach, Args: args}
	default:
		p.errorf(diag.SynExpectExpression, "expected expression, found %s", t.kind)
		return nil
	}
}
