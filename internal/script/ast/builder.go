package ast

import "rescomp/internal/source"

// Constructors used by the parser and by code synthesized from resources.
// A zero pos produces a node without authored position.

func NewModule(pos source.Span, name string, decls ...*Decl) *Module {
	return &Module{Base: At(pos), Name: name, Decls: decls}
}

func NewType(pos source.Span, name string) *TypeRef {
	return &TypeRef{Base: At(pos), Name: name}
}

func NewParam(pos source.Span, name string, typ *TypeRef) *Param {
	return &Param{Base: At(pos), Name: name, Type: typ}
}

func NewVar(pos source.Span, name string, typ *TypeRef, init *Expr) *Decl {
	return &Decl{Base: At(pos), Kind: DeclVar, Name: name, Type: typ, Init: init}
}

func NewFunc(pos source.Span, name string, params []*Param, result *TypeRef, body *Block) *Decl {
	return &Decl{Base: At(pos), Kind: DeclFunc, Name: name, Params: params, Type: result, Body: body}
}

func NewClass(pos source.Span, name string, super *TypeRef, members ...*Decl) *Decl {
	return &Decl{Base: At(pos), Kind: DeclClass, Name: name, Super: super, Members: members}
}

func NewEvent(pos source.Span, name string, params []*Param) *Decl {
	return &Decl{Base: At(pos), Kind: DeclEvent, Name: name, Params: params}
}

func NewProp(pos source.Span, name string, typ *TypeRef) *Decl {
	return &Decl{Base: At(pos), Kind: DeclProp, Name: name, Type: typ}
}

func NewBlock(pos source.Span, stmts ...*Stmt) *Block {
	return &Block{Base: At(pos), Stmts: stmts}
}

func NewExprStmt(pos source.Span, x *Expr) *Stmt {
	return &Stmt{Base: At(pos), Kind: StmtExpr, X: x}
}

func NewVarStmt(pos source.Span, name string, typ *TypeRef, x *Expr) *Stmt {
	return &Stmt{Base: At(pos), Kind: StmtVar, Name: name, Type: typ, X: x}
}

func NewReturn(pos source.Span, x *Expr) *Stmt {
	return &Stmt{Base: At(pos), Kind: StmtReturn, X: x}
}

func NewAssign(pos source.Span, target, x *Expr) *Stmt {
	return &Stmt{Base: At(pos), Kind: StmtAssign, Target: target, X: x}
}

func NewIdent(pos source.Span, name string) *Expr {
	return &Expr{Base: At(pos), Kind: ExprIdent, Name: name}
}

func NewString(pos source.Span, s string) *Expr {
	return &Expr{Base: At(pos), Kind: ExprString, Str: s}
}

func NewInt(pos source.Span, v int64) *Expr {
	return &Expr{Base: At(pos), Kind: ExprInt, Int: v}
}

func NewBool(pos source.Span, v bool) *Expr {
	return &Expr{Base: At(pos), Kind: ExprBool, Bool: v}
}

func NewThis(pos source.Span) *Expr {
	return &Expr{Base: At(pos), Kind: ExprThis}
}

func NewMember(pos source.Span, x *Expr, name string) *Expr {
	return &Expr{Base: At(pos), Kind: ExprMember, X: x, Name: name}
}

func NewCall(pos source.Span, callee *Expr, args ...*Expr) *Expr {
	return &Expr{Base: At(pos), Kind: ExprCall, X: callee, Args: args}
}

func NewBinary(pos source.Span, op string, x, y *Expr) *Expr {
	return &Expr{Base: At(pos), Kind: ExprBinary, Op: op, X: x, Y: y}
}

func NewAttach(pos source.Span, event, handler *Expr) *Expr {
	return &Expr{Base: At(pos), Kind: ExprAttach, Args: []*Expr{event, handler}}
}
