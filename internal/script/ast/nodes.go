package ast

// Module is one unit of workflow script: authored, or synthesized from a resource.
type Module struct {
	Base
	Name  string
	Decls []*Decl
}

type DeclKind uint8

const (
	DeclVar DeclKind = iota + 1
	DeclFunc
	DeclClass
	DeclEvent
	// DeclProp is virtual: Rebuild expands it into a backing field plus accessors.
	DeclProp
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclFunc:
		return "func"
	case DeclClass:
		return "class"
	case DeclEvent:
		return "event"
	case DeclProp:
		return "prop"
	default:
		return "decl"
	}
}

// Decl is a top-level or member declaration. Which fields are used depends on Kind:
//
//	var:   Type, Init
//	func:  Params, Type (result, nil means void), Body (nil for a signature)
//	class: Super, Members
//	event: Params
//	prop:  Type, Expanded
type Decl struct {
	Base
	Kind    DeclKind
	Name    string
	Type    *TypeRef
	Init    *Expr
	Params  []*Param
	Body    *Block
	Super   *TypeRef
	Members []*Decl

	Expanded []*Decl
}

// Virtual reports whether the declaration is replaced by its expansion.
func (d *Decl) Virtual() bool { return d.Kind == DeclProp }

// Result returns the declared result type name, "void" when omitted.
func (d *Decl) Result() string {
	if d.Type == nil {
		return "void"
	}
	return d.Type.Name
}

type TypeRef struct {
	Base
	Name string
}

type Param struct {
	Base
	Name string
	Type *TypeRef
}

type Block struct {
	Base
	Stmts []*Stmt
}

type StmtKind uint8

const (
	StmtExpr StmtKind = iota + 1
	StmtVar
	StmtReturn
	StmtAssign
)

// Stmt: expr uses X; var uses Name, Type, X; return uses X (optional); assign uses Target, X.
type Stmt struct {
	Base
	Kind   StmtKind
	Name   string
	Type   *TypeRef
	Target *Expr
	X      *Expr
}

type ExprKind uint8

const (
	ExprIdent ExprKind = iota + 1
	ExprString
	ExprInt
	ExprBool
	ExprThis
	ExprMember
	ExprCall
	ExprBinary
	// ExprAttach is virtual: Rebuild expands it into a call of the __attach intrinsic.
	ExprAttach
)

// Expr: ident/member use Name (member also X as receiver); call uses X as callee
// and Args; binary uses Op, X, Y; attach uses Args (event, handler).
type Expr struct {
	Base
	Kind ExprKind
	Name string
	Str  string
	Int  int64
	Bool bool
	Op   string
	X    *Expr
	Y    *Expr
	Args []*Expr

	Expanded *Expr
}

func (e *Expr) Virtual() bool { return e.Kind == ExprAttach }

// AttachIntrinsic is the callee name an attach expression expands into.
const AttachIntrinsic = "__attach"
