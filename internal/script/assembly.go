package script

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"rescomp/internal/script/ast"
)

type Op uint8

const (
	OpPushInt Op = iota + 1
	OpPushStr
	OpPushBool
	OpPushNull
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal
	OpGetField
	OpSetField
	OpCall       // A = function index, I = argc
	OpCallMethod // S = method name, I = argc; receiver below the arguments
	OpAttach     // S = event, T = handler; stack: event receiver, handler receiver (null for functions)
	OpAdd
	OpSub
	OpEq
	OpNe
	OpPop
	OpRet
)

// Instr is one lowered instruction.
type Instr struct {
	Op Op     `msgpack:"o"`
	A  int32  `msgpack:"a,omitempty"`
	I  int64  `msgpack:"i,omitempty"`
	S  string `msgpack:"s,omitempty"`
	T  string `msgpack:"t,omitempty"`
}

// FuncInfo locates a function body inside the code stream.
type FuncInfo struct {
	Name   string   `msgpack:"name"`
	Class  string   `msgpack:"class,omitempty"`
	Params []string `msgpack:"params"`
	Result string   `msgpack:"result"`
	Locals int32    `msgpack:"locals"`
	Entry  int32    `msgpack:"entry"`
}

type GlobalInfo struct {
	Name string `msgpack:"name"`
	Type string `msgpack:"type"`
}

// Assembly is the lowered artifact of one module set. Code holds the
// msgpack encoded instruction stream; InitEntry points at global initializers.
type Assembly struct {
	Name      string       `msgpack:"name"`
	Modules   []string     `msgpack:"modules"`
	Classes   []TypeDesc   `msgpack:"classes"`
	Funcs     []FuncInfo   `msgpack:"funcs"`
	Globals   []GlobalInfo `msgpack:"globals"`
	InitEntry int32        `msgpack:"init"`
	Code      []byte       `msgpack:"code"`
	Digest    string       `msgpack:"digest"`
}

// Class returns the descriptor of a class compiled into the assembly.
func (a *Assembly) Class(name string) (*TypeDesc, bool) {
	for i := range a.Classes {
		if a.Classes[i].Name == name {
			return &a.Classes[i], true
		}
	}
	return nil, false
}

// Decode returns the instruction stream after verifying the digest.
func (a *Assembly) Decode() ([]Instr, error) {
	sum := sha256.Sum256(a.Code)
	if hex.EncodeToString(sum[:]) != a.Digest {
		return nil, fmt.Errorf("assembly %s: digest mismatch", a.Name)
	}
	var code []Instr
	if err := msgpack.Unmarshal(a.Code, &code); err != nil {
		return nil, fmt.Errorf("assembly %s: decode code: %w", a.Name, err)
	}
	return code, nil
}

func i32(v int) int32 {
	n, err := safecast.Conv[int32](v)
	if err != nil {
		panic(fmt.Errorf("assembly index overflow: %w", err))
	}
	return n
}

type lowerer struct {
	prog *program
	code []Instr
}

func (l *lowerer) emit(in Instr) { l.code = append(l.code, in) }

func lower(name string, modules []*ast.Module, prog *program) (*Assembly, error) {
	l := &lowerer{prog: prog}
	asm := &Assembly{Name: name}
	for _, m := range modules {
		asm.Modules = append(asm.Modules, m.Name)
	}
	for _, cls := range prog.classOrder {
		asm.Classes = append(asm.Classes, *cls.desc)
	}
	for _, g := range prog.globalOrder {
		asm.Globals = append(asm.Globals, GlobalInfo{Name: g.decl.Name, Type: g.typ})
	}

	asm.InitEntry = i32(len(l.code))
	for _, g := range prog.globalOrder {
		if g.decl.Init == nil {
			continue
		}
		l.expr(g.decl.Init)
		l.emit(Instr{Op: OpStoreGlobal, A: i32(g.index)})
	}
	l.emit(Instr{Op: OpPushNull})
	l.emit(Instr{Op: OpRet})

	for _, f := range prog.funcOrder {
		entry := len(l.code)
		if f.decl.Body != nil {
			for _, s := range f.decl.Body.Stmts {
				l.stmt(s)
			}
		}
		l.emit(Instr{Op: OpPushNull})
		l.emit(Instr{Op: OpRet})
		asm.Funcs = append(asm.Funcs, FuncInfo{
			Name:   f.decl.Name,
			Class:  f.class,
			Params: f.params,
			Result: f.result,
			Locals: i32(f.locals),
			Entry:  i32(entry),
		})
	}

	code, err := msgpack.Marshal(l.code)
	if err != nil {
		return nil, fmt.Errorf("assembly %s: encode code: %w", name, err)
	}
	sum := sha256.Sum256(code)
	asm.Code = code
	asm.Digest = hex.EncodeToString(sum[:])
	return asm, nil
}

func (l *lowerer) stmt(s *ast.Stmt) {
	switch s.Kind {
	case ast.StmtExpr:
		l.expr(s.X)
		l.emit(Instr{Op: OpPop})
	case ast.StmtVar:
		if s.X != nil {
			l.expr(s.X)
		} else {
			l.zero(s.Type)
		}
		l.emit(Instr{Op: OpStoreLocal, A: i32(l.prog.slots[s])})
	case ast.StmtReturn:
		if s.X != nil {
			l.expr(s.X)
		} else {
			l.emit(Instr{Op: OpPushNull})
		}
		l.emit(Instr{Op: OpRet})
	case ast.StmtAssign:
		t := s.Target
		r := l.prog.refs[t]
		switch r.kind {
		case refLocal:
			l.expr(s.X)
			l.emit(Instr{Op: OpStoreLocal, A: i32(r.index)})
		case refGlobal:
			l.expr(s.X)
			l.emit(Instr{Op: OpStoreGlobal, A: i32(r.index)})
		case refField:
			l.expr(t.X)
			l.expr(s.X)
			l.emit(Instr{Op: OpSetField, S: t.Name})
		case refScriptProp:
			l.expr(t.X)
			l.expr(s.X)
			l.emit(Instr{Op: OpCallMethod, S: ast.Setter(t.Name), I: 1})
			l.emit(Instr{Op: OpPop})
		}
	}
}

func (l *lowerer) zero(t *ast.TypeRef) {
	name := ""
	if t != nil {
		name = t.Name
	}
	switch name {
	case TypeInt:
		l.emit(Instr{Op: OpPushInt})
	case TypeString:
		l.emit(Instr{Op: OpPushStr})
	case TypeBool:
		l.emit(Instr{Op: OpPushBool})
	default:
		l.emit(Instr{Op: OpPushNull})
	}
}

func (l *lowerer) expr(x *ast.Expr) {
	switch x.Kind {
	case ast.ExprInt:
		l.emit(Instr{Op: OpPushInt, I: x.Int})
	case ast.ExprString:
		l.emit(Instr{Op: OpPushStr, S: x.Str})
	case ast.ExprBool:
		var b int32
		if x.Bool {
			b = 1
		}
		l.emit(Instr{Op: OpPushBool, A: b})
	case ast.ExprThis:
		l.emit(Instr{Op: OpLoadLocal, A: 0})
	case ast.ExprIdent:
		r := l.prog.refs[x]
		if r.kind == refGlobal {
			l.emit(Instr{Op: OpLoadGlobal, A: i32(r.index)})
		} else {
			l.emit(Instr{Op: OpLoadLocal, A: i32(r.index)})
		}
	case ast.ExprMember:
		l.expr(x.X)
		if l.prog.refs[x].kind == refScriptProp {
			l.emit(Instr{Op: OpCallMethod, S: ast.Getter(x.Name)})
		} else {
			l.emit(Instr{Op: OpGetField, S: x.Name})
		}
	case ast.ExprBinary:
		l.expr(x.X)
		l.expr(x.Y)
		switch x.Op {
		case "+":
			l.emit(Instr{Op: OpAdd})
		case "-":
			l.emit(Instr{Op: OpSub})
		case "==":
			l.emit(Instr{Op: OpEq})
		case "!=":
			l.emit(Instr{Op: OpNe})
		}
	case ast.ExprAttach:
		l.expr(x.Expanded)
	case ast.ExprCall:
		l.call(x)
	}
}

func (l *lowerer) call(x *ast.Expr) {
	callee := x.X
	if callee.Kind == ast.ExprIdent && callee.Name == ast.AttachIntrinsic {
		ev, h := x.Args[0], x.Args[1]
		l.expr(ev.X)
		if h.Kind == ast.ExprMember {
			l.expr(h.X)
		} else {
			l.emit(Instr{Op: OpPushNull})
		}
		l.emit(Instr{Op: OpAttach, S: ev.Name, T: h.Name})
		l.emit(Instr{Op: OpPushNull})
		return
	}
	if callee.Kind == ast.ExprMember {
		l.expr(callee.X)
		for _, a := range x.Args {
			l.expr(a)
		}
		l.emit(Instr{Op: OpCallMethod, S: callee.Name, I: int64(len(x.Args))})
		return
	}
	for _, a := range x.Args {
		l.expr(a)
	}
	l.emit(Instr{Op: OpCall, A: i32(l.prog.refs[callee].index), I: int64(len(x.Args))})
}
