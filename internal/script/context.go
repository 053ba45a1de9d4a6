package script

import (
	"errors"
	"fmt"
)

// InitializerName is the global function New runs for a freshly created object, if present.
func InitializerName(class string) string { return "__init_" + class }

const maxCallDepth = 256

var ErrReleased = errors.New("execution context released")

// Object is an instance of a class at run time.
type Object struct {
	Class    string
	Fields   map[string]any
	handlers map[string][]binding
}

type binding struct {
	recv *Object
	name string
}

// Handlers returns the handler names attached to event, in attach order.
func (o *Object) Handlers(event string) []string {
	out := make([]string, 0, len(o.handlers[event]))
	for _, b := range o.handlers[event] {
		out = append(out, b.name)
	}
	return out
}

// Context is a loaded assembly ready for execution.
type Context struct {
	asm      *Assembly
	code     []Instr
	globals  []any
	funcs    map[string]int
	methods  map[string]int
	classes  map[string]*TypeDesc
	released bool
}

// Load decodes asm into an execution context. Globals are not initialized yet.
func Load(asm *Assembly) (*Context, error) {
	code, err := asm.Decode()
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		asm:     asm,
		code:    code,
		globals: make([]any, len(asm.Globals)),
		funcs:   make(map[string]int),
		methods: make(map[string]int),
		classes: make(map[string]*TypeDesc, len(asm.Classes)),
	}
	for i, f := range asm.Funcs {
		if int(f.Entry) >= len(code) || f.Entry < 0 {
			return nil, fmt.Errorf("assembly %s: function %s has no code", asm.Name, f.Name)
		}
		if f.Class != "" {
			ctx.methods[f.Class+"."+f.Name] = i
		} else {
			ctx.funcs[f.Name] = i
		}
	}
	for i := range asm.Classes {
		ctx.classes[asm.Classes[i].Name] = &asm.Classes[i]
	}
	for i, g := range asm.Globals {
		ctx.globals[i] = zeroValue(g.Type)
	}
	return ctx, nil
}

// Assembly returns the assembly the context was loaded from.
func (c *Context) Assembly() *Assembly { return c.asm }

// Initialize runs global initializers.
func (c *Context) Initialize() error {
	if c.released {
		return ErrReleased
	}
	_, err := c.run(int(c.asm.InitEntry), nil, 0)
	return err
}

// Release drops run-time state. The assembly stays usable for a new Load.
func (c *Context) Release() {
	c.released = true
	c.code = nil
	c.globals = nil
}

func (c *Context) Released() bool { return c.released }

// Global returns the current value of a global variable.
func (c *Context) Global(name string) (any, bool) {
	if c.released {
		return nil, false
	}
	for i, g := range c.asm.Globals {
		if g.Name == name {
			return c.globals[i], true
		}
	}
	return nil, false
}

// Call invokes a global function.
func (c *Context) Call(name string, args ...any) (any, error) {
	if c.released {
		return nil, ErrReleased
	}
	idx, ok := c.funcs[name]
	if !ok {
		return nil, fmt.Errorf("function %s is not defined", name)
	}
	return c.invoke(idx, nil, args, 0)
}

// New creates an object of a compiled class and runs its initializer.
func (c *Context) New(class string) (*Object, error) {
	if c.released {
		return nil, ErrReleased
	}
	if _, ok := c.classes[class]; !ok {
		return nil, fmt.Errorf("class %s is not defined", class)
	}
	obj := &Object{Class: class, Fields: make(map[string]any)}
	seen := map[string]bool{}
	for cur := class; cur != "" && !seen[cur]; {
		seen[cur] = true
		desc, ok := c.classes[cur]
		if !ok {
			break
		}
		for _, f := range desc.Fields {
			if _, set := obj.Fields[f.Name]; !set {
				obj.Fields[f.Name] = zeroValue(f.Type)
			}
		}
		cur = desc.Base
	}
	if idx, ok := c.funcs[InitializerName(class)]; ok {
		if _, err := c.invoke(idx, nil, []any{obj}, 0); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// Raise calls every handler attached to event on obj.
func (c *Context) Raise(obj *Object, event string, args ...any) error {
	if c.released {
		return ErrReleased
	}
	for _, b := range obj.handlers[event] {
		if b.recv != nil {
			if _, err := c.callMethod(b.recv, b.name, args, 0); err != nil {
				return err
			}
			continue
		}
		idx, ok := c.funcs[b.name]
		if !ok {
			return fmt.Errorf("handler %s is not defined", b.name)
		}
		if _, err := c.invoke(idx, nil, args, 0); err != nil {
			return err
		}
	}
	return nil
}

func zeroValue(typ string) any {
	switch typ {
	case TypeInt:
		return int64(0)
	case TypeString:
		return ""
	case TypeBool:
		return false
	default:
		return nil
	}
}

func (c *Context) invoke(idx int, this *Object, args []any, depth int) (any, error) {
	if depth > maxCallDepth {
		return nil, errors.New("call depth exceeded")
	}
	f := c.asm.Funcs[idx]
	if len(args) != len(f.Params) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	locals := make([]any, max(int(f.Locals), len(args)+1))
	slot := 0
	if f.Class != "" {
		locals[0] = this
		slot = 1
	}
	copy(locals[slot:], args)
	return c.run(int(f.Entry), locals, depth)
}

func (c *Context) callMethod(recv *Object, name string, args []any, depth int) (any, error) {
	seen := map[string]bool{}
	for cur := recv.Class; cur != "" && !seen[cur]; {
		seen[cur] = true
		if idx, ok := c.methods[cur+"."+name]; ok {
			return c.invoke(idx, recv, args, depth+1)
		}
		desc, ok := c.classes[cur]
		if !ok {
			break
		}
		cur = desc.Base
	}
	return nil, fmt.Errorf("%s has no method %s at run time", recv.Class, name)
}

func (c *Context) run(pc int, locals []any, depth int) (any, error) {
	var stack []any
	pop := func() any {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	for pc < len(c.code) {
		in := c.code[pc]
		pc++
		switch in.Op {
		case OpPushInt:
			stack = append(stack, in.I)
		case OpPushStr:
			stack = append(stack, in.S)
		case OpPushBool:
			stack = append(stack, in.A != 0)
		case OpPushNull:
			stack = append(stack, nil)
		case OpLoadLocal:
			stack = append(stack, locals[in.A])
		case OpStoreLocal:
			locals[in.A] = pop()
		case OpLoadGlobal:
			stack = append(stack, c.globals[in.A])
		case OpStoreGlobal:
			c.globals[in.A] = pop()
		case OpGetField:
			obj, err := asObject(pop(), in.S)
			if err != nil {
				return nil, err
			}
			stack = append(stack, obj.Fields[in.S])
		case OpSetField:
			v := pop()
			obj, err := asObject(pop(), in.S)
			if err != nil {
				return nil, err
			}
			obj.Fields[in.S] = v
		case OpCall:
			n := int(in.I)
			args := append([]any(nil), stack[len(stack)-n:]...)
			stack = stack[:len(stack)-n]
			v, err := c.invoke(int(in.A), nil, args, depth+1)
			if err != nil {
				return nil, err
			}
			stack = append(stack, v)
		case OpCallMethod:
			n := int(in.I)
			args := append([]any(nil), stack[len(stack)-n:]...)
			stack = stack[:len(stack)-n]
			recv, err := asObject(pop(), in.S)
			if err != nil {
				return nil, err
			}
			v, err := c.callMethod(recv, in.S, args, depth)
			if err != nil {
				return nil, err
			}
			stack = append(stack, v)
		case OpAttach:
			h := pop()
			target, err := asObject(pop(), in.S)
			if err != nil {
				return nil, err
			}
			b := binding{name: in.T}
			if h != nil {
				if b.recv, err = asObject(h, in.T); err != nil {
					return nil, err
				}
			}
			if target.handlers == nil {
				target.handlers = make(map[string][]binding)
			}
			target.handlers[in.S] = append(target.handlers[in.S], b)
		case OpAdd:
			y, x := pop(), pop()
			switch xv := x.(type) {
			case int64:
				stack = append(stack, xv+y.(int64))
			case string:
				stack = append(stack, xv+y.(string))
			default:
				return nil, fmt.Errorf("cannot add %T", x)
			}
		case OpSub:
			y, x := pop(), pop()
			stack = append(stack, x.(int64)-y.(int64))
		case OpEq:
			y, x := pop(), pop()
			stack = append(stack, x == y)
		case OpNe:
			y, x := pop(), pop()
			stack = append(stack, x != y)
		case OpPop:
			pop()
		case OpRet:
			return pop(), nil
		default:
			return nil, fmt.Errorf("invalid opcode %d at %d", in.Op, pc-1)
		}
	}
	return nil, errors.New("code ended without return")
}

func asObject(v any, member string) (*Object, error) {
	obj, ok := v.(*Object)
	if !ok || obj == nil {
		return nil, fmt.Errorf("access to %s on a null object", member)
	}
	return obj, nil
}
