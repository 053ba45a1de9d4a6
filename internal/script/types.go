package script

// Builtin type names.
const (
	TypeInt    = "int"
	TypeString = "string"
	TypeBool   = "bool"
	TypeVoid   = "void"
	TypeObject = "object"
)

func isBuiltin(name string) bool {
	switch name {
	case TypeInt, TypeString, TypeBool, TypeVoid, TypeObject:
		return true
	}
	return false
}

type PropDesc struct {
	Name string `msgpack:"name" json:"name"`
	Type string `msgpack:"type" json:"type"`
}

type EventDesc struct {
	Name   string   `msgpack:"name" json:"name"`
	Params []string `msgpack:"params" json:"params"`
}

type MethodDesc struct {
	Name   string   `msgpack:"name" json:"name"`
	Params []string `msgpack:"params" json:"params"`
	Result string   `msgpack:"result" json:"result"`
}

// TypeDesc describes a class: a GUI type known to the host, or a class
// declared in script. Script classes keep accessor methods of their
// properties in Methods and backing fields in Fields.
type TypeDesc struct {
	Name    string       `msgpack:"name" json:"name"`
	Base    string       `msgpack:"base,omitempty" json:"base,omitempty"`
	Script  bool         `msgpack:"script,omitempty" json:"script,omitempty"`
	Fields  []PropDesc   `msgpack:"fields,omitempty" json:"fields,omitempty"`
	Props   []PropDesc   `msgpack:"props,omitempty" json:"props,omitempty"`
	Events  []EventDesc  `msgpack:"events,omitempty" json:"events,omitempty"`
	Methods []MethodDesc `msgpack:"methods,omitempty" json:"methods,omitempty"`
}

func (d *TypeDesc) Field(name string) (PropDesc, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return PropDesc{}, false
}

func (d *TypeDesc) Prop(name string) (PropDesc, bool) {
	for _, p := range d.Props {
		if p.Name == name {
			return p, true
		}
	}
	return PropDesc{}, false
}

func (d *TypeDesc) Event(name string) (EventDesc, bool) {
	for _, e := range d.Events {
		if e.Name == name {
			return e, true
		}
	}
	return EventDesc{}, false
}

func (d *TypeDesc) Method(name string) (MethodDesc, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodDesc{}, false
}

// TypeProvider resolves classes that are not declared in the compiled module set.
type TypeProvider interface {
	LookupType(name string) (*TypeDesc, bool)
}

// FuncDesc is the signature of a global function.
type FuncDesc struct {
	Name   string   `msgpack:"name" json:"name"`
	Params []string `msgpack:"params" json:"params"`
	Result string   `msgpack:"result" json:"result"`
}

func sameTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
