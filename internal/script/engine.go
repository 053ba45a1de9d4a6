package script

import (
	"errors"
	"strings"

	"rescomp/internal/script/ast"
	"rescomp/internal/source"
)

var ErrNotBuilt = errors.New("module set was not rebuilt successfully")

// Metadata is the symbol state an engine keeps after a rebuild. It can be
// handed to a later session as a source of external classes.
type Metadata struct {
	Assembly string       `msgpack:"assembly"`
	Classes  []TypeDesc   `msgpack:"classes"`
	Funcs    []FuncDesc   `msgpack:"funcs"`
	Globals  []GlobalInfo `msgpack:"globals"`
}

// LookupType makes Metadata usable as a TypeProvider.
func (m *Metadata) LookupType(name string) (*TypeDesc, bool) {
	if m == nil {
		return nil, false
	}
	for i := range m.Classes {
		if m.Classes[i].Name == name {
			return &m.Classes[i], true
		}
	}
	return nil, false
}

// Engine is a cumulative compilation manager: modules are added, the whole
// set is rebuilt, and a successful rebuild can be lowered into an Assembly.
// An Engine is not safe for concurrent use.
type Engine struct {
	name    string
	types   TypeProvider
	modules []*ast.Module
	prog    *program
	built   bool
}

// NewEngine creates an engine. types resolves classes outside the module set and may be nil.
func NewEngine(name string, types TypeProvider) *Engine {
	return &Engine{name: name, types: types}
}

// Parse parses src; it does not add the module.
func (e *Engine) Parse(src []byte, region source.Region) (*ast.Module, []Error) {
	return Parse(src, region)
}

func (e *Engine) AddModule(m *ast.Module) {
	e.modules = append(e.modules, m)
	e.built = false
}

// Modules returns the modules added so far.
func (e *Engine) Modules() []*ast.Module { return e.modules }

// Rebuild expands virtual constructs of every module and checks the whole set.
func (e *Engine) Rebuild(strict bool) []Error {
	for _, m := range e.modules {
		ast.Expand(m)
	}
	prog, errs := check(e.modules, e.types, strict)
	e.prog = prog
	e.built = len(errs) == 0
	return errs
}

// GenerateAssembly lowers the last successful rebuild.
func (e *Engine) GenerateAssembly() (*Assembly, error) {
	if !e.built {
		return nil, ErrNotBuilt
	}
	return lower(e.name, e.modules, e.prog)
}

// Clear resets the engine. keepTypes keeps the symbol state for
// ExtractMetadata; fullReset also forgets the type provider.
func (e *Engine) Clear(keepTypes, fullReset bool) {
	e.modules = nil
	e.built = false
	if !keepTypes {
		e.prog = nil
	}
	if fullReset {
		e.types = nil
	}
}

// ExtractMetadata returns what the last rebuild learned, even a failed one.
func (e *Engine) ExtractMetadata() *Metadata {
	md := &Metadata{Assembly: e.name}
	if e.prog == nil {
		return md
	}
	for _, cls := range e.prog.classOrder {
		md.Classes = append(md.Classes, *cls.desc)
	}
	for _, f := range e.prog.funcOrder {
		if f.class != "" || strings.HasPrefix(f.decl.Name, "__") {
			continue
		}
		md.Funcs = append(md.Funcs, FuncDesc{Name: f.decl.Name, Params: f.params, Result: f.result})
	}
	for _, g := range e.prog.globalOrder {
		md.Globals = append(md.Globals, GlobalInfo{Name: g.decl.Name, Type: g.typ})
	}
	return md
}
