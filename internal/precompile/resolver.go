package precompile

import (
	"context"
	"fmt"

	"rescomp/internal/diag"
	"rescomp/internal/resource"
	"rescomp/internal/source"
)

// ResolverKind selects the resolver variant.
type ResolverKind uint8

const (
	ResolverSharedScript ResolverKind = iota + 1
	ResolverInstance
	ResolverStyle
)

func (k ResolverKind) String() string {
	switch k {
	case ResolverSharedScript:
		return "SharedScript"
	case ResolverInstance:
		return "Instance"
	case ResolverStyle:
		return "InstanceStyle"
	default:
		return fmt.Sprintf("ResolverKind(%d)", k)
	}
}

// passTables lists the passes each variant takes part in.
var passTables = map[ResolverKind]map[int]Granularity{
	ResolverSharedScript: {
		PassCollectScripts: PerResource,
		PassCompileScripts: PerPass,
	},
	ResolverInstance: {
		PassCollectInstanceTypes:  PerResource,
		PassCompileInstanceTypes:  PerPass,
		PassCollectEventHandlers:  PerResource,
		PassCompileEventHandlers:  PerPass,
		PassGenerateInstanceClass: PerResource,
		PassCompileInstanceClass:  PerPass,
	},
	ResolverStyle: {},
}

var resourceKinds = map[ResolverKind]resource.Kind{
	ResolverSharedScript: resource.KindScript,
	ResolverInstance:     resource.KindInstance,
	ResolverStyle:        resource.KindInstanceStyle,
}

// Resolver turns resources of one kind into script modules and assemblies.
type Resolver struct {
	Kind ResolverKind
}

func (r Resolver) Name() string { return r.Kind.String() }

func (r Resolver) ResourceKind() resource.Kind { return resourceKinds[r.Kind] }

func (r Resolver) Support(pass int) Granularity { return passTables[r.Kind][pass] }

// MaxPass is the last pass the variant takes part in, -1 for none.
func (r Resolver) MaxPass() int {
	last := -1
	for p := range passTables[r.Kind] {
		last = max(last, p)
	}
	return last
}

func (r Resolver) PerResource(ctx context.Context, st *Step, res *resource.Resource) error {
	switch {
	case r.Kind == ResolverSharedScript && st.Pass == PassCollectScripts:
		return collectScript(st, res)
	case r.Kind == ResolverInstance && st.Pass == PassCollectInstanceTypes:
		return collectInstanceType(st, res)
	case r.Kind == ResolverInstance && st.Pass == PassCollectEventHandlers:
		return collectEventHandlers(st, res)
	case r.Kind == ResolverInstance && st.Pass == PassGenerateInstanceClass:
		return generateInstanceClass(st, res)
	}
	return fmt.Errorf("%s does not run per resource in pass %d", r.Kind, st.Pass)
}

func (r Resolver) PerPass(ctx context.Context, s *Session) error {
	switch {
	case r.Kind == ResolverSharedScript && s.pass == PassCompileScripts:
		return s.GenerateAssembly(ctx, pathShared, false)
	case r.Kind == ResolverInstance && s.pass == PassCompileInstanceTypes:
		return compileInstanceTypes(ctx, s)
	case r.Kind == ResolverInstance && s.pass == PassCompileEventHandlers:
		return compileEventHandlers(ctx, s)
	case r.Kind == ResolverInstance && s.pass == PassCompileInstanceClass:
		return compileInstanceClass(ctx, s)
	}
	return fmt.Errorf("%s does not run per pass in pass %d", r.Kind, s.pass)
}

// Resolve decodes a payload of the variant's resource kind that is not part of a project.
func (r Resolver) Resolve(name string, data []byte) (*resource.Resource, []diag.Diagnostic) {
	res := &resource.Resource{Name: name, Kind: r.ResourceKind()}
	var diags []diag.Diagnostic
	switch r.Kind {
	case ResolverSharedScript:
		fs := source.NewFileSet()
		id := fs.AddVirtual(name, data)
		res.File = id
		res.Script = &resource.SharedScript{
			Language: resource.LanguageWorkflow,
			Code:     data,
			Region:   source.ContiguousRegion(fs.Whole(id)),
		}
	case ResolverInstance:
		res.Instance, diags = resource.ResolveInstance(name, data)
	case ResolverStyle:
		res.Style, diags = resource.ResolveStyle(name, data)
	}
	for i := range diags {
		diags[i] = diags[i].WithResource(name)
	}
	return res, diags
}

// Serialize writes the decoded content of res back to its payload form.
func (r Resolver) Serialize(res *resource.Resource) ([]byte, error) {
	switch {
	case r.Kind == ResolverSharedScript && res.Script != nil:
		return res.Script.Code, nil
	case r.Kind == ResolverInstance && res.Instance != nil:
		return resource.EncodeInstance(res.Instance)
	case r.Kind == ResolverStyle && res.Style != nil:
		return resource.EncodeStyle(res.Style)
	}
	return nil, fmt.Errorf("%s cannot serialize resource %s of kind %s", r.Kind, res.Name, res.Kind)
}

// Manager holds the resolvers by resource kind.
type Manager struct {
	byKind map[resource.Kind]Resolver
	order  []Resolver
}

// NewManager registers the three resolver variants.
func NewManager() *Manager {
	m := &Manager{byKind: make(map[resource.Kind]Resolver)}
	for _, k := range []ResolverKind{ResolverSharedScript, ResolverInstance, ResolverStyle} {
		m.Register(Resolver{Kind: k})
	}
	return m
}

// Register adds r, replacing a resolver for the same resource kind.
func (m *Manager) Register(r Resolver) {
	kind := r.ResourceKind()
	if _, ok := m.byKind[kind]; !ok {
		m.order = append(m.order, r)
	} else {
		for i := range m.order {
			if m.order[i].ResourceKind() == kind {
				m.order[i] = r
			}
		}
	}
	m.byKind[kind] = r
}

func (m *Manager) ForKind(kind resource.Kind) (Resolver, bool) {
	r, ok := m.byKind[kind]
	return r, ok
}

// Participants returns the registered resolvers in registration order.
func (m *Manager) Participants() []Participant {
	out := make([]Participant, len(m.order))
	for i, r := range m.order {
		out[i] = r
	}
	return out
}

// MaxPass is the highest pass any registered resolver takes part in.
func (m *Manager) MaxPass() int {
	last := -1
	for _, r := range m.order {
		last = max(last, r.MaxPass())
	}
	return last
}
