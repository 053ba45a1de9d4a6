// Package resource loads the authored inputs of a build: shared scripts,
// instance definitions and instance styles.
package resource

import (
	"fmt"
	"strings"

	"rescomp/internal/source"
)

type Kind uint8

const (
	KindScript Kind = iota + 1
	KindInstance
	KindInstanceStyle
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "Script"
	case KindInstance:
		return "Instance"
	case KindInstanceStyle:
		return "InstanceStyle"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind accepts the manifest spelling of a kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "script", "sharedscript":
		return KindScript, nil
	case "instance":
		return KindInstance, nil
	case "instancestyle", "style":
		return KindInstanceStyle, nil
	default:
		return 0, fmt.Errorf("unknown resource kind %q (expected Script|Instance|InstanceStyle)", s)
	}
}

// LanguageWorkflow is the only script language the build compiles.
const LanguageWorkflow = "Workflow"

// Spec is a resource as declared in the project manifest.
type Spec struct {
	Name     string
	Kind     Kind
	Path     string
	Language string
}

// Resource is one loaded resource. Exactly one of Script, Instance and Style
// is set, matching Kind, unless the payload failed to decode.
type Resource struct {
	Name   string
	Kind   Kind
	Path   string
	File   source.FileID
	TagPos source.Span

	Script   *SharedScript
	Instance *InstanceContext
	Style    *StyleContext
}

// SharedScript is script code shared by every instance.
type SharedScript struct {
	Language string
	Code     []byte
	Region   source.Region
}

// Workflow reports whether the script is compiled by this build.
func (s *SharedScript) Workflow() bool {
	return s != nil && strings.EqualFold(s.Language, LanguageWorkflow)
}

// Setter assigns a literal value to a property.
type Setter struct {
	Name     string
	Value    string
	Tag      string // YAML tag of the value: !!str, !!int, !!bool
	NamePos  source.Span
	ValuePos source.Span
	// FromStyle names the style the setter was applied from, empty for own setters.
	FromStyle string
}

// Binding attaches a handler method to an event of the instance.
type Binding struct {
	Event      string
	Handler    string
	EventPos   source.Span
	HandlerPos source.Span
}

// Ref is a by-name reference to another resource.
type Ref struct {
	Name string
	Pos  source.Span
}

// InstanceContext is a decoded instance definition.
type InstanceContext struct {
	ClassName string
	ClassPos  source.Span
	Namespace string
	TypeName  string
	BasePos   source.Span

	Styles     []Ref
	Properties []Setter
	Events     []Binding

	Script       []byte
	ScriptRegion source.Region
	HasScript    bool
}

// QualifiedType is the instance type as authored: "namespace:type" or "type".
func (c *InstanceContext) QualifiedType() string {
	if c.Namespace == "" {
		return c.TypeName
	}
	return c.Namespace + ":" + c.TypeName
}

// Property returns the setter for name.
func (c *InstanceContext) Property(name string) (Setter, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Setter{}, false
}

// StyleContext is a decoded instance style.
type StyleContext struct {
	Name       string
	NamePos    source.Span
	Properties []Setter
}
