package resource

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"rescomp/internal/diag"
	"rescomp/internal/source"
)

type decoder struct {
	f     *source.File
	diags []diag.Diagnostic
}

func (d *decoder) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	d.diags = append(d.diags, diag.NewError(code, sp, fmt.Sprintf(format, args...)))
}

func (d *decoder) pos(line, col int) source.Span {
	l, errL := safecast.Conv[uint32](line)
	c, errC := safecast.Conv[uint32](col)
	if errL != nil || errC != nil {
		return source.Span{File: d.f.ID}
	}
	off := d.f.Offset(source.LineCol{Line: l, Col: c})
	return source.Span{File: d.f.ID, Start: off, End: off}
}

// span covers a scalar including its quotes; other nodes get an empty span at their start.
func (d *decoder) span(n *yaml.Node) source.Span {
	sp := d.pos(n.Line, n.Column)
	if n.Kind != yaml.ScalarNode || n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return sp
	}
	width := len(n.Value)
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		width += 2
	}
	w, err := safecast.Conv[uint32](width)
	if err != nil {
		return sp
	}
	sp.End = min(sp.Start+w, d.f.Len())
	return sp
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func (d *decoder) root() *yaml.Node {
	var doc yaml.Node
	if err := yaml.Unmarshal(d.f.Content, &doc); err != nil {
		sp := source.Span{File: d.f.ID}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			if line, convErr := strconv.Atoi(m[1]); convErr == nil {
				sp = d.pos(line, 1)
			}
		}
		d.errorf(diag.ResMalformed, sp, "%s", strings.TrimPrefix(err.Error(), "yaml: "))
		return nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		d.errorf(diag.ResMalformed, source.Span{File: d.f.ID}, "resource is empty")
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		d.errorf(diag.ResMalformed, d.span(root), "resource must be a mapping")
		return nil
	}
	return root
}

// fields walks a mapping node in key order.
func (d *decoder) fields(m *yaml.Node, fn func(key string, keyNode, value *yaml.Node)) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		fn(m.Content[i].Value, m.Content[i], m.Content[i+1])
	}
}

func (d *decoder) scalar(key string, n *yaml.Node) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		d.errorf(diag.ResMalformed, d.span(n), "%s must be a scalar", key)
		return "", false
	}
	return n.Value, true
}

func (d *decoder) seq(key string, n *yaml.Node) []*yaml.Node {
	if n.Kind != yaml.SequenceNode {
		d.errorf(diag.ResMalformed, d.span(n), "%s must be a list", key)
		return nil
	}
	return n.Content
}

func (d *decoder) setters(key string, n *yaml.Node) []Setter {
	var out []Setter
	for _, item := range d.seq(key, n) {
		if item.Kind != yaml.MappingNode {
			d.errorf(diag.ResMalformed, d.span(item), "%s entries must be mappings", key)
			continue
		}
		s := Setter{NamePos: d.span(item)}
		d.fields(item, func(k string, kn, v *yaml.Node) {
			switch k {
			case "name":
				s.Name, _ = d.scalar("name", v)
				s.NamePos = d.span(v)
			case "value":
				s.Value, _ = d.scalar("value", v)
				s.Tag = v.ShortTag()
				s.ValuePos = d.span(v)
			default:
				d.errorf(diag.ResMalformed, d.span(kn), "unknown property field %q", k)
			}
		})
		if s.Name == "" {
			d.errorf(diag.ResMissingField, s.NamePos, "property without a name")
			continue
		}
		out = append(out, s)
	}
	return out
}

// DecodeInstance reads an instance definition from f.
func DecodeInstance(f *source.File) (*InstanceContext, []diag.Diagnostic) {
	d := &decoder{f: f}
	root := d.root()
	if root == nil {
		return nil, d.diags
	}
	c := &InstanceContext{ClassPos: d.span(root), BasePos: d.span(root)}
	sawBase := false
	d.fields(root, func(key string, kn, v *yaml.Node) {
		switch key {
		case "class":
			c.ClassName, _ = d.scalar(key, v)
			c.ClassName = strings.TrimSpace(c.ClassName)
			c.ClassPos = d.span(v)
		case "base":
			base, _ := d.scalar(key, v)
			c.Namespace, c.TypeName = splitType(base)
			c.BasePos = d.span(v)
			sawBase = true
		case "styles":
			for _, s := range d.seq(key, v) {
				if name, ok := d.scalar("style", s); ok {
					c.Styles = append(c.Styles, Ref{Name: name, Pos: d.span(s)})
				}
			}
		case "properties":
			c.Properties = d.setters(key, v)
		case "events":
			for _, item := range d.seq(key, v) {
				if item.Kind != yaml.MappingNode {
					d.errorf(diag.ResMalformed, d.span(item), "events entries must be mappings")
					continue
				}
				b := Binding{EventPos: d.span(item), HandlerPos: d.span(item)}
				d.fields(item, func(k string, kn, ev *yaml.Node) {
					switch k {
					case "name":
						b.Event, _ = d.scalar(k, ev)
						b.EventPos = d.span(ev)
					case "handler":
						b.Handler, _ = d.scalar(k, ev)
						b.HandlerPos = d.span(ev)
					default:
						d.errorf(diag.ResMalformed, d.span(kn), "unknown event field %q", k)
					}
				})
				if b.Event == "" || b.Handler == "" {
					d.errorf(diag.ResMissingField, b.EventPos, "event binding needs a name and a handler")
					continue
				}
				c.Events = append(c.Events, b)
			}
		case "script":
			code, ok := d.scalar(key, v)
			if !ok {
				return
			}
			c.Script = []byte(code)
			c.ScriptRegion = d.scriptRegion(v)
			c.HasScript = true
		default:
			d.errorf(diag.ResMalformed, d.span(kn), "unknown instance field %q", key)
		}
	})
	if !sawBase {
		d.errorf(diag.ResMissingField, d.span(root), "instance has no base type")
	}
	return c, d.diags
}

// scriptRegion maps a script scalar back into the file. Block scalars lose
// their indentation, so each line is mapped separately.
func (d *decoder) scriptRegion(v *yaml.Node) source.Region {
	tag := d.span(v)
	if v.Style&(yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
		if v.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			tag.Start++
		}
		return source.ContiguousRegion(tag)
	}
	first, _ := safecast.Conv[uint32](v.Line + 1) //nolint:errcheck // line numbers fit
	indent := uint32(0)
	for line := first; ; line++ {
		text := d.f.GetLine(line)
		if strings.TrimSpace(text) == "" {
			if d.f.LineStart(line) >= d.f.Len() {
				break
			}
			continue
		}
		n, _ := safecast.Conv[uint32](len(text) - len(strings.TrimLeft(text, " "))) //nolint:errcheck
		indent = n
		break
	}
	return source.BlockRegion(d.f, first, indent, []byte(v.Value), tag)
}

func splitType(s string) (ns, typ string) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// DecodeStyle reads an instance style from f.
func DecodeStyle(f *source.File) (*StyleContext, []diag.Diagnostic) {
	d := &decoder{f: f}
	root := d.root()
	if root == nil {
		return nil, d.diags
	}
	c := &StyleContext{NamePos: d.span(root)}
	d.fields(root, func(key string, kn, v *yaml.Node) {
		switch key {
		case "name":
			c.Name, _ = d.scalar(key, v)
			c.NamePos = d.span(v)
		case "properties":
			c.Properties = d.setters(key, v)
		default:
			d.errorf(diag.ResMalformed, d.span(kn), "unknown style field %q", key)
		}
	})
	return c, d.diags
}

type setterDoc struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

type bindingDoc struct {
	Name    string `yaml:"name"`
	Handler string `yaml:"handler"`
}

type instanceDoc struct {
	Class      string       `yaml:"class"`
	Base       string       `yaml:"base"`
	Styles     []string     `yaml:"styles,omitempty"`
	Properties []setterDoc  `yaml:"properties,omitempty"`
	Events     []bindingDoc `yaml:"events,omitempty"`
	Script     string       `yaml:"script,omitempty"`
}

type styleDoc struct {
	Name       string      `yaml:"name"`
	Properties []setterDoc `yaml:"properties,omitempty"`
}

func setterDocs(in []Setter) []setterDoc {
	var out []setterDoc
	for _, s := range in {
		if s.FromStyle != "" {
			continue
		}
		var v any = s.Value
		switch s.Tag {
		case "!!int":
			if n, err := strconv.ParseInt(s.Value, 0, 64); err == nil {
				v = n
			}
		case "!!bool":
			if b, err := strconv.ParseBool(s.Value); err == nil {
				v = b
			}
		}
		out = append(out, setterDoc{Name: s.Name, Value: v})
	}
	return out
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeInstance writes c in the form DecodeInstance reads. Setters applied
// from styles are not written back.
func EncodeInstance(c *InstanceContext) ([]byte, error) {
	doc := instanceDoc{Class: c.ClassName, Base: c.QualifiedType(), Properties: setterDocs(c.Properties)}
	for _, s := range c.Styles {
		doc.Styles = append(doc.Styles, s.Name)
	}
	for _, b := range c.Events {
		doc.Events = append(doc.Events, bindingDoc{Name: b.Event, Handler: b.Handler})
	}
	if c.HasScript {
		doc.Script = string(c.Script)
	}
	return encode(doc)
}

// EncodeStyle writes c in the form DecodeStyle reads.
func EncodeStyle(c *StyleContext) ([]byte, error) {
	return encode(styleDoc{Name: c.Name, Properties: setterDocs(c.Properties)})
}
