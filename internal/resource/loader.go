package resource

import (
	"fmt"
	"path/filepath"

	"rescomp/internal/diag"
	"rescomp/internal/source"
)

// Load reads the payload of spec from disk and decodes it. Decoding problems
// are returned as diagnostics tagged with the resource name; the resource is
// still returned when the file itself could be read.
func Load(fs *source.FileSet, baseDir string, spec Spec) (*Resource, []diag.Diagnostic) {
	path := spec.Path
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	id, err := fs.Load(path)
	if err != nil {
		d := diag.NewError(diag.ResUnreadable, source.Span{}, fmt.Sprintf("cannot read %s: %v", spec.Path, err))
		return nil, []diag.Diagnostic{d.WithResource(spec.Name)}
	}
	return FromFile(fs.Get(id), spec)
}

// FromFile decodes an already loaded file as spec.
func FromFile(f *source.File, spec Spec) (*Resource, []diag.Diagnostic) {
	r := &Resource{
		Name:   spec.Name,
		Kind:   spec.Kind,
		Path:   spec.Path,
		File:   f.ID,
		TagPos: firstLine(f),
	}
	var diags []diag.Diagnostic
	switch spec.Kind {
	case KindScript:
		lang := spec.Language
		if lang == "" {
			lang = LanguageWorkflow
		}
		whole := source.Span{File: f.ID, Start: 0, End: f.Len()}
		r.Script = &SharedScript{Language: lang, Code: f.Content, Region: source.ContiguousRegion(whole)}
	case KindInstance:
		r.Instance, diags = DecodeInstance(f)
		if r.Instance != nil {
			r.TagPos = r.Instance.ClassPos
		}
	case KindInstanceStyle:
		r.Style, diags = DecodeStyle(f)
		if r.Style != nil {
			r.TagPos = r.Style.NamePos
		}
	default:
		diags = append(diags, diag.NewError(diag.ResUnknownKind, r.TagPos, fmt.Sprintf("unknown resource kind %s", spec.Kind)))
	}
	for i := range diags {
		diags[i] = diags[i].WithResource(spec.Name)
	}
	return r, diags
}

func firstLine(f *source.File) source.Span {
	end := f.Len()
	if len(f.LineIdx) > 0 {
		end = f.LineIdx[0]
	}
	return source.Span{File: f.ID, Start: 0, End: end}
}

// ApplyStyles copies the setters of the instance's styles into it. Own setters
// win over style setters, later styles win over earlier ones. Unknown styles
// are reported and skipped.
func ApplyStyles(c *InstanceContext, styles map[string]*StyleContext) []diag.Diagnostic {
	var diags []diag.Diagnostic
	have := make(map[string]bool, len(c.Properties))
	for _, p := range c.Properties {
		have[p.Name] = true
	}
	for i := len(c.Styles) - 1; i >= 0; i-- {
		ref := c.Styles[i]
		style, ok := styles[ref.Name]
		if !ok {
			diags = append(diags, diag.NewError(diag.PreUnknownStyle, ref.Pos,
				fmt.Sprintf("style %q is not defined", ref.Name)))
			continue
		}
		for _, p := range style.Properties {
			if have[p.Name] {
				continue
			}
			have[p.Name] = true
			p.FromStyle = style.Name
			c.Properties = append(c.Properties, p)
		}
	}
	return diags
}

// ResolveInstance decodes an instance from bytes that are not part of a project.
func ResolveInstance(name string, data []byte) (*InstanceContext, []diag.Diagnostic) {
	fs := source.NewFileSet()
	return DecodeInstance(fs.Get(fs.AddVirtual(name, data)))
}

// ResolveStyle decodes a style from bytes that are not part of a project.
func ResolveStyle(name string, data []byte) (*StyleContext, []diag.Diagnostic) {
	fs := source.NewFileSet()
	return DecodeStyle(fs.Get(fs.AddVirtual(name, data)))
}
