package precompile

import (
	"context"
	"fmt"

	"rescomp/internal/diag"
	"rescomp/internal/resource"
	"rescomp/internal/script/ast"
	"rescomp/internal/workflow"
)

func collectInstanceType(st *Step, res *resource.Resource) error {
	c := res.Instance
	if c == nil {
		return nil
	}
	if c.ClassName == "" {
		st.Report(diag.SevError, diag.PreMissingClassName, res.TagPos,
			"instance of type %s does not declare a class name", c.QualifiedType())
		return nil
	}
	st.ReportAll(resource.ApplyStyles(c, st.Session.Styles))

	// ошибки скрипта сообщаются в GenerateInstanceClass
	members, errs := parseMembers(c)
	if len(errs) > 0 {
		members = nil
	}
	st.AddModule(pathTemporaryClass, workflow.KindTemporaryUnit, skeleton(c, members, nil), res.TagPos, false)
	st.RegisterClass(c.ClassName, c.ClassPos)
	return nil
}

func compileInstanceTypes(ctx context.Context, s *Session) error {
	for _, d := range s.ClassNames.Duplicates() {
		first := d.Entries[0]
		for _, e := range d.Entries[1:] {
			msg := fmt.Sprintf("class %s is already declared by %s", d.Name, first.Resource)
			s.Diags.Add(diag.New(diag.SevWarning, diag.PreDuplicateClassName, e.Pos, msg).WithResource(e.Resource))
		}
	}

	if b := s.Bucket(pathShared); b != nil {
		b.Invalidate()
	}
	if s.Bucket(pathTemporaryClass) == nil {
		return nil
	}
	if err := s.Store.CopyShared(pathShared, pathTemporaryClass, workflow.KindTemporaryUnit); err != nil {
		return err
	}
	if err := s.GenerateAssembly(ctx, pathTemporaryClass, false); err != nil {
		return err
	}
	s.Store.ClearRecords(pathTemporaryClass)
	return nil
}

// resolveHandlers finds the parameter types of every bound event on the
// instance class, which already carries the script events and the base type.
func resolveHandlers(st *Step, c *resource.InstanceContext, report bool) []handlerSig {
	var out []handlerSig
	for _, b := range c.Events {
		ev, ok := st.Session.Types.Event(c.ClassName, b.Event)
		if !ok {
			ev, ok = st.Session.Types.Event(baseTypeName(c), b.Event)
		}
		if !ok {
			if report {
				st.Report(diag.SevError, diag.PreUnknownEvent, b.EventPos,
					"%s has no event %s", c.QualifiedType(), b.Event)
			}
			continue
		}
		out = append(out, handlerSig{binding: b, params: ev.Params})
	}
	return out
}

func collectEventHandlers(st *Step, res *resource.Resource) error {
	if !st.Session.HasAssembly(pathTemporaryClass) {
		return nil
	}
	c := res.Instance
	if c == nil || c.ClassName == "" {
		return nil
	}
	members, errs := parseMembers(c)
	if len(errs) > 0 {
		members = nil
	}
	handlers := resolveHandlers(st, c, true)
	st.AddModule(pathTemporaryClass, workflow.KindTemporaryUnit, skeleton(c, members, handlers), res.TagPos, false)
	return nil
}

// compileEventHandlers rebuilds TemporaryClass even when pass 3 failed: the
// shared records alone still give pass 6 an assembly to check against.
func compileEventHandlers(ctx context.Context, s *Session) error {
	b := s.Bucket(pathTemporaryClass)
	if b == nil {
		return nil
	}
	b.Invalidate()
	if err := s.Store.CopyShared(pathShared, pathTemporaryClass, workflow.KindTemporaryUnit); err != nil {
		return err
	}
	return s.GenerateAssembly(ctx, pathTemporaryClass, false)
}

// propertyType finds the declared type of a property: script members first,
// then the base type through the registry.
func propertyType(st *Step, c *resource.InstanceContext, members []*ast.Decl, name string) (string, bool) {
	for _, d := range members {
		if d.Name != name || (d.Kind != ast.DeclProp && d.Kind != ast.DeclVar) {
			continue
		}
		if d.Type == nil {
			return "", true
		}
		return d.Type.Name, true
	}
	if p, ok := st.Session.Types.Prop(baseTypeName(c), name); ok {
		return p.Type, true
	}
	return "", false
}

func generateInstanceClass(st *Step, res *resource.Resource) error {
	if !st.Session.HasAssembly(pathTemporaryClass) {
		return nil
	}
	c := res.Instance
	if c == nil || c.ClassName == "" {
		return nil
	}
	before := st.Errors()

	if _, ok := st.Session.Types.LookupType(baseTypeName(c)); !ok {
		st.Report(diag.SevError, diag.PreUnknownBaseType, c.BasePos, "unknown base type %s", c.QualifiedType())
	}
	members, errs := parseMembers(c)
	for _, e := range errs {
		pos := e.Span
		if pos.IsZero() {
			pos = c.ScriptRegion.Span
		}
		st.Report(diag.SevError, e.Code, pos, "%s", e.Message)
	}

	var sets []assignment
	for _, p := range c.Properties {
		typ, ok := propertyType(st, c, members, p.Name)
		if !ok {
			st.Report(diag.SevError, diag.PreUnknownProperty, p.NamePos,
				"%s has no property %s", c.QualifiedType(), p.Name)
			continue
		}
		value, err := literal(p, typ)
		if err != nil {
			st.Report(diag.SevError, diag.ResMalformed, p.ValuePos, "property %s: %v", p.Name, err)
			continue
		}
		sets = append(sets, assignment{setter: p, value: value})
	}
	handlers := resolveHandlers(st, c, false)

	if st.Errors() > before {
		return nil
	}
	st.AddModule(pathInstanceClass, workflow.KindCombinedUnit, constructor(c, sets, handlers), res.TagPos, false)
	st.AddModule(pathInstanceClass, workflow.KindCombinedUnit, classBody(c, members, handlers), res.TagPos, false)
	return nil
}

func compileInstanceClass(ctx context.Context, s *Session) error {
	if b := s.Bucket(pathTemporaryClass); b != nil {
		b.ReleaseContext()
	}
	if s.Bucket(pathInstanceClass) != nil {
		if err := s.Store.CopyShared(pathShared, pathInstanceClass, workflow.KindCombinedUnit); err != nil {
			return err
		}
		if err := s.GenerateAssembly(ctx, pathInstanceClass, true); err != nil {
			return err
		}
	}
	s.Positions.Clear()
	s.Types.Clear()
	return nil
}
