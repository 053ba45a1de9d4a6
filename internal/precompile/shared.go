package precompile

import (
	"rescomp/internal/diag"
	"rescomp/internal/resource"
	"rescomp/internal/workflow"
)

const (
	pathShared         = workflow.PathShared
	pathTemporaryClass = workflow.PathTemporaryClass
	pathInstanceClass  = workflow.PathInstanceClass
)

// collectScript parses a shared script into the Shared bucket. Scripts in
// other languages are not compiled here.
func collectScript(st *Step, res *resource.Resource) error {
	if !res.Script.Workflow() {
		return nil
	}
	mod, errs := st.Session.NewCompiler(res.Name).Parse(res.Script.Code, res.Script.Region)
	if len(errs) > 0 {
		for _, e := range errs {
			pos := e.Span
			if pos.IsZero() {
				pos = res.TagPos
			}
			st.Report(diag.SevError, e.Code, pos, "%s", e.Message)
		}
		return nil
	}
	st.AddModule(pathShared, workflow.KindShared, mod, res.TagPos, true)
	return nil
}
