package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rescomp/internal/buildpipeline"
	"rescomp/internal/project"
)

const noManifestMessage = "no " + project.ManifestName + " found\nrun `rescomp init` to create a project, or pass -C <dir>"

func loadManifest(cmd *cobra.Command) (*project.Manifest, error) {
	dir, err := cmd.Root().PersistentFlags().GetString("project")
	if err != nil {
		return nil, err
	}
	m, ok, err := project.Load(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(noManifestMessage)
	}
	return m, nil
}

func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().Int("jobs", 0, "parallel per-resource steps (0 = manifest value)")
	cmd.Flags().Bool("strict", false, "compile scripts in strict mode (overrides the manifest)")
	cmd.Flags().StringSlice("import", nil, "additional metadata files to import")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

// compileRequest applies command flags on top of the manifest settings.
func compileRequest(cmd *cobra.Command, m *project.Manifest) (*buildpipeline.CompileRequest, error) {
	req := buildpipeline.NewCompileRequest(m)
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return nil, err
	}
	if jobs < 0 {
		return nil, fmt.Errorf("--jobs must not be negative")
	}
	if jobs > 0 {
		req.Jobs = jobs
	}
	if cmd.Flags().Changed("strict") {
		if req.Strict, err = cmd.Flags().GetBool("strict"); err != nil {
			return nil, err
		}
	}
	imports, err := cmd.Flags().GetStringSlice("import")
	if err != nil {
		return nil, err
	}
	req.Imports = append(req.Imports, imports...)
	return req, nil
}

func resourceNames(m *project.Manifest) []string {
	specs := m.Specs()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
