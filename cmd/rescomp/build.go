package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rescomp/internal/buildpipeline"
	"rescomp/internal/metacache"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags]",
	Short: "Compile the project and write its metadata",
	Long: `Compile every resource declared in rescomp.toml and write the metadata of
the resulting instance classes to [build].metadata_out. Unchanged projects are
served from the build cache.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	addCompileFlags(buildCmd)
	addDiagFlags(buildCmd)
	buildCmd.Flags().String("metadata-out", "", "metadata output path (overrides the manifest)")
	buildCmd.Flags().Bool("no-cache", false, "do not read or write the build cache")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	creq, err := compileRequest(cmd, m)
	if err != nil {
		return err
	}
	dopts, err := readDiagOptions(cmd, m.Config.Build.MaxDiagnostics)
	if err != nil {
		return err
	}
	req := &buildpipeline.BuildRequest{
		CompileRequest: *creq,
		MetadataOut:    m.Config.Build.MetadataOut,
	}
	out, err := cmd.Flags().GetString("metadata-out")
	if err != nil {
		return err
	}
	if out != "" {
		req.MetadataOut = out
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	if !noCache {
		cache, cacheErr := metacache.Open("rescomp")
		if cacheErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: build cache disabled: %v\n", cacheErr)
		}
		req.Cache = cache
	}

	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	var res buildpipeline.BuildResult
	if shouldUseTUI(mode, dopts.format) {
		res, err = withProgressUI("build "+m.Config.Package.Name, resourceNames(m),
			func(sink buildpipeline.ProgressSink) (buildpipeline.BuildResult, error) {
				r := *req
				r.Progress = sink
				return buildpipeline.Build(cmd.Context(), &r)
			})
	} else {
		res, err = buildpipeline.Build(cmd.Context(), req)
	}

	if res.Bag != nil {
		if perr := printDiagnostics(cmd, res.Bag, res.FileSet, dopts); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	return reportBuild(cmd, &res, dopts)
}

func reportBuild(cmd *cobra.Command, res *buildpipeline.BuildResult, dopts diagOptions) error {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if dopts.format == "json" {
		return nil
	}
	out := cmd.ErrOrStderr()
	if !quiet {
		switch {
		case res.Cached:
			fmt.Fprintf(out, "up to date (%s)\n", res.Fingerprint.String()[:12])
		case res.Bag.HasErrors():
			fmt.Fprintf(out, "build finished with %s, nothing written\n", summary(res.Bag))
		case res.OutputPath != "":
			fmt.Fprintf(out, "wrote %s (%s)\n", res.OutputPath, summary(res.Bag))
		default:
			fmt.Fprintf(out, "built, no metadata output configured (%s)\n", summary(res.Bag))
		}
	}
	if showTimings {
		printStageTimings(out, res.Timings, res.Timer)
	}
	return nil
}
