package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rescomp/internal/buildpipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags]",
	Short: "Run every pass and report diagnostics without writing anything",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	addCompileFlags(checkCmd)
	addDiagFlags(checkCmd)
	checkCmd.Flags().Bool("allow-errors", false, "exit with status 0 even when errors are reported")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	req, err := compileRequest(cmd, m)
	if err != nil {
		return err
	}
	if req.AllowDiagnosticsError, err = cmd.Flags().GetBool("allow-errors"); err != nil {
		return err
	}
	dopts, err := readDiagOptions(cmd, m.Config.Build.MaxDiagnostics)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	var res buildpipeline.CompileResult
	if shouldUseTUI(mode, dopts.format) {
		res, err = withProgressUI("check "+m.Config.Package.Name, resourceNames(m),
			func(sink buildpipeline.ProgressSink) (buildpipeline.CompileResult, error) {
				r := *req
				r.Progress = sink
				return buildpipeline.Compile(cmd.Context(), &r)
			})
	} else {
		res, err = buildpipeline.Compile(cmd.Context(), req)
	}
	if res.Bag != nil {
		if perr := printDiagnostics(cmd, res.Bag, res.FileSet, dopts); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if dopts.format != "json" && !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "checked %d resource(s): %s\n", len(res.Resources), summary(res.Bag))
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings, res.Timer)
	}
	return nil
}
