// Package main implements the rescomp CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rescomp/internal/buildpipeline"
	"rescomp/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rescomp",
	Short: "GUI resource precompiler",
	Long: `rescomp compiles the script, instance and style resources of a project
into an assembly of instance classes, in a fixed sequence of passes.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  startTracing,
	PersistentPostRunE: stopTracing,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.Version = version.Version
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	// трассировку закрываем и при ошибке команды
	finishTracing(rootCmd, err != nil)
	if err == nil {
		return 0
	}
	// диагностики уже напечатаны
	if !errors.Is(err, buildpipeline.ErrDiagnostics) {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "error: %v\n", err)
	}
	return 1
}

func init() {
	rootCmd.AddCommand(buildCmd, checkCmd, resourcesCmd, dumpCmd, initCmd, cleanCmd, versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics to show (0 = manifest value)")
	pf.StringP("project", "C", ".", "directory to search rescomp.toml from")

	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")

	pf.String("cpuprofile", "", "write a CPU profile to file")
	pf.String("memprofile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
