package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rescomp/internal/diag"
	"rescomp/internal/diagfmt"
	"rescomp/internal/source"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI never picks the TUI for machine-readable output.
func shouldUseTUI(mode uiMode, format string) bool {
	if format == "json" {
		return false
	}
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

func useColor(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(os.Stdout), nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
}

type diagOptions struct {
	format    string
	pathMode  diagfmt.PathMode
	withNotes bool
	max       int
}

func addDiagFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	cmd.Flags().String("paths", "relative", "path display (auto|absolute|relative|basename)")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
}

func readDiagOptions(cmd *cobra.Command, manifestMax int) (diagOptions, error) {
	var opts diagOptions
	var err error
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return opts, err
	}
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return opts, fmt.Errorf("unknown format: %s", opts.format)
	}
	paths, err := cmd.Flags().GetString("paths")
	if err != nil {
		return opts, err
	}
	mode, ok := diagfmt.ParsePathMode(paths)
	if !ok {
		return opts, fmt.Errorf("unknown --paths value: %s", paths)
	}
	opts.pathMode = mode
	if opts.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return opts, err
	}
	if opts.max, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if opts.max == 0 {
		opts.max = manifestMax
	}
	return opts, nil
}

// printDiagnostics renders bag to stdout in the requested format.
func printDiagnostics(cmd *cobra.Command, bag *diag.Bag, fs *source.FileSet, opts diagOptions) error {
	if bag == nil || fs == nil {
		return nil
	}
	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		return diagfmt.JSON(out, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			Max:              opts.max,
			IncludeNotes:     opts.withNotes,
		})
	case "short":
		items := bag.Items()
		if opts.max > 0 && len(items) > opts.max {
			items = items[:opts.max]
		}
		if text := diag.FormatShortDiagnostics(items, fs, opts.withNotes); text != "" {
			fmt.Fprintln(out, text)
		}
		return nil
	default:
		if bag.Len() == 0 {
			return nil
		}
		color, err := useColor(cmd)
		if err != nil {
			return err
		}
		diagfmt.Pretty(out, bag, fs, diagfmt.PrettyOpts{
			Color:     color,
			Context:   1,
			PathMode:  opts.pathMode,
			ShowNotes: opts.withNotes,
			Max:       opts.max,
		})
		return nil
	}
}

func summary(bag *diag.Bag) string {
	errs := bag.Count(diag.SevError)
	return fmt.Sprintf("%d error(s), %d warning(s)", errs, bag.Count(diag.SevWarning)-errs)
}
