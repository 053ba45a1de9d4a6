package main

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"rescomp/internal/precompile"
	"rescomp/internal/resource"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the declared resources and the passes they take part in",
	Args:  cobra.NoArgs,
	RunE:  runResources,
}

func runResources(cmd *cobra.Command, _ []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	manager := precompile.NewManager()
	rows := [][]string{{"NAME", "KIND", "PATH", "PASSES"}}
	for _, spec := range m.Specs() {
		passes := "-"
		if r, ok := manager.ForKind(spec.Kind); ok {
			passes = passList(r)
		}
		kind := spec.Kind.String()
		if spec.Kind == resource.KindScript && spec.Language != "" {
			kind += "(" + spec.Language + ")"
		}
		rows = append(rows, []string{spec.Name, kind, spec.Path, passes})
	}
	writeTable(cmd.OutOrStdout(), rows)
	return nil
}

func passList(r precompile.Resolver) string {
	out := ""
	for pass := 0; pass <= precompile.MaxPass; pass++ {
		switch r.Support(pass) {
		case precompile.PerResource:
			out += fmt.Sprintf("%d ", pass)
		case precompile.PerPass:
			out += fmt.Sprintf("%d* ", pass)
		}
	}
	if out == "" {
		return "-"
	}
	return out[:len(out)-1]
}

// writeTable pads columns by display width.
func writeTable(w io.Writer, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				fmt.Fprintln(w, cell)
				break
			}
			fmt.Fprint(w, runewidth.FillRight(cell, widths[i]+2))
		}
	}
}
