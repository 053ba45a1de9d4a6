package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rescomp/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new rescomp project",
	Long: `Initialize a new project by creating rescomp.toml together with a shared
script, a style and an instance. If [path|name] is omitted, initializes the
current directory. A non-existing name creates the directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "rescomp-project"
	}

	files := project.Scaffold(name)
	paths := make([]string, 0, len(files))
	for rel := range files {
		full := filepath.Join(target, filepath.FromSlash(rel))
		if _, err := os.Stat(full); err == nil {
			return fmt.Errorf("project already initialized: %s exists", full)
		}
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		full := filepath.Join(target, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(files[rel]), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", full, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", full)
	}
	return nil
}
