package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rescomp/internal/metacache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the metadata output and the build cache",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("cache-only", false, "keep the metadata output")
}

func runClean(cmd *cobra.Command, _ []string) error {
	cacheOnly, err := cmd.Flags().GetBool("cache-only")
	if err != nil {
		return err
	}
	cache, err := metacache.Open("rescomp")
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to drop build cache: %w", err)
	}
	if cacheOnly {
		return nil
	}

	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	out := m.Resolve(m.Config.Build.MetadataOut)
	if out == "" {
		return nil
	}
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", out)
	return nil
}
