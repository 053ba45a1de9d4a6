package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"rescomp/internal/metacache"
	"rescomp/internal/version"
)

type versionPayload struct {
	Tool           string `json:"tool"`
	Version        string `json:"version"`
	MetadataSchema uint16 `json:"metadata_schema"`
	GitCommit      string `json:"git_commit,omitempty"`
	GitMessage     string `json:"git_message,omitempty"`
	BuildDate      string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show rescomp build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(versionPayload{
				Tool:           "rescomp",
				Version:        version.Version,
				MetadataSchema: metacache.SchemaVersion,
				GitCommit:      version.GitCommit,
				GitMessage:     version.GitMessage,
				BuildDate:      version.BuildDate,
			})
		case "pretty":
			color, err := useColor(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), version.Describe(color, metacache.SchemaVersion))
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
