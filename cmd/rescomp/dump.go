package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rescomp/internal/diag"
	"rescomp/internal/metacache"
	"rescomp/internal/precompile"
	"rescomp/internal/script"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Inspect metadata files and resources",
}

var dumpMetaCmd = &cobra.Command{
	Use:   "meta <file>",
	Short: "Print the classes, functions and globals of a metadata file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpMeta,
}

var dumpResourceCmd = &cobra.Command{
	Use:   "resource <name>",
	Short: "Decode a declared resource and print its canonical form",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpResource,
}

func init() {
	dumpCmd.AddCommand(dumpMetaCmd, dumpResourceCmd)
	dumpMetaCmd.Flags().String("format", "yaml", "output format (yaml|json)")
}

type metaView struct {
	Package     string            `yaml:"package" json:"package"`
	Fingerprint string            `yaml:"fingerprint" json:"fingerprint"`
	Created     time.Time         `yaml:"created" json:"created"`
	Resources   []string          `yaml:"resources" json:"resources"`
	Assembly    string            `yaml:"assembly,omitempty" json:"assembly,omitempty"`
	Modules     []string          `yaml:"modules,omitempty" json:"modules,omitempty"`
	Classes     []script.TypeDesc `yaml:"classes,omitempty" json:"classes,omitempty"`
	Funcs       []script.FuncDesc `yaml:"funcs,omitempty" json:"funcs,omitempty"`
	Globals     map[string]string `yaml:"globals,omitempty" json:"globals,omitempty"`
}

func newMetaView(p *metacache.Payload) metaView {
	v := metaView{
		Package:     p.Package,
		Fingerprint: p.Fingerprint.String(),
		Created:     p.Created.UTC(),
		Resources:   p.Resources,
	}
	if p.Assembly != nil {
		v.Assembly = p.Assembly.Name
		v.Modules = p.Assembly.Modules
	}
	if md := p.Metadata; md != nil {
		v.Classes = md.Classes
		v.Funcs = md.Funcs
		if len(md.Globals) > 0 {
			v.Globals = make(map[string]string, len(md.Globals))
			for _, g := range md.Globals {
				v.Globals[g.Name] = g.Type
			}
		}
	}
	return v
}

func runDumpMeta(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	p, err := metacache.ReadFile(args[0])
	if err != nil {
		return err
	}
	view := newMetaView(p)
	out := cmd.OutOrStdout()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func runDumpResource(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	for _, spec := range m.Specs() {
		if spec.Name != args[0] {
			continue
		}
		r, ok := precompile.NewManager().ForKind(spec.Kind)
		if !ok {
			return fmt.Errorf("no resolver for resource kind %s", spec.Kind)
		}
		data, err := os.ReadFile(m.Resolve(spec.Path))
		if err != nil {
			return err
		}
		res, diags := r.Resolve(spec.Name, data)
		if len(diags) > 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), diag.FormatShortDiagnostics(diags, nil, false))
		}
		out, err := r.Serialize(res)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	return fmt.Errorf("resource %q is not declared in %s", args[0], m.Path)
}
