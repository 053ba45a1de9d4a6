package project

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"rescomp/internal/resource"
)

var (
	// ErrPackageSectionMissing indicates that [package] is missing in a manifest.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrPackageNameMissing indicates that [package].name is missing or blank.
	ErrPackageNameMissing = errors.New("missing [package].name")
)

// Manifest is a loaded rescomp.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
	// Digest is the hash of the manifest bytes.
	Digest Digest
}

// Config mirrors the TOML layout.
type Config struct {
	Package   PackageConfig    `toml:"package"`
	Build     BuildConfig      `toml:"build"`
	Resources []ResourceConfig `toml:"resource"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type BuildConfig struct {
	Strict         bool     `toml:"strict"`
	Jobs           int      `toml:"jobs"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
	MetadataOut    string   `toml:"metadata_out"`
	Imports        []string `toml:"imports"`
}

type ResourceConfig struct {
	Name     string `toml:"name"`
	Kind     string `toml:"kind"`
	Path     string `toml:"path"`
	Language string `toml:"language"`
}

// Load finds rescomp.toml from startDir upwards and loads it.
func Load(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadFile(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadFile loads and validates the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageNameMissing)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if cfg.Build.Jobs < 0 {
		return nil, fmt.Errorf("%s: [build].jobs must not be negative", path)
	}
	seen := make(map[string]int, len(cfg.Resources))
	for i, r := range cfg.Resources {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("%s: resource #%d has no name", path, i+1)
		}
		if strings.TrimSpace(r.Path) == "" {
			return nil, fmt.Errorf("%s: resource %q has no path", path, r.Name)
		}
		if _, err := resource.ParseKind(r.Kind); err != nil {
			return nil, fmt.Errorf("%s: resource %q: %w", path, r.Name, err)
		}
		if prev, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%s: resource %q is declared twice (#%d and #%d)", path, r.Name, prev+1, i+1)
		}
		seen[r.Name] = i
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
		Digest: sha256.Sum256(data),
	}, nil
}

// Specs returns the declared resources in manifest order. Paths stay relative to Root.
func (m *Manifest) Specs() []resource.Spec {
	out := make([]resource.Spec, 0, len(m.Config.Resources))
	for _, r := range m.Config.Resources {
		kind, _ := resource.ParseKind(r.Kind) //nolint:errcheck // validated by LoadFile
		out = append(out, resource.Spec{
			Name:     r.Name,
			Kind:     kind,
			Path:     filepath.FromSlash(r.Path),
			Language: r.Language,
		})
	}
	return out
}

// Resolve turns a manifest-relative path into an absolute one.
func (m *Manifest) Resolve(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// Scaffold returns the files `rescomp init` writes, keyed by slash-separated
// path relative to the project root.
func Scaffold(name string) map[string]string {
	manifest := fmt.Sprintf(`[package]
name = %q

[build]
strict = true
jobs = 1
max_diagnostics = 100
metadata_out = "out/%s.meta"

[[resource]]
name = "Scripts/Shared"
kind = "Script"
path = "scripts/shared.wfs"

[[resource]]
name = "Styles/Default"
kind = "InstanceStyle"
path = "styles/default.yaml"

[[resource]]
name = "Instances/MainWindow"
kind = "Instance"
path = "instances/main_window.yaml"
`, name, name)

	return map[string]string{
		ManifestName: manifest,
		"scripts/shared.wfs": `module Shared;

var clicks: int = 0;

func Greeting(name: string): string {
  return "Hello, " + name;
}
`,
		"styles/default.yaml": `name: Default
properties:
  - name: Background
    value: white
  - name: Resizable
    value: true
`,
		"instances/main_window.yaml": `class: MainWindow
base: gui:Window
styles: [Default]
properties:
  - name: Title
    value: Main window
  - name: Width
    value: 640
events:
  - name: Clicked
    handler: OnClicked
script: |
  prop Counter: int;

  func OnClicked(sender: object): void {
    this.Counter = this.Counter + 1;
    clicks = clicks + 1;
  }
`,
	}
}
