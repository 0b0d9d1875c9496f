package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest represents the optional per-project lyra.yaml configuration.
type Manifest struct {
	// Backend selects the execution backend: "walk" (tree-walking
	// interpreter) or "compile" (CFG compiler). Defaults to "compile".
	Backend string `yaml:"backend,omitempty"`

	// Capabilities restricts the builtin table visible to loaded
	// modules. An empty list means unrestricted. Recognized values:
	// "io", "terminal", "storage".
	Capabilities []string `yaml:"capabilities,omitempty"`

	// Sandbox maps import path prefixes to capability lists, letting a
	// project grant different modules different builtin surfaces.
	Sandbox map[string][]string `yaml:"sandbox,omitempty"`
}

// LoadManifest reads lyra.yaml from dir. A missing manifest is not an
// error; it yields the defaults.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Backend: "compile"}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ManifestFileName, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestFileName, err)
	}
	if m.Backend == "" {
		m.Backend = "compile"
	}
	for _, cap := range m.Capabilities {
		switch cap {
		case CapabilityIO, CapabilityTerminal, CapabilityStorage:
		default:
			return nil, fmt.Errorf("parsing %s: unknown capability %q", ManifestFileName, cap)
		}
	}
	return &m, nil
}
