package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/morezero/plex-mcp-server/pkg/registry"
)

const logPrefix = "manifest:loader"

// DefaultName is the manifest name used for the built-in catalog.
const DefaultName = "plex-mcp-server"

// FromRegistry snapshots a catalog in registration order.
func FromRegistry(reg *registry.Registry, version string) *Manifest {
	return &Manifest{
		Name:        DefaultName,
		Version:     version,
		Description: "Permission-gated Plex Media Server commands",
		Commands:    reg.ListCommands(),
	}
}

// Parse decodes a manifest. Comments and trailing commas are accepted so
// published manifests can be annotated by hand.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("%s - invalid manifest: %w", logPrefix, err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("%s - manifest has no version", logPrefix)
	}
	return &m, nil
}

// LoadFile reads and parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - read %s: %w", logPrefix, path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Loaded manifest %s %s from %s (%d commands)", logPrefix, m.Name, m.Version, path, len(m.Commands)))
	return m, nil
}

// JSON renders the manifest as indented JSON.
func (m *Manifest) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%s - encode json: %w", logPrefix, err)
	}
	return append(out, '\n'), nil
}

// YAML renders the manifest as YAML.
func (m *Manifest) YAML() ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%s - encode yaml: %w", logPrefix, err)
	}
	return out, nil
}
