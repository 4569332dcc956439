// Package manifest snapshots the command catalog so clients can pin it, and
// checks a catalog against a previously published snapshot.
package manifest

import (
	"github.com/morezero/plex-mcp-server/pkg/registry"
)

// Manifest is the published view of a catalog.
type Manifest struct {
	Name        string                 `json:"name" yaml:"name"`
	Version     string                 `json:"version" yaml:"version"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Commands    []registry.CommandInfo `json:"commands" yaml:"commands"`
}

// Command returns the named entry, or nil.
func (m *Manifest) Command(name string) *registry.CommandInfo {
	for i := range m.Commands {
		if m.Commands[i].Name == name {
			return &m.Commands[i]
		}
	}
	return nil
}

// Names lists command names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		names[i] = c.Name
	}
	return names
}

// Violation kinds reported by Check.
const (
	CommandRemoved   = "command_removed"
	TierChanged      = "tier_changed"
	ParamRemoved     = "param_removed"
	ParamReordered   = "param_reordered"
	ParamRetyped     = "param_retyped"
	ParamRequired    = "param_now_required"
	ReturnRemoved    = "return_field_removed"
	VersionNotBumped = "version_not_bumped"
)

// Violation is one incompatibility between a published manifest and the
// current catalog.
type Violation struct {
	Kind    string `json:"kind" yaml:"kind"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	Detail  string `json:"detail" yaml:"detail"`
}

// Report is the outcome of Check.
type Report struct {
	Published  string      `json:"published" yaml:"published"`
	Current    string      `json:"current" yaml:"current"`
	MajorBump  bool        `json:"major_bump" yaml:"major_bump"`
	Added      []string    `json:"added,omitempty" yaml:"added,omitempty"`
	Violations []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Compatible reports whether clients of the published manifest keep working.
// Breaking changes are accepted behind a major version bump, but the version
// must never go backwards.
func (r *Report) Compatible() bool {
	for _, v := range r.Violations {
		if v.Kind == VersionNotBumped || !r.MajorBump {
			return false
		}
	}
	return true
}
