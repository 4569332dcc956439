// Package semver parses Plex server versions and catalog versions and
// evaluates version constraints against them.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:parser"

// ServerVersion is a parsed Plex Media Server version.
type ServerVersion struct {
	// Raw as reported by /identity (e.g., "1.40.2.8395-c67dce28e")
	Raw string
	// Build is the fourth numeric component Plex adds after major.minor.patch.
	Build int
	// Commit is the trailing build hash, if present.
	Commit string
	// Version is the semver view of major.minor.patch.
	Version *masterminds.Version
}

var (
	plexVersionRegex  = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:\.(\d+))?(?:-([0-9A-Za-z.]+))?$`)
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// ParseServerVersion parses a Plex version string.
//
// Supported formats:
//   - 1.40.2.8395-c67dce28e   (Plex build with commit)
//   - 1.40.2.8395             (Plex build)
//   - 1.40.2                  (plain semver)
func ParseServerVersion(input string) (*ServerVersion, error) {
	raw := strings.TrimSpace(input)
	m := plexVersionRegex.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("%s - invalid Plex version: %q", logPrefix, raw)
	}

	v, err := masterminds.NewVersion(m[1] + "." + m[2] + "." + m[3])
	if err != nil {
		return nil, fmt.Errorf("%s - invalid Plex version: %w", logPrefix, err)
	}

	sv := &ServerVersion{Raw: raw, Commit: m[5], Version: v}
	if m[4] != "" {
		fmt.Sscanf(m[4], "%d", &sv.Build)
	}
	return sv, nil
}

// String returns major.minor.patch.
func (v *ServerVersion) String() string {
	return v.Version.String()
}

// ParseVersion parses a strict semver string such as a catalog version.
func ParseVersion(input string) (*masterminds.Version, error) {
	raw := strings.TrimSpace(input)
	if !IsExactVersion(raw) {
		return nil, fmt.Errorf("%s - invalid version: %q", logPrefix, raw)
	}
	v, err := masterminds.StrictNewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version: %w", logPrefix, err)
	}
	return v, nil
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "3.2.1").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}
