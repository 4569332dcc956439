package semver

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const resolverLogPrefix = "semver:resolver"

// ParseConstraint parses a minimum-version or range expression.
//
// A bare version ("1.32.0") or major ("1") is treated as a lower bound, so
// PLEX_MIN_VERSION=1.32.0 means ">= 1.32.0". Anything else is handed to the
// constraint parser (e.g., "^1.40", ">=1.30 <2").
func ParseConstraint(rangeStr string) (*masterminds.Constraints, error) {
	r := strings.TrimSpace(rangeStr)
	if r == "" {
		return nil, fmt.Errorf("%s - empty version constraint", resolverLogPrefix)
	}
	if IsMajorOnly(r) || IsExactVersion(r) {
		r = ">= " + r
	}
	c, err := masterminds.NewConstraint(r)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version constraint %q: %w", resolverLogPrefix, rangeStr, err)
	}
	return c, nil
}

// CheckServerVersion reports whether a Plex version satisfies rangeStr. An
// empty rangeStr accepts everything.
func CheckServerVersion(version, rangeStr string) error {
	if strings.TrimSpace(rangeStr) == "" {
		return nil
	}
	c, err := ParseConstraint(rangeStr)
	if err != nil {
		return err
	}
	sv, err := ParseServerVersion(version)
	if err != nil {
		return err
	}
	if ok, errs := c.Validate(sv.Version); !ok {
		reason := "does not satisfy " + rangeStr
		if len(errs) > 0 {
			reason = errs[0].Error()
		}
		return fmt.Errorf("%s - Plex Media Server %s is not supported: %s", resolverLogPrefix, sv.Raw, reason)
	}
	return nil
}

// Compare returns -1, 0 or 1 comparing two strict versions.
func Compare(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// IsBreakingChange reports whether moving from prev to next crosses a major
// version boundary.
func IsBreakingChange(prev, next string) (bool, error) {
	vp, err := ParseVersion(prev)
	if err != nil {
		return false, err
	}
	vn, err := ParseVersion(next)
	if err != nil {
		return false, err
	}
	return vn.Major() != vp.Major(), nil
}
