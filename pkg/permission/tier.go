// Package permission implements the three-level permission gate (read < write < delete).
package permission

import (
	"fmt"
	"strings"
)

const logPrefix = "permission:tier"

// Tier is an ordinal privilege level. A granted tier permits every command
// whose required tier is less than or equal to it.
type Tier int

const (
	Read Tier = iota + 1
	Write
	Delete
)

// Tiers lists every valid tier in ascending order.
var Tiers = []Tier{Read, Write, Delete}

// String returns the lowercase tier name used in configuration and messages.
func (t Tier) String() string {
	switch t {
	case Read:
		return "read"
	case Write:
		return "write"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t >= Read && t <= Delete
}

// Allows reports whether a process granted t may run a command requiring required.
func (t Tier) Allows(required Tier) bool {
	return t.Valid() && required.Valid() && t >= required
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%s - invalid tier %d", logPrefix, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parse converts "read", "write" or "delete" (any case, surrounding space ignored) into a Tier.
func Parse(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	names := make([]string, len(Tiers))
	for i, t := range Tiers {
		if name == t.String() {
			return t, nil
		}
		names[i] = t.String()
	}
	return 0, fmt.Errorf("%s - invalid permission tier %q (use %s)", logPrefix, s, strings.Join(names, ", "))
}
