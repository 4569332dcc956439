package semver

import (
	"testing"
)

func TestCheckServerVersion(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		constraint string
		wantErr    bool
	}{
		{name: "no constraint", version: "1.10.0.1000", constraint: ""},
		{name: "bare minimum satisfied", version: "1.40.2.8395-c67dce28e", constraint: "1.32.0"},
		{name: "bare minimum equal", version: "1.32.0.1", constraint: "1.32.0"},
		{name: "bare minimum too old", version: "1.20.1.3252", constraint: "1.32.0", wantErr: true},
		{name: "major only", version: "1.40.2", constraint: "1"},
		{name: "caret range", version: "1.40.2", constraint: "^1.30"},
		{name: "upper bound exceeded", version: "2.0.0", constraint: ">=1.30 <2", wantErr: true},
		{name: "bad server version", version: "unknown", constraint: "1.0.0", wantErr: true},
		{name: "bad constraint", version: "1.40.2", constraint: "newest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckServerVersion(tt.version, tt.constraint)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %s against %q", tt.version, tt.constraint)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseConstraint_Empty(t *testing.T) {
	if _, err := ParseConstraint("  "); err == nil {
		t.Error("expected error for empty constraint")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.1.0", "1.0.9", 1},
		{"1.0.0-rc.1", "1.0.0", -1},
		{"2.0.0", "10.0.0", -1},
	}
	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Compare(%s, %s) error: %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
	if _, err := Compare("1.0", "1.0.0"); err == nil {
		t.Error("expected error for non-strict version")
	}
}

func TestIsBreakingChange(t *testing.T) {
	tests := []struct {
		prev, next string
		want       bool
	}{
		{"1.0.0", "1.4.0", false},
		{"1.4.0", "2.0.0", true},
		{"2.0.0", "1.9.0", true},
	}
	for _, tt := range tests {
		got, err := IsBreakingChange(tt.prev, tt.next)
		if err != nil {
			t.Fatalf("IsBreakingChange(%s, %s) error: %v", tt.prev, tt.next, err)
		}
		if got != tt.want {
			t.Errorf("IsBreakingChange(%s, %s) = %v, want %v", tt.prev, tt.next, got, tt.want)
		}
	}
}
