package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectCommands = "plex.commands"
	SubjectEvents   = "plex.events"
)

// BuildCommandEventSubject builds a granular event subject under base, e.g.
// plex.events.delete.playlist_delete. Subscribers can filter by tier with
// plex.events.delete.>.
func BuildCommandEventSubject(base, tier, command string) string {
	return fmt.Sprintf("%s.%s.%s", base, tokenSafe(tier), tokenSafe(command))
}

// tokenSafe replaces characters that would split or wildcard a subject token.
func tokenSafe(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
