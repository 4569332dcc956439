// Package events defines the command-executed event and the publishers that
// announce successful write and delete commands.
package events

// CommandExecutedEvent is emitted after a write or delete command succeeds.
type CommandExecutedEvent struct {
	ID         string   `json:"id"`
	Command    string   `json:"command"`
	Tier       string   `json:"tier"`
	Service    string   `json:"service"`
	Fields     []string `json:"fields,omitempty"`
	ItemID     *int     `json:"itemId,omitempty"`
	Title      string   `json:"title,omitempty"`
	DurationMs int64    `json:"durationMs"`
	Timestamp  string   `json:"timestamp"`
}
