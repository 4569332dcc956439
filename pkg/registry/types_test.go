package registry

import (
	"fmt"
	"testing"
)

func TestCommandError(t *testing.T) {
	err := NewCommandError(CodeUnknownCommand, "Unknown command: nope")

	if err.Code != CodeUnknownCommand {
		t.Errorf("expected UNKNOWN_COMMAND, got %s", err.Code)
	}
	if err.Message != "Unknown command: nope" {
		t.Errorf("expected 'Unknown command: nope', got %s", err.Message)
	}
	if err.Error() != "UNKNOWN_COMMAND: Unknown command: nope" {
		t.Errorf("expected 'UNKNOWN_COMMAND: Unknown command: nope', got %s", err.Error())
	}
}

func TestIsCode(t *testing.T) {
	wrapped := fmt.Errorf("invoke: %w", InvalidArgument("Either playlist_id or playlist_title must be provided"))

	if !IsCode(wrapped, CodeInvalidArgument) {
		t.Errorf("expected wrapped error to carry INVALID_ARGUMENT")
	}
	if IsCode(wrapped, CodeUnknownCommand) {
		t.Errorf("INVALID_ARGUMENT must not match UNKNOWN_COMMAND")
	}
	if IsCode(fmt.Errorf("plain"), CodeInvalidArgument) {
		t.Errorf("plain errors carry no code")
	}
}
