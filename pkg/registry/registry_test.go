package registry

import (
	"context"
	"testing"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
)

const registryTestPrefix = "registry:registry_test"

func noop(context.Context, *plex.Client, Args) (any, error) { return nil, nil }

func testCommand(name string, tier permission.Tier, params ...Param) Command {
	return Command{Name: name, Tier: tier, Params: params, Invoke: noop}
}

func TestBuilder_RegisterAndLookup(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(testCommand("playlist_list", permission.Read)); err != nil {
		t.Fatalf("%s - register failed: %v", registryTestPrefix, err)
	}
	if err := b.Register(testCommand("delete_playlist", permission.Delete, Param{Name: "playlist_id", Type: TypeInteger})); err != nil {
		t.Fatalf("%s - register failed: %v", registryTestPrefix, err)
	}
	reg := b.Build()

	cmd, err := reg.Lookup("delete_playlist")
	if err != nil {
		t.Fatalf("%s - lookup failed: %v", registryTestPrefix, err)
	}
	if cmd.Tier != permission.Delete {
		t.Errorf("%s - tier = %v, want delete", registryTestPrefix, cmd.Tier)
	}
	if reg.Len() != 2 {
		t.Errorf("%s - Len = %d, want 2", registryTestPrefix, reg.Len())
	}
}

func TestBuilder_DuplicateCommand(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(testCommand("media_search", permission.Read)); err != nil {
		t.Fatalf("%s - first register failed: %v", registryTestPrefix, err)
	}
	err := b.Register(testCommand("media_search", permission.Write))
	if !IsCode(err, CodeDuplicateCommand) {
		t.Fatalf("%s - expected DUPLICATE_COMMAND, got %v", registryTestPrefix, err)
	}

	cmd, _ := b.Build().Lookup("media_search")
	if cmd.Tier != permission.Read {
		t.Errorf("%s - duplicate registration replaced the original tier: %v", registryTestPrefix, cmd.Tier)
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg, err := New(testCommand("library_list", permission.Read))
	if err != nil {
		t.Fatalf("%s - New failed: %v", registryTestPrefix, err)
	}

	_, err = reg.Lookup("library_drop")
	if !IsCode(err, CodeUnknownCommand) {
		t.Fatalf("%s - expected UNKNOWN_COMMAND, got %v", registryTestPrefix, err)
	}
	cmdErr := err.(*CommandError)
	if cmdErr.Message != "Unknown command: library_drop" {
		t.Errorf("%s - message = %q", registryTestPrefix, cmdErr.Message)
	}
	if IsCode(err, CodeInvalidArgument) {
		t.Errorf("%s - unknown command must not look like an argument error", registryTestPrefix)
	}
}

func TestBuilder_InvalidCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{name: "empty name", cmd: testCommand("", permission.Read)},
		{name: "uppercase name", cmd: testCommand("MediaSearch", permission.Read)},
		{name: "zero tier", cmd: testCommand("media_search", permission.Tier(0))},
		{name: "nil invoke", cmd: Command{Name: "media_search", Tier: permission.Read}},
		{name: "duplicate param", cmd: testCommand("media_search", permission.Read,
			Param{Name: "query", Type: TypeString}, Param{Name: "query", Type: TypeString})},
		{name: "unknown param type", cmd: testCommand("media_search", permission.Read,
			Param{Name: "query", Type: "blob"})},
		{name: "required with default", cmd: testCommand("media_search", permission.Read,
			Param{Name: "limit", Type: TypeInteger, Default: 10})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBuilder().Register(tt.cmd)
			if !IsCode(err, CodeInvalidCommand) {
				t.Errorf("%s - expected INVALID_COMMAND, got %v", registryTestPrefix, err)
			}
		})
	}
}

func TestRegistry_ListCommandsOrderAndIsolation(t *testing.T) {
	b := NewBuilder()
	names := []string{"playlist_list", "media_search", "library_list", "playlist_delete"}
	for _, n := range names {
		if err := b.Register(testCommand(n, permission.Read, Param{Name: "q", Type: TypeString, Optional: true})); err != nil {
			t.Fatalf("%s - register %s failed: %v", registryTestPrefix, n, err)
		}
	}
	reg := b.Build()

	// Registering after Build must not leak into the built registry.
	if err := b.Register(testCommand("late_command", permission.Read)); err != nil {
		t.Fatalf("%s - late register failed: %v", registryTestPrefix, err)
	}

	list := reg.ListCommands()
	if len(list) != len(names) {
		t.Fatalf("%s - ListCommands returned %d, want %d", registryTestPrefix, len(list), len(names))
	}
	for i, info := range list {
		if info.Name != names[i] {
			t.Errorf("%s - position %d = %s, want %s", registryTestPrefix, i, info.Name, names[i])
		}
	}

	list[0].Params[0].Name = "mutated"
	cmd, _ := reg.Lookup("playlist_list")
	if cmd.Params[0].Name != "q" {
		t.Errorf("%s - ListCommands exposed internal params", registryTestPrefix)
	}
}

func TestCommandError_Format(t *testing.T) {
	err := NewCommandError(CodeUnknownCommand, "Unknown command: x")
	if err.Error() != "UNKNOWN_COMMAND: Unknown command: x" {
		t.Errorf("%s - Error() = %q", registryTestPrefix, err.Error())
	}
	if IsCode(nil, CodeUnknownCommand) {
		t.Errorf("%s - nil error should not match a code", registryTestPrefix)
	}
}
