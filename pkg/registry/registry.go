package registry

import (
	"fmt"
	"log/slog"
	"regexp"
)

const logPrefix = "registry:registry"

var commandNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry is the frozen command catalog. It has no mutators, so it is safe
// for concurrent reads without locking.
type Registry struct {
	commands map[string]*Command
	order    []string
}

// Builder collects commands at startup and freezes them into a Registry.
type Builder struct {
	commands map[string]*Command
	order    []string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{commands: make(map[string]*Command)}
}

// Register adds a command. It fails with DUPLICATE_COMMAND when the name is
// already registered and with INVALID_COMMAND when the entry is malformed.
func (b *Builder) Register(cmd Command) error {
	if err := validateCommand(&cmd); err != nil {
		return err
	}
	if _, exists := b.commands[cmd.Name]; exists {
		return NewCommandError(CodeDuplicateCommand, fmt.Sprintf("Command already registered: %s", cmd.Name))
	}

	params := make([]Param, len(cmd.Params))
	copy(params, cmd.Params)
	cmd.Params = params
	returns := make([]string, len(cmd.Returns))
	copy(returns, cmd.Returns)
	cmd.Returns = returns

	b.commands[cmd.Name] = &cmd
	b.order = append(b.order, cmd.Name)
	return nil
}

// Build returns the immutable Registry. The Builder may keep registering
// afterwards without affecting registries already built.
func (b *Builder) Build() *Registry {
	commands := make(map[string]*Command, len(b.commands))
	for name, cmd := range b.commands {
		commands[name] = cmd
	}
	order := make([]string, len(b.order))
	copy(order, b.order)

	slog.Debug(fmt.Sprintf("%s - Built registry with %d commands", logPrefix, len(order)))
	return &Registry{commands: commands, order: order}
}

// New registers all commands and builds a Registry in one step.
func New(cmds ...Command) (*Registry, error) {
	b := NewBuilder()
	for _, cmd := range cmds {
		if err := b.Register(cmd); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Lookup returns the command registered under name or an UNKNOWN_COMMAND error.
func (r *Registry) Lookup(name string) (*Command, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, NewCommandError(CodeUnknownCommand, fmt.Sprintf("Unknown command: %s", name))
	}
	return cmd, nil
}

// ListCommands returns every command in registration order.
func (r *Registry) ListCommands() []CommandInfo {
	out := make([]CommandInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name].Info())
	}
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.order)
}

// Info returns the introspection view of c.
func (c *Command) Info() CommandInfo {
	params := make([]Param, len(c.Params))
	copy(params, c.Params)
	var returns []string
	if len(c.Returns) > 0 {
		returns = make([]string, len(c.Returns))
		copy(returns, c.Returns)
	}
	return CommandInfo{
		Name:        c.Name,
		Tier:        c.Tier,
		Description: c.Description,
		Params:      params,
		Returns:     returns,
	}
}

func validateCommand(cmd *Command) error {
	if !commandNameRegex.MatchString(cmd.Name) {
		return NewCommandError(CodeInvalidCommand, fmt.Sprintf("Invalid command name %q", cmd.Name))
	}
	if !cmd.Tier.Valid() {
		return NewCommandError(CodeInvalidCommand, fmt.Sprintf("Command %s has no valid permission tier", cmd.Name))
	}
	if cmd.Invoke == nil {
		return NewCommandError(CodeInvalidCommand, fmt.Sprintf("Command %s has no invoke strategy", cmd.Name))
	}
	seen := make(map[string]bool, len(cmd.Params))
	for _, p := range cmd.Params {
		if p.Name == "" {
			return NewCommandError(CodeInvalidCommand, fmt.Sprintf("Command %s has an unnamed parameter", cmd.Name))
		}
		if seen[p.Name] {
			return NewCommandError(CodeInvalidCommand, fmt.Sprintf("Command %s declares parameter %s twice", cmd.Name, p.Name))
		}
		seen[p.Name] = true
		if !p.Type.Valid() {
			return NewCommandError(CodeInvalidCommand, fmt.Sprintf("Command %s parameter %s has unknown type %q", cmd.Name, p.Name, p.Type))
		}
		if !p.Optional && p.Default != nil {
			return NewCommandError(CodeInvalidCommand, fmt.Sprintf("Command %s parameter %s is required but has a default", cmd.Name, p.Name))
		}
	}
	return nil
}
