// Package registry holds the immutable command catalog: each command is bound
// to a required permission tier, an ordered parameter list and an invoke strategy.
package registry

import (
	"context"
	"errors"

	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
)

// ParamType is the declared type of a command parameter.
type ParamType string

const (
	TypeString      ParamType = "string"
	TypeInteger     ParamType = "integer"
	TypeNumber      ParamType = "number"
	TypeBoolean     ParamType = "boolean"
	TypeStringList  ParamType = "string_list"
	TypeIntegerList ParamType = "integer_list"
)

// Valid reports whether t is a known parameter type.
func (t ParamType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeStringList, TypeIntegerList:
		return true
	}
	return false
}

// Param describes one entry of a command's ordered parameter list.
type Param struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Optional    bool      `json:"optional" yaml:"optional"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// InvokeFunc is a command's upstream-call strategy. It receives a borrowed
// session and arguments already validated against the command's Params.
type InvokeFunc func(ctx context.Context, session *plex.Client, args Args) (any, error)

// Command is a registered operation.
type Command struct {
	Name        string
	Tier        permission.Tier
	Description string
	Params      []Param
	// Returns lists the Success payload fields the command guarantees.
	Returns []string
	Invoke  InvokeFunc
}

// CommandInfo is the introspection view of a Command returned by ListCommands.
type CommandInfo struct {
	Name        string          `json:"name" yaml:"name"`
	Tier        permission.Tier `json:"tier" yaml:"tier"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Params      []Param         `json:"params" yaml:"params"`
	Returns     []string        `json:"returns,omitempty" yaml:"returns,omitempty"`
}

// Error codes.
const (
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodeDuplicateCommand = "DUPLICATE_COMMAND"
	CodeInvalidCommand   = "INVALID_COMMAND"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
)

// CommandError is a structured error from the registry.
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Param names the offending parameter for INVALID_ARGUMENT errors.
	Param string `json:"param,omitempty"`
}

func (e *CommandError) Error() string {
	return e.Code + ": " + e.Message
}

// NewCommandError creates a new CommandError.
func NewCommandError(code, message string) *CommandError {
	return &CommandError{Code: code, Message: message}
}

// InvalidArgument is a shorthand for strategies rejecting argument combinations
// that the parameter list alone cannot express.
func InvalidArgument(message string) *CommandError {
	return &CommandError{Code: CodeInvalidArgument, Message: message}
}

// IsCode reports whether err is a CommandError with the given code.
func IsCode(err error, code string) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == code
}
