// Package host connects the panel to its surroundings: confirmations,
// named commands, file watching and code diffs.
package host

import (
	"context"
	"errors"

	"github.com/tOgg1/streampanel/internal/events"
)

var (
	// ErrCommandNotFound is returned by RunCommand for unknown commands.
	ErrCommandNotFound = errors.New("command not found")

	// ErrCommandExists is returned when registering a name twice.
	ErrCommandExists = errors.New("command already registered")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("host closed")
)

// ConfirmOptions describes a yes/no question for the user.
type ConfirmOptions struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
}

// CommandHandler runs a registered command.
type CommandHandler func(ctx context.Context, args ...string) error

// Bridge is everything the panel needs from its host.
type Bridge interface {
	// Confirm asks the user a question and blocks until it is answered or
	// ctx is done.
	Confirm(ctx context.Context, opts ConfirmOptions) (bool, error)

	// RegisterCommand makes handler callable as scope.name.
	RegisterCommand(scope, name string, handler CommandHandler) error

	// RunCommand runs a registered command.
	RunCommand(ctx context.Context, scope, name string, args ...string) error

	// Handle processes an outbound panel event.
	Handle(ctx context.Context, event *events.Event)

	// Events delivers inbound events for the panel.
	Events() <-chan events.Event

	// Close releases watchers and closes the event channel.
	Close() error
}

// ConfirmRequest is a pending confirmation. The UI that shows it must call
// Answer exactly once.
type ConfirmRequest struct {
	Options ConfirmOptions
	reply   chan bool
}

// Answer resolves the request.
func (r *ConfirmRequest) Answer(ok bool) {
	select {
	case r.reply <- ok:
	default:
	}
}

func commandKey(scope, name string) string {
	return scope + "." + name
}
