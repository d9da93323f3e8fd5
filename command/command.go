// Package command implements the bot's chat commands.
package command

import "context"

// Invocation is a command invocation. An Invocation must not be modified or
// retained by any command.
type Invocation struct {
	// Channel is the channel where the invocation occurred.
	Channel string
	// User is the bare nick of the user who invoked the command.
	User string
	// Name is the command name as invoked.
	Name string
	// Args is the text following the command name, trimmed. It may be empty.
	Args string
}

// Command executes a command and returns the reply to send to the channel.
type Command interface {
	Execute(ctx context.Context, call *Invocation) string
}

// Func adapts a function to a Command.
type Func func(ctx context.Context, call *Invocation) string

// Execute calls f.
func (f Func) Execute(ctx context.Context, call *Invocation) string {
	return f(ctx, call)
}
