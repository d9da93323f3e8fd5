// Package dispatch turns channel messages into command invocations.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/szeged/jerrybot/command"
	"github.com/szeged/jerrybot/metrics"
)

// Message is a message received in a channel.
type Message struct {
	// Sender is the full sender identity, usually nick!user@host.
	Sender string
	// Channel is the message target. It is the bot's own nick for private
	// messages.
	Channel string
	// Text is the message text.
	Text string
}

// Dispatcher routes messages addressed to the bot to commands.
// A Dispatcher is safe for concurrent use once configured.
type Dispatcher struct {
	// Nick is the bot's nick.
	Nick string
	// Commands is the command table.
	Commands *command.Registry
	// Unknown handles names that aren't in Commands.
	// If nil, command.Unknown(Nick) is used.
	Unknown command.Command
	// Metrics counts commands. It may be nil.
	Metrics *metrics.Metrics
	// Log is the logger for dispatched commands.
	// If nil, slog.Default is used.
	Log *slog.Logger
}

// Dispatch runs the command, if any, that msg invokes. ok is false if msg
// should get no reply.
//
// Commands run synchronously. A command that panics is logged and produces
// no reply.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (reply string, ok bool) {
	if msg.Channel == d.Nick {
		// Private messages are never answered.
		return "", false
	}
	line, ok := Addressed(d.Nick, msg.Text)
	if !ok || line == "" {
		return "", false
	}
	call := command.Invocation{Channel: msg.Channel, User: Nick(msg.Sender)}
	call.Name, call.Args = Split(line)
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(
		slog.String("channel", call.Channel),
		slog.String("user", call.User),
		slog.String("command", call.Name),
		slog.Any("trace", uuid.New()),
	)
	log.InfoContext(ctx, "message", slog.String("text", line))
	var cmd command.Command
	label := call.Name
	if e, found := d.Commands.Lookup(call.Name); found {
		cmd = e.Command
	} else {
		cmd = d.Unknown
		if cmd == nil {
			cmd = command.Unknown(d.Nick)
		}
		label = "unknown"
	}
	if d.Metrics != nil {
		d.Metrics.CommandCount.Observe(1, label)
	}
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "command panicked", slog.Any("panic", r))
			reply, ok = "", false
		}
	}()
	reply = cmd.Execute(ctx, &call)
	log.DebugContext(ctx, "reply", slog.Int("len", len(reply)))
	return reply, true
}

// Addressed reports whether text is addressed to nick and returns the command
// line within it. Text is addressed to nick if it starts with nick
// immediately followed by a colon, comma, or space.
func Addressed(nick, text string) (line string, ok bool) {
	if nick == "" || len(text) <= len(nick) || !strings.HasPrefix(text, nick) {
		return "", false
	}
	switch text[len(nick)] {
	case ':', ',', ' ':
		return strings.TrimSpace(text[len(nick)+1:]), true
	default:
		return "", false
	}
}

// Split separates a command line into the command name and its arguments.
// The name ends at the first space character.
func Split(line string) (name, args string) {
	k := strings.IndexFunc(line, unicode.IsSpace)
	if k < 0 {
		return line, ""
	}
	return line[:k], strings.TrimSpace(line[k:])
}

// Nick extracts the nick from a sender identity.
func Nick(sender string) string {
	nick, _, _ := strings.Cut(sender, "!")
	return nick
}
