package command

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"gitlab.com/zephyrtronium/pick"
)

// Interpreter evaluates script expressions. Its results are replies, not
// errors; [*jerry.Interpreter] implements it.
type Interpreter interface {
	Version(ctx context.Context) string
	Eval(ctx context.Context, expr string) string
}

// Builtins registers the standard commands into r. timeout and maxlen are
// the interpreter limits, used only in help text.
func Builtins(r *Registry, j Interpreter, timeout, maxlen int) {
	r.Register("help", Help(r), "list available commands", false)
	r.Register("ping", Func(Ping), "a gentle pong to a gentle ping", false)
	r.Register("version", Version(j), "version of JerryScript", false)
	r.Register("eval", Eval(j), fmt.Sprintf("eval JavaScript expression (timeout: %d secs, max output length: %d chars)", timeout, maxlen), false)
	r.Register("hi", Func(Greet), "", true)
	r.Register("hello", Func(Greet), "", true)
}

// Help lists the visible commands of r, one per line.
func Help(r *Registry) Command {
	return Func(func(ctx context.Context, call *Invocation) string {
		var b strings.Builder
		b.WriteString(call.User)
		b.WriteString(": available commands:")
		for _, e := range r.Visible() {
			b.WriteByte('\n')
			b.WriteString(e.Name)
			b.WriteString(": ")
			b.WriteString(e.Help)
		}
		return b.String()
	})
}

// Ping echoes the arguments back after a pong.
func Ping(ctx context.Context, call *Invocation) string {
	return call.User + ": pong " + call.Args
}

// Version reports the interpreter version.
func Version(j Interpreter) Command {
	return Func(func(ctx context.Context, call *Invocation) string {
		return call.User + ": " + j.Version(ctx)
	})
}

// Eval evaluates the arguments as an expression.
func Eval(j Interpreter) Command {
	return Func(func(ctx context.Context, call *Invocation) string {
		return call.User + ": " + j.Eval(ctx, call.Args)
	})
}

var greetings = pick.New([]pick.Case[string]{
	{E: "hi", W: 1},
	{E: "hello", W: 1},
	{E: "hullo", W: 1},
	{E: "nice to meet you", W: 1},
	{E: "how are you?", W: 1},
})

// Greet says hello.
func Greet(ctx context.Context, call *Invocation) string {
	return call.User + ": " + greetings.Pick(rand.Uint32())
}

// Unknown is the command used for names that are not registered.
// nick is the bot's own nick.
func Unknown(nick string) Command {
	return Func(func(ctx context.Context, call *Invocation) string {
		return call.User + ": cannot do that (try: " + nick + " help)"
	})
}
