package dispatch_test

import (
	"context"
	"strings"
	"testing"

	"github.com/szeged/jerrybot/command"
	"github.com/szeged/jerrybot/dispatch"
	"github.com/szeged/jerrybot/metrics"
)

func TestAddressed(t *testing.T) {
	cases := []struct {
		name string
		nick string
		in   string
		line string
		ok   bool
	}{
		{"colon", "jerrybot", "jerrybot: help", "help", true},
		{"comma", "jerrybot", "jerrybot, help", "help", true},
		{"space", "jerrybot", "jerrybot help", "help", true},
		{"colon-nospace", "jerrybot", "jerrybot:help", "help", true},
		{"extra-space", "jerrybot", "jerrybot:    eval  1 + 1  ", "eval  1 + 1", true},
		{"only-sep", "jerrybot", "jerrybot:", "", true},
		{"joined", "jerrybot", "jerrybothelp", "", false},
		{"exact", "jerrybot", "jerrybot", "", false},
		{"other-punct", "jerrybot", "jerrybot; help", "", false},
		{"case", "jerrybot", "JerryBot: help", "", false},
		{"prespace", "jerrybot", " jerrybot: help", "", false},
		{"middle", "jerrybot", "hey jerrybot: help", "", false},
		{"empty", "jerrybot", "", "", false},
		{"tab", "jerrybot", "jerrybot\thelp", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			line, ok := dispatch.Addressed(c.nick, c.in)
			if line != c.line {
				t.Errorf("wrong command line: want %q, got %q", c.line, line)
			}
			if ok != c.ok {
				t.Errorf("wrong addressedness: want %t, got %t", c.ok, ok)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in   string
		name string
		args string
	}{
		{"help", "help", ""},
		{"ping x", "ping", "x"},
		{"eval  1 +  1 ", "eval", "1 +  1"},
		{"eval\t1", "eval", "1"},
		{"Ping x", "Ping", "x"},
		{"", "", ""},
	}
	for _, c := range cases {
		name, args := dispatch.Split(c.in)
		if name != c.name || args != c.args {
			t.Errorf("Split(%q): want %q %q, got %q %q", c.in, c.name, c.args, name, args)
		}
	}
}

func TestNick(t *testing.T) {
	cases := map[string]string{
		"madoka!homura@example.org": "madoka",
		"madoka":                    "madoka",
		"madoka!":                   "madoka",
		"a!b!c":                     "a",
		"":                          "",
	}
	for in, want := range cases {
		if got := dispatch.Nick(in); got != want {
			t.Errorf("Nick(%q): want %q, got %q", in, want, got)
		}
	}
}

func testDispatcher() *dispatch.Dispatcher {
	var r command.Registry
	r.Register("ping", command.Func(command.Ping), "a gentle pong to a gentle ping", false)
	r.Register("hi", command.Func(command.Greet), "", true)
	r.Register("echo", command.Func(func(ctx context.Context, call *command.Invocation) string {
		return call.Channel + "|" + call.User + "|" + call.Name + "|" + call.Args
	}), "", true)
	r.Register("boom", command.Func(func(ctx context.Context, call *command.Invocation) string {
		panic("boom")
	}), "", true)
	return &dispatch.Dispatcher{Nick: "jerrybot", Commands: &r, Metrics: metrics.New()}
}

func TestDispatch(t *testing.T) {
	const sender = "madoka!homura@example.org"
	cases := []struct {
		name    string
		channel string
		text    string
		reply   string
		ok      bool
	}{
		{"ping-colon", "#jerryscript", "jerrybot: ping x", "madoka: pong x", true},
		{"ping-comma", "#jerryscript", "jerrybot, ping x", "madoka: pong x", true},
		{"ping-space", "#jerryscript", "jerrybot ping x", "madoka: pong x", true},
		{"ping-empty", "#jerryscript", "jerrybot: ping", "madoka: pong ", true},
		{"unaddressed", "#jerryscript", "jerrybotping x", "", false},
		{"chatter", "#jerryscript", "ping x", "", false},
		{"private", "jerrybot", "jerrybot: ping x", "", false},
		{"empty-line", "#jerryscript", "jerrybot:   ", "", false},
		{"unknown", "#jerryscript", "jerrybot: xyz", "madoka: cannot do that (try: jerrybot help)", true},
		{"case-sensitive", "#jerryscript", "jerrybot: PING", "madoka: cannot do that (try: jerrybot help)", true},
		{"fields", "#jerryscript", "jerrybot: echo  a  b ", "#jerryscript|madoka|echo|a  b", true},
		{"panic", "#jerryscript", "jerrybot: boom", "", false},
	}
	d := testDispatcher()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			reply, ok := d.Dispatch(context.Background(), dispatch.Message{Sender: sender, Channel: c.channel, Text: c.text})
			if reply != c.reply {
				t.Errorf("wrong reply: want %q, got %q", c.reply, reply)
			}
			if ok != c.ok {
				t.Errorf("wrong ok: want %t, got %t", c.ok, ok)
			}
		})
	}
}

func TestDispatchHidden(t *testing.T) {
	d := testDispatcher()
	reply, ok := d.Dispatch(context.Background(), dispatch.Message{Sender: "madoka", Channel: "#jerryscript", Text: "jerrybot: hi"})
	if !ok || !strings.HasPrefix(reply, "madoka: ") {
		t.Errorf("hidden command not invoked: %q %t", reply, ok)
	}
}

func TestDispatchCustomUnknown(t *testing.T) {
	d := testDispatcher()
	d.Unknown = command.Func(func(ctx context.Context, call *command.Invocation) string { return "?" + call.Name })
	reply, ok := d.Dispatch(context.Background(), dispatch.Message{Sender: "madoka", Channel: "#jerryscript", Text: "jerrybot: xyz 1"})
	if !ok || reply != "?xyz" {
		t.Errorf("wrong unknown reply: %q %t", reply, ok)
	}
}
