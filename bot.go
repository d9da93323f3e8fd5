package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/szeged/jerrybot/command"
	"github.com/szeged/jerrybot/dispatch"
	"github.com/szeged/jerrybot/irc"
	"github.com/szeged/jerrybot/jerry"
	"github.com/szeged/jerrybot/metrics"
	"github.com/szeged/jerrybot/process"
	"github.com/szeged/jerrybot/queue"
)

// Bot relays commands addressed to it in an IRC channel to the JerryScript
// interpreter.
type Bot struct {
	cfg      *Config
	channel  string
	commands *command.Registry
	// dispatcher runs commands from chat.
	dispatcher *dispatch.Dispatcher
	// lanes orders command handling per channel.
	lanes   *queue.Lanes
	metrics *metrics.Metrics
	log     *slog.Logger

	// dialer connects to the IRC server.
	dialer contextDialer
	// timeout is the read and write deadline on the IRC connection.
	timeout time.Duration

	start     time.Time
	connected atomic.Bool
	joined    atomic.Bool
}

// New creates a bot from its configuration. The configuration must be valid.
func New(cfg *Config, log *slog.Logger) *Bot {
	m := metrics.New()
	j := &jerry.Interpreter{
		Repo:    cfg.JerryScript.Repo,
		MaxLen:  cfg.JerryScript.MaxLen,
		Runner:  &process.Runner{Timeout: time.Duration(cfg.JerryScript.Timeout) * time.Second},
		Metrics: m,
		Log:     log,
	}
	reg := new(command.Registry)
	command.Builtins(reg, j, cfg.JerryScript.Timeout, cfg.JerryScript.MaxLen)
	var dialer contextDialer = &net.Dialer{Timeout: 30 * time.Second}
	if cfg.IRC.TLS {
		dialer = &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: 30 * time.Second},
			Config:    &tls.Config{ServerName: cfg.IRC.Server},
		}
	}
	return &Bot{
		cfg:      cfg,
		channel:  cfg.ChannelName(),
		commands: reg,
		dispatcher: &dispatch.Dispatcher{
			Nick:     cfg.IRC.Nick,
			Commands: reg,
			Unknown:  command.Unknown(cfg.IRC.Nick),
			Metrics:  m,
			Log:      log,
		},
		lanes:   queue.New(cfg.Bot.Workers),
		metrics: m,
		log:     log,
		dialer:  dialer,
		timeout: 5 * time.Minute,
		start:   time.Now(),
	}
}

// Run connects to IRC and handles commands until ctx closes, the connection
// cannot be established, or the HTTP API fails.
func (b *Bot) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	send := make(chan irc.Message, 64)
	recv := make(chan irc.Message, 64)
	cc := connectConfig{
		dialer:    b.dialer,
		addr:      b.cfg.Addr(),
		nick:      b.cfg.IRC.Nick,
		timeout:   b.timeout,
		limit:     rate.NewLimiter(rate.Every(fseconds(b.cfg.IRC.Rate.Every)), b.cfg.IRC.Rate.Num),
		metrics:   b.metrics,
		log:       b.log.With(slog.String("irc", b.cfg.Addr())),
		connected: &b.connected,
	}
	group.Go(func() error {
		return connect(ctx, cc, send, recv)
	})
	group.Go(func() error {
		return b.loop(ctx, send, recv)
	})
	if b.cfg.HTTP.Listen != "" {
		group.Go(func() error {
			return b.api(ctx, b.cfg.HTTP.Listen, http.NewServeMux(), b.metrics.Collectors())
		})
	}
	err := group.Wait()
	b.lanes.Wait()
	return err
}

var errNickInUse = errors.New("nick is already in use")

// loop handles messages from the server until recv closes.
//
// A nick collision before the first successful registration is fatal. Once
// the bot has signed on, a collision while registering again after a
// reconnect is usually the server still holding the old session, so the bot
// tries an altered nick instead. Commands are still addressed to the
// configured nick.
func (b *Bot) loop(ctx context.Context, send chan<- irc.Message, recv <-chan irc.Message) error {
	registered := false
	nick := b.cfg.IRC.Nick
	for msg := range recv {
		switch msg.Command {
		case "001": // RPL_WELCOME
			registered = true
			if msg.To() != "" {
				nick = msg.To()
			}
			b.joined.Store(false)
			b.log.InfoContext(ctx, "signed on", slog.String("nick", nick))
			join := irc.Message{Command: "JOIN", Params: []string{b.channel}}
			if !b.enqueue(ctx, send, join) {
				return nil
			}
		case "433": // ERR_NICKNAMEINUSE
			if !registered {
				b.log.ErrorContext(ctx, "nick in use", slog.String("nick", b.cfg.IRC.Nick))
				return errNickInUse
			}
			taken := b.cfg.IRC.Nick
			if len(msg.Params) > 1 {
				taken = msg.Params[1]
			}
			alt := taken + "_"
			b.log.WarnContext(ctx, "nick in use, trying another", slog.String("nick", taken), slog.String("alt", alt))
			if !b.enqueue(ctx, send, irc.Message{Command: "NICK", Params: []string{alt}}) {
				return nil
			}
		case "JOIN":
			if msg.Nick == nick {
				b.joined.Store(true)
				ch := msg.To()
				if ch == "" {
					ch = msg.Trailing
				}
				b.log.InfoContext(ctx, "joined", slog.String("channel", ch))
			}
		case "PRIVMSG":
			if msg.To() == nick {
				// Private messages to an altered nick get no reply either.
				b.metrics.MsgsCount.Observe(1)
				continue
			}
			b.privmsg(ctx, send, msg)
		case "ERROR":
			b.log.WarnContext(ctx, "server error", slog.String("reason", msg.Trailing))
		}
	}
	return nil
}

// enqueue sends msg to the connection. It reports false if ctx closed first.
func (b *Bot) enqueue(ctx context.Context, send chan<- irc.Message, msg irc.Message) bool {
	select {
	case <-ctx.Done():
		return false
	case send <- msg:
		return true
	}
}

// privmsg queues a chat message for command handling in its channel's lane.
func (b *Bot) privmsg(ctx context.Context, send chan<- irc.Message, msg irc.Message) {
	b.metrics.MsgsCount.Observe(1)
	m := dispatch.Message{
		Sender:  msg.Sender.String(),
		Channel: msg.To(),
		Text:    msg.Text(),
	}
	b.lanes.Enqueue(ctx, m.Channel, func(ctx context.Context) {
		reply, ok := b.dispatcher.Dispatch(ctx, m)
		if !ok {
			return
		}
		for _, line := range irc.Privmsgs(m.Channel, reply) {
			select {
			case <-ctx.Done():
				return
			case send <- line:
				// do nothing
			}
		}
	})
}
