package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/szeged/jerrybot/irc"
	"github.com/szeged/jerrybot/metrics"
)

// contextDialer is typically either *net.Dialer or *tls.Dialer.
type contextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

type connectConfig struct {
	dialer  contextDialer
	addr    string // format accepted by DialContext
	nick    string // also used for user and realname
	timeout time.Duration
	limit   *rate.Limiter // applies to PRIVMSG only
	metrics *metrics.Metrics
	log     *slog.Logger
	// connected is set while a connection is established.
	connected *atomic.Bool
}

// connect connects to an IRC server and relays messages until the context
// closes or a QUIT is sent. Once it returns, recv is closed.
//
// When an established connection drops, connect reconnects immediately.
// A failure to dial, on the first connection or a later one, is returned.
// If the context closes, connect sends a QUIT to the server and returns nil.
func connect(ctx context.Context, config connectConfig, send <-chan irc.Message, recv chan<- irc.Message) error {
	defer close(recv)
	for n := 0; ; n++ {
		config.log.InfoContext(ctx, "connecting", slog.String("addr", config.addr))
		conn, err := config.dialer.DialContext(ctx, "tcp", config.addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("couldn't connect to %s: %w", config.addr, err)
		}
		if n > 0 {
			config.metrics.Reconnects.Observe(1)
		}
		config.log.InfoContext(ctx, "connected", slog.Any("remote", conn.RemoteAddr()))
		config.connected.Store(true)
		quit := session(ctx, config, conn, send, recv)
		config.connected.Store(false)
		if quit {
			config.log.InfoContext(ctx, "disconnected")
			return nil
		}
		config.log.WarnContext(ctx, "connection lost, reconnecting", slog.String("addr", config.addr))
	}
}

// session runs a single connection. It reports whether the bot quit, as
// opposed to losing the connection.
func session(ctx context.Context, config connectConfig, conn net.Conn, send <-chan irc.Message, recv chan<- irc.Message) bool {
	defer conn.Close()
	reg := fmt.Sprintf("NICK %[1]s\r\nUSER %[1]s 0 * :%[1]s", config.nick)
	if err := writeLine(conn, config.timeout, reg); err != nil {
		config.log.ErrorContext(ctx, "couldn't register", slog.Any("err", err))
		return ctx.Err() != nil
	}
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var quit atomic.Bool
	sent := make(chan struct{})
	recvd := make(chan struct{})
	go func() {
		defer close(sent)
		connSender(ctx, sctx, config, conn, send, &quit)
	}()
	go func() {
		defer close(recvd)
		connRecver(sctx, config, conn, recv)
	}()
	select {
	case <-sent:
		// Unblock the reader.
		conn.Close()
		<-recvd
	case <-recvd:
		// Let the sender finish a QUIT if the context is closing.
		cancel()
		<-sent
	}
	return quit.Load() || ctx.Err() != nil
}

func writeLine(conn net.Conn, timeout time.Duration, line string) error {
	conn.SetWriteDeadline(time.Now().Add(timeout))
	_, err := io.WriteString(conn, line+"\r\n")
	return err
}

// connSender writes messages from send to the connection. It returns when
// sctx closes or on a write error. When the bot's context closes or send is
// closed, it sends QUIT first and marks quit.
func connSender(ctx, sctx context.Context, config connectConfig, conn net.Conn, send <-chan irc.Message, quit *atomic.Bool) {
	log := config.log.With(slog.String("side", "send"))
	bye := func() {
		quit.Store(true)
		if err := writeLine(conn, config.timeout, "QUIT :goodbye"); err != nil {
			log.WarnContext(sctx, "couldn't send QUIT", slog.Any("err", err))
		}
	}
	for {
		select {
		case <-sctx.Done():
			if ctx.Err() != nil {
				bye()
			}
			return
		case msg, ok := <-send:
			if !ok {
				bye()
				return
			}
			switch msg.Command {
			case "":
				// ignore zero values
				continue
			case "QUIT":
				quit.Store(true)
				writeLine(conn, config.timeout, msg.String()) // error doesn't matter
				return
			case "PRIVMSG":
				if err := config.limit.Wait(sctx); err != nil {
					log.WarnContext(sctx, "dropped line while rate limited", slog.String("to", msg.To()))
					if ctx.Err() != nil {
						bye()
					}
					return
				}
				config.metrics.SentLines.Observe(1)
			}
			log.DebugContext(sctx, "send", slog.String("line", msg.String()))
			if err := writeLine(conn, config.timeout, msg.String()); err != nil {
				log.ErrorContext(sctx, "error while writing", slog.Any("err", err))
				return
			}
		}
	}
}

// connRecver reads messages from the connection and forwards them to recv.
// PING is answered directly. It returns when ctx closes or on a read error.
func connRecver(ctx context.Context, config connectConfig, conn net.Conn, recv chan<- irc.Message) {
	log := config.log.With(slog.String("side", "recv"))
	r := bufio.NewReaderSize(conn, 8192+512+2)
	for {
		conn.SetReadDeadline(time.Now().Add(config.timeout))
		msg, err := irc.Parse(r)
		if err != nil {
			if _, ok := err.(irc.Malformed); ok {
				log.WarnContext(ctx, "malformed message", slog.Any("err", err))
				continue
			}
			if ctx.Err() == nil {
				log.ErrorContext(ctx, "error while reading", slog.Any("err", err))
			}
			return
		}
		switch msg.Command {
		case "PING":
			pong := irc.Message{Command: "PONG", Params: msg.Params, Trailing: msg.Trailing}
			if err := writeLine(conn, config.timeout, pong.String()); err != nil {
				log.ErrorContext(ctx, "error while sending PONG", slog.Any("err", err))
				return
			}
		default:
			log.DebugContext(ctx, "recv", slog.String("line", msg.String()))
			select {
			case <-ctx.Done():
				return
			case recv <- msg:
				// do nothing
			}
		}
	}
}
