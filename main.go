package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/szeged/jerrybot/dispatch"
)

var app = cli.Command{
	Name:  "jerrybot",
	Usage: "IRC bot that evaluates JavaScript with JerryScript",

	Flags: []cli.Flag{
		&flagServer,
		&flagPort,
		&flagNick,
		&flagChannel,
		&flagRepo,
		&flagConfig,
		&flagEnvFile,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:      "dispatch",
			Aliases:   []string{"try"},
			Usage:     "Run one command line without connecting and print the reply",
			ArgsUsage: "<command> [args...]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "from",
					Usage: "Sender of the command as nick!user@host",
					Value: "user!user@localhost",
				},
			},
			Action: cliDispatch,
		},
	},
	Action: cliRun,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	log := loggerFromFlags(cmd)
	slog.SetDefault(log)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JerryScript.Repo == "" {
		log.WarnContext(ctx, "no jerryscript repository configured; interpreter commands will fail")
	}
	return New(cfg, log).Run(ctx)
}

func cliDispatch(ctx context.Context, cmd *cli.Command) error {
	log := loggerFromFlags(cmd)
	slog.SetDefault(log)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	line := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(line) == "" {
		return errors.New("no command given")
	}
	b := New(cfg, log)
	msg := dispatch.Message{
		Sender:  cmd.String("from"),
		Channel: b.channel,
		Text:    cfg.IRC.Nick + ": " + line,
	}
	reply, ok := b.dispatcher.Dispatch(ctx, msg)
	if !ok {
		return nil
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, reply)
	return err
}

// loadConfig builds the configuration from defaults, the config file, the
// environment, and flags, in increasing order of precedence.
func loadConfig(cmd *cli.Command) (*Config, error) {
	if f := cmd.String("env-file"); f != "" {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("couldn't load env file: %w", err)
		}
	}
	var r io.Reader
	if f := cmd.String("config"); f != "" {
		file, err := os.Open(f)
		if err != nil {
			return nil, fmt.Errorf("couldn't open config file: %w", err)
		}
		defer file.Close()
		r = file
	}
	cfg, err := Load(r, env.ToMap(os.Environ()))
	if err != nil {
		return nil, fmt.Errorf("couldn't load config: %w", err)
	}
	if cmd.IsSet("server") {
		cfg.IRC.Server = cmd.String("server")
	}
	if cmd.IsSet("port") {
		cfg.IRC.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("nick") {
		cfg.IRC.Nick = cmd.String("nick")
	}
	if cmd.IsSet("channel") {
		cfg.IRC.Channel = cmd.String("channel")
	}
	if cmd.IsSet("repo") {
		cfg.JerryScript.Repo = cmd.String("repo")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var (
	flagServer = cli.StringFlag{
		Name:       "server",
		Aliases:    []string{"s"},
		Usage:      "IRC server name (default: chat.freenode.net)",
		Persistent: true,
	}

	flagPort = cli.IntFlag{
		Name:       "port",
		Aliases:    []string{"p"},
		Usage:      "IRC server port (default: 6667)",
		Persistent: true,
	}

	flagNick = cli.StringFlag{
		Name:       "nick",
		Aliases:    []string{"n"},
		Usage:      "IRC nick (default: jerrybot)",
		Persistent: true,
	}

	flagChannel = cli.StringFlag{
		Name:       "channel",
		Aliases:    []string{"c"},
		Usage:      "IRC channel (default: jerryscript)",
		Persistent: true,
	}

	flagRepo = cli.StringFlag{
		Name:       "repo",
		Aliases:    []string{"r"},
		Usage:      "Path to local JerryScript git repository",
		Persistent: true,
	}

	flagConfig = cli.StringFlag{
		Name:       "config",
		Aliases:    []string{"C"},
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagEnvFile = cli.StringFlag{
		Name:       "env-file",
		Usage:      "File of KEY=value lines to add to the environment",
		Persistent: true,
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}
