package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config is the marshaled structure of jerrybot's configuration.
type Config struct {
	// IRC is the configuration for the chat connection.
	IRC IRC `toml:"irc" envPrefix:"JERRYBOT_IRC_"`
	// JerryScript is the configuration for running the interpreter.
	JerryScript JerryScript `toml:"jerryscript" envPrefix:"JERRYBOT_JERRYSCRIPT_"`
	// Bot is the configuration for command handling.
	Bot BotCfg `toml:"bot" envPrefix:"JERRYBOT_BOT_"`
	// HTTP is the configuration for the metrics and status server.
	HTTP HTTP `toml:"http" envPrefix:"JERRYBOT_HTTP_"`
}

// IRC is the configuration for connecting to an IRC server.
type IRC struct {
	Server string `toml:"server" env:"SERVER"`
	Port   int    `toml:"port" env:"PORT"`
	Nick   string `toml:"nick" env:"NICK"`
	// Channel is the channel to join. A leading # is added if it is missing.
	Channel string `toml:"channel" env:"CHANNEL"`
	// TLS selects a TLS connection instead of plain TCP.
	TLS bool `toml:"tls" env:"TLS"`
	// Rate is the limit on outgoing lines.
	Rate Rate `toml:"rate" envPrefix:"RATE_"`
}

// JerryScript is the configuration of the interpreter.
type JerryScript struct {
	// Repo is the path to a JerryScript source tree with a built interpreter
	// at build/bin/jerry.
	Repo string `toml:"repo" env:"REPO"`
	// Timeout is the time limit for each interpreter run in seconds.
	Timeout int `toml:"timeout" env:"TIMEOUT"`
	// MaxLen is the maximum length of interpreter output in characters.
	MaxLen int `toml:"maxlen" env:"MAXLEN"`
}

// BotCfg is the configuration of command handling.
type BotCfg struct {
	// Workers is the number of channels whose commands may run at once.
	Workers int `toml:"workers" env:"WORKERS"`
}

// HTTP is the configuration of the HTTP API.
type HTTP struct {
	// Listen is the address to serve on. The server is disabled if empty.
	Listen string `toml:"listen" env:"LISTEN"`
}

// Rate is a rate limit configuration.
type Rate struct {
	// Every is the number of seconds between events.
	Every float64 `toml:"every" env:"EVERY"`
	// Num is the burst size.
	Num int `toml:"num" env:"NUM"`
}

// Defaults returns the configuration used for anything not otherwise set.
func Defaults() Config {
	return Config{
		IRC: IRC{
			Server:  "chat.freenode.net",
			Port:    6667,
			Nick:    "jerrybot",
			Channel: "jerryscript",
			Rate:    Rate{Every: 0.5, Num: 4},
		},
		JerryScript: JerryScript{
			Timeout: 5,
			MaxLen:  1024,
		},
		Bot: BotCfg{Workers: 1},
	}
}

// Load loads jerrybot's configuration. Values from the TOML document in r
// replace defaults, and JERRYBOT_* variables in environ replace those. $VARS
// in string values of the document are expanded from environ. r may be nil to
// use only defaults and the environment.
func Load(r io.Reader, environ map[string]string) (*Config, error) {
	cfg := Defaults()
	if r != nil {
		if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("couldn't decode config: %w", err)
		}
	}
	expandcfg(&cfg, func(s string) string { return environ[s] })
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("couldn't read environment: %w", err)
	}
	return &cfg, nil
}

// Validate reports whether the configuration can run a bot.
func (cfg *Config) Validate() error {
	var err error
	if cfg.IRC.Server == "" {
		err = errors.Join(err, errors.New("irc.server is empty"))
	}
	if cfg.IRC.Port <= 0 || cfg.IRC.Port > 65535 {
		err = errors.Join(err, fmt.Errorf("irc.port %d out of range", cfg.IRC.Port))
	}
	if cfg.IRC.Nick == "" {
		err = errors.Join(err, errors.New("irc.nick is empty"))
	}
	if cfg.IRC.Channel == "" || cfg.IRC.Channel == "#" {
		err = errors.Join(err, errors.New("irc.channel is empty"))
	}
	if len(cfg.ChannelName()) > 200 {
		err = errors.Join(err, errors.New("irc.channel is longer than 200 bytes"))
	}
	if cfg.IRC.Rate.Every < 0 || cfg.IRC.Rate.Num < 1 {
		err = errors.Join(err, errors.New("irc.rate must have non-negative every and positive num"))
	}
	if cfg.JerryScript.Timeout <= 0 {
		err = errors.Join(err, errors.New("jerryscript.timeout must be positive"))
	}
	if cfg.JerryScript.MaxLen <= 0 {
		err = errors.Join(err, errors.New("jerryscript.maxlen must be positive"))
	}
	if cfg.Bot.Workers <= 0 {
		err = errors.Join(err, errors.New("bot.workers must be positive"))
	}
	return err
}

// ChannelName returns the configured channel with a leading # added if it
// does not already start with a channel prefix.
func (cfg *Config) ChannelName() string {
	if cfg.IRC.Channel == "" || strings.ContainsRune("#&!+", rune(cfg.IRC.Channel[0])) {
		return cfg.IRC.Channel
	}
	return "#" + cfg.IRC.Channel
}

// Addr returns the server address in host:port form.
func (cfg *Config) Addr() string {
	return net.JoinHostPort(cfg.IRC.Server, strconv.Itoa(cfg.IRC.Port))
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.IRC.Server,
		&cfg.IRC.Nick,
		&cfg.IRC.Channel,
		&cfg.JerryScript.Repo,
		&cfg.HTTP.Listen,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
}
