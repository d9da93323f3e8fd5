// Package jerry adapts the JerryScript command-line interpreter for chat use.
//
// Every result of an [Interpreter] is a string suitable for sending to a
// channel. Failures of any kind are described in the string rather than
// returned as errors, and interpreter output is truncated to a configured
// length because it is controlled by whoever sent the command.
package jerry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/szeged/jerrybot/metrics"
	"github.com/szeged/jerrybot/process"
)

const (
	// NoRepo is the reply when no JerryScript repository is configured.
	NoRepo = "cannot find jerryscript repository"
	// NoBinary is the reply when the repository has no built interpreter.
	NoBinary = "cannot find jerry interpreter"
)

// Runner runs a process. [*process.Runner] implements it.
type Runner interface {
	Run(ctx context.Context, args []string, stdin io.Reader) (*process.Result, error)
}

// Interpreter runs the jerry binary from a JerryScript repository checkout.
type Interpreter struct {
	// Repo is the root of the JerryScript repository. The interpreter is
	// expected at build/bin/jerry below it.
	Repo string
	// MaxLen is the maximum length of output in characters.
	MaxLen int
	// Runner runs the interpreter.
	Runner Runner
	// Metrics receives run latencies and failures. It may be nil.
	Metrics *metrics.Metrics
	// Log is the logger for runs. If nil, slog.Default is used.
	Log *slog.Logger
}

// Binary returns the path at which the interpreter binary is expected.
func (j *Interpreter) Binary() string {
	return filepath.Join(j.Repo, "build", "bin", "jerry")
}

// Version reports the interpreter's version string.
func (j *Interpreter) Version(ctx context.Context) string {
	return j.run(ctx, "version", nil, "--version")
}

// Eval evaluates a JavaScript expression. The expression is given to the
// interpreter on standard input followed by a newline.
func (j *Interpreter) Eval(ctx context.Context, expr string) string {
	return j.run(ctx, "eval", strings.NewReader(expr+"\n"), "--no-prompt")
}

func (j *Interpreter) run(ctx context.Context, mode string, stdin io.Reader, flags ...string) string {
	log := j.Log
	if log == nil {
		log = slog.Default()
	}
	if j.Repo == "" {
		j.failed(mode, "repo")
		return NoRepo
	}
	bin := j.Binary()
	if i, err := os.Stat(bin); err != nil || !i.Mode().IsRegular() {
		log.WarnContext(ctx, "no interpreter", slog.String("path", bin), slog.Any("err", err))
		j.failed(mode, "binary")
		return NoBinary
	}
	args := append([]string{bin}, flags...)
	log.InfoContext(ctx, "executing", slog.Any("args", args), slog.String("mode", mode))
	start := time.Now()
	res, err := j.Runner.Run(ctx, args, stdin)
	if j.Metrics != nil {
		j.Metrics.RunLatency.Observe(time.Since(start).Seconds(), mode)
	}
	if err != nil {
		log.ErrorContext(ctx, "interpreter run failed", slog.Any("err", err))
		j.failed(mode, "start")
		return fmt.Sprintf("something went wrong (%d): %s", -1, Truncate(err.Error(), j.MaxLen))
	}
	switch {
	case res.TimedOut:
		log.InfoContext(ctx, "interpreter timed out", slog.String("mode", mode))
		j.failed(mode, "timeout")
	case res.ExitCode != 0 || res.Stderr != "":
		log.InfoContext(ctx, "interpreter failed", slog.Int("code", res.ExitCode), slog.Int("stderr", len(res.Stderr)))
		j.failed(mode, "exit")
	default:
		return Truncate(res.Stdout, j.MaxLen)
	}
	return fmt.Sprintf("something went wrong (%d): %s", res.ExitCode, Truncate(res.Stderr, j.MaxLen))
}

func (j *Interpreter) failed(mode, kind string) {
	if j.Metrics != nil {
		j.Metrics.RunFailures.Observe(1, mode, kind)
	}
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	i := 0
	for k := range s {
		if i == n {
			return s[:k]
		}
		i++
	}
	return s
}
