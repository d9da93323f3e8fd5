// Package process runs external commands under a hard wall-clock deadline.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// ExitTimeout is the exit code reported for a child killed at its deadline.
// It is the same status coreutils timeout(1) uses.
const ExitTimeout = 124

const (
	defaultTimeout   = 5 * time.Second
	defaultWaitDelay = time.Second
	defaultCapture   = 1 << 20
)

// Result is the outcome of one process run.
type Result struct {
	// Stdout and Stderr are the captured output streams.
	Stdout, Stderr string
	// ExitCode is the exit status of the child. It is ExitTimeout if the
	// child was killed at its deadline and -1 if it died to any other signal.
	ExitCode int
	// TimedOut indicates that the child was killed at its deadline.
	TimedOut bool
}

// Runner runs commands. The zero value is ready to use with default limits.
type Runner struct {
	// Timeout is the wall-clock limit for each run.
	// If not positive, five seconds is used.
	Timeout time.Duration
	// WaitDelay is how long Run waits for the child's output pipes to close
	// after the child is killed or exits. Descendants of the child may hold
	// them open. If not positive, one second is used.
	WaitDelay time.Duration
	// Capture is the maximum number of bytes kept from each output stream.
	// If not positive, 1 MiB is used.
	Capture int
}

// Run runs args[0] with the remaining arguments. If stdin is not nil, it is
// copied to the child's standard input, which is closed afterward.
//
// A child that runs past the runner's timeout is killed along with its entire
// process group. That is not an error; the result reports TimedOut and an exit
// code of ExitTimeout. Run returns an error only if the child cannot be started
// or ctx is canceled.
func (r *Runner) Run(ctx context.Context, args []string, stdin io.Reader) (*Result, error) {
	if len(args) == 0 {
		return nil, errors.New("process: empty command")
	}
	tctx, cancel := context.WithTimeout(ctx, pos(r.Timeout, defaultTimeout))
	defer cancel()
	stdout := capped{limit: pos(r.Capture, defaultCapture)}
	stderr := capped{limit: pos(r.Capture, defaultCapture)}
	cmd := exec.CommandContext(tctx, args[0], args[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pos(r.WaitDelay, defaultWaitDelay)
	isolate(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("couldn't start %s: %w", args[0], err)
	}
	err := cmd.Wait()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("run of %s abandoned: %w", args[0], ctx.Err())
	}
	res := Result{
		Stdout:   stdout.b.String(),
		Stderr:   stderr.b.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = ExitTimeout
	}
	return &res, nil
}

// capped is a buffer that silently drops writes past its limit.
type capped struct {
	b     bytes.Buffer
	limit int
}

func (c *capped) Write(p []byte) (int, error) {
	if room := c.limit - c.b.Len(); room > 0 {
		c.b.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func pos[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
