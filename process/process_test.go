//go:build unix

package process_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/szeged/jerrybot/process"
)

func TestRun(t *testing.T) {
	cases := []struct {
		name  string
		args  []string
		stdin string
		want  process.Result
	}{
		{
			name: "stdout",
			args: []string{"sh", "-c", `printf 'v1.0\n'`},
			want: process.Result{Stdout: "v1.0\n"},
		},
		{
			name: "stderr",
			args: []string{"sh", "-c", `printf SyntaxError >&2; exit 1`},
			want: process.Result{Stderr: "SyntaxError", ExitCode: 1},
		},
		{
			name: "both",
			args: []string{"sh", "-c", `printf madoka; printf homura >&2`},
			want: process.Result{Stdout: "madoka", Stderr: "homura"},
		},
		{
			name:  "stdin",
			args:  []string{"cat"},
			stdin: "1+1\n",
			want:  process.Result{Stdout: "1+1\n"},
		},
		{
			name: "no-stdin",
			args: []string{"cat"},
			want: process.Result{},
		},
		{
			name: "exit",
			args: []string{"sh", "-c", "exit 3"},
			want: process.Result{ExitCode: 3},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			var r process.Runner
			var stdin io.Reader
			if c.stdin != "" {
				stdin = strings.NewReader(c.stdin)
			}
			got, err := r.Run(context.Background(), c.args, stdin)
			if err != nil {
				t.Fatalf("couldn't run %q: %v", c.args, err)
			}
			if diff := cmp.Diff(&c.want, got); diff != "" {
				t.Errorf("wrong result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunTimeout(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"sleep", []string{"sleep", "10"}},
		{"ignore-term", []string{"sh", "-c", `trap '' TERM INT; sleep 10`}},
		{"grandchild", []string{"sh", "-c", `sleep 10 & sleep 10; wait`}},
		{"busy", []string{"sh", "-c", `while :; do :; done`}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := process.Runner{Timeout: 100 * time.Millisecond, WaitDelay: 100 * time.Millisecond}
			start := time.Now()
			got, err := r.Run(context.Background(), c.args, nil)
			if err != nil {
				t.Fatalf("couldn't run %q: %v", c.args, err)
			}
			if d := time.Since(start); d > 3*time.Second {
				t.Errorf("run took too long: %v", d)
			}
			if !got.TimedOut {
				t.Errorf("not reported as timed out: %+v", got)
			}
			if got.ExitCode != process.ExitTimeout {
				t.Errorf("wrong exit code: want %d, got %d", process.ExitTimeout, got.ExitCode)
			}
		})
	}
}

func TestRunCapture(t *testing.T) {
	r := process.Runner{Capture: 16}
	got, err := r.Run(context.Background(), []string{"sh", "-c", `i=0; while [ $i -lt 100 ]; do printf 0123456789; i=$((i+1)); done`}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Stdout != "0123456789012345" {
		t.Errorf("wrong capture: %q", got.Stdout)
	}
	if got.ExitCode != 0 {
		t.Errorf("wrong exit code: %d", got.ExitCode)
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		var r process.Runner
		got, err := r.Run(context.Background(), []string{"/nonexistent/jerry", "--version"}, nil)
		if err == nil {
			t.Errorf("no error running missing binary; got %+v", got)
		}
	})
	t.Run("empty", func(t *testing.T) {
		var r process.Runner
		if _, err := r.Run(context.Background(), nil, nil); err == nil {
			t.Error("no error running empty command")
		}
	})
	t.Run("canceled", func(t *testing.T) {
		var r process.Runner
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		if _, err := r.Run(ctx, []string{"sleep", "10"}, nil); err == nil {
			t.Error("no error after cancel")
		}
	})
}
