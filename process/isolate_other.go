//go:build !unix

package process

import "os/exec"

// isolate is a no-op where process groups are unavailable. The default
// cancellation kills only the direct child; WaitDelay still bounds Run.
func isolate(cmd *exec.Cmd) {}
