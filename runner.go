package html2pdf

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/alnah/go-html2pdf/internal/process"
)

// defaultWaitDelay bounds how long output is drained after a command exits.
// A launched application may inherit the pipes and keep them open.
const defaultWaitDelay = 5 * time.Second

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec.
// Each command runs in its own process group, killed as a whole when ctx ends.
type ExecRunner struct {
	// WaitDelay overrides defaultWaitDelay.
	WaitDelay time.Duration
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- commands come from configuration
	process.Isolate(cmd)

	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
