package btrfs

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// defaultWaitDelay bounds how long Run waits for output pipes after the process
// has been killed. Children that inherited the pipes would otherwise hold Wait open.
const defaultWaitDelay = time.Second

// Runner executes a command and returns its captured output.
type Runner interface {
	Run(ctx context.Context, args []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec. The process is killed when ctx is done.
type ExecRunner struct {
	WaitDelay time.Duration
}

// Run executes args[0] with the remaining arguments.
func (r ExecRunner) Run(ctx context.Context, args []string) ([]byte, []byte, error) {
	if len(args) == 0 {
		return nil, nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
