package convert

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"
)

// killGrace bounds how long Wait lingers on inherited pipes after a kill
const killGrace = 2 * time.Second

// Executor abstracts command execution for testing
type Executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, env []string) (stdout, stderr []byte, err error)
}

// osExecutor is the production executor backed by os/exec
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes name and collects its output. The process is killed when ctx ends.
func (osExecutor) Run(ctx context.Context, name string, args []string, env []string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGrace

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

var defaultExec Executor = osExecutor{}
