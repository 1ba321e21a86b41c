package executor

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/vk/gridci/internal/environment"
)

// CommandRunner executes one literal command step inside an environment
// and returns its captured combined output. The engine never inspects the
// command's meaning; a non-nil error is simply a failed step.
type CommandRunner interface {
	Run(ctx context.Context, env *environment.Environment, command string) (string, error)
}

// LocalRunner runs command steps through the local shell, with the
// environment's workspace as working directory and its variables exported.
type LocalRunner struct {
	// Shell is the interpreter, "sh" by default.
	Shell string
}

// NewLocalRunner returns a LocalRunner using sh.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{Shell: "sh"}
}

// Run executes the command and captures stdout and stderr interleaved.
func (r *LocalRunner) Run(ctx context.Context, env *environment.Environment, command string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Shell, "-c", command)
	cmd.Dir = env.Workspace
	cmd.Env = env.Environ()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}
