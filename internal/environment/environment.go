// Package environment manages the ephemeral execution sandboxes that job
// instances run in. Each environment is owned exclusively by one instance
// for its lifetime: created before the first step, torn down after the
// last, success or failure.
package environment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/matrix"
)

// Environment is the sandbox a single job instance executes in: a private
// workspace directory, the merged environment variables, and the toolchain
// state accumulated by setup steps.
type Environment struct {
	// InstanceID is the owning job instance's identity.
	InstanceID string
	// Platform is the instance's target platform label. The local
	// provisioner does not emulate foreign OS images; the label is exported
	// as GRIDCI_OS for the commands themselves to interpret.
	Platform string
	// Workspace is the environment's private working directory.
	Workspace string
	// Env holds the variables visible to every step, declared passthrough
	// included.
	Env map[string]string
	// Tools records what setup actions installed, keyed by action name.
	Tools map[string]string
}

// Environ renders the environment's variables in the KEY=value form the
// process runner wants, layered over the host environment so commands keep
// PATH and friends.
func (e *Environment) Environ() []string {
	merged := os.Environ()
	for k, v := range e.Env {
		merged = append(merged, k+"="+v)
	}
	return merged
}

// ProvisioningError reports a failed setup action, carrying the action's
// identity and the underlying cause.
type ProvisioningError struct {
	Action string
	Err    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning action %q failed: %v", e.Action, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Provisioner establishes and releases execution environments and applies
// setup steps to them.
type Provisioner interface {
	// Provision allocates a fresh environment for the instance. It performs
	// no setup steps; those flow through Apply in declaration order.
	Provision(ctx context.Context, inst *matrix.Instance, passthrough map[string]string) (*Environment, error)
	// Apply performs one setup step inside the environment. Its effect is
	// visible to every subsequent step in the same environment.
	Apply(ctx context.Context, env *Environment, step *config.Step) error
	// Teardown releases the environment. Callers must invoke it on every
	// exit path so sandboxes never leak across instances.
	Teardown(env *Environment) error
}

// SetupFunc is the behavior behind one named setup action.
type SetupFunc func(ctx context.Context, env *Environment, options map[string]any) error

// Local is the Provisioner used for real runs: workspaces are directories
// under a run-scoped root, setup actions mutate the environment in place.
type Local struct {
	root    string
	actions map[string]SetupFunc
}

// NewLocal returns a Local provisioner rooted at the given directory (the
// system temp directory when empty), with the built-in setup actions
// registered.
func NewLocal(root string) *Local {
	if root == "" {
		root = os.TempDir()
	}
	l := &Local{
		root:    root,
		actions: make(map[string]SetupFunc),
	}
	l.RegisterAction("toolchain", setupToolchain)
	return l
}

// RegisterAction registers the behavior for a named setup action.
// Registering the same name twice is a programmer error.
func (l *Local) RegisterAction(name string, fn SetupFunc) {
	if _, exists := l.actions[name]; exists {
		panic(fmt.Sprintf("setup action %q already registered", name))
	}
	l.actions[name] = fn
}

// Provision creates the instance's workspace and seeds its environment
// variables. The passthrough mapping is copied in uninterpreted.
func (l *Local) Provision(ctx context.Context, inst *matrix.Instance, passthrough map[string]string) (*Environment, error) {
	logger := ctxlog.FromContext(ctx)

	workspace := filepath.Join(l.root, workspaceName(inst.ID))
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace for %s: %w", inst.ID, err)
	}

	env := &Environment{
		InstanceID: inst.ID,
		Platform:   inst.Platform,
		Workspace:  workspace,
		Env:        make(map[string]string, len(passthrough)+3),
		Tools:      make(map[string]string),
	}
	for k, v := range passthrough {
		env.Env[k] = v
	}
	env.Env["GRIDCI_JOB"] = inst.Job.Name
	env.Env["GRIDCI_INSTANCE"] = inst.ID
	env.Env["GRIDCI_OS"] = inst.Platform

	logger.Debug("Environment provisioned.", "instance", inst.ID, "workspace", workspace)
	return env, nil
}

// Apply dispatches one setup step to its registered action.
func (l *Local) Apply(ctx context.Context, env *Environment, step *config.Step) error {
	if step.Setup == nil {
		return errors.New("apply called with a command step")
	}
	action, ok := l.actions[step.Setup.Action]
	if !ok {
		return &ProvisioningError{Action: step.Setup.Action, Err: errors.New("unknown setup action")}
	}
	if err := action(ctx, env, step.Setup.Options); err != nil {
		return &ProvisioningError{Action: step.Setup.Action, Err: err}
	}
	return nil
}

// Teardown removes the environment's workspace.
func (l *Local) Teardown(env *Environment) error {
	if env == nil || env.Workspace == "" {
		return nil
	}
	return os.RemoveAll(env.Workspace)
}

// workspaceName derives a filesystem-safe directory name from an instance
// ID, suffixed with a fresh UUID fragment so retried runs never collide.
func workspaceName(instanceID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, instanceID)
	return "gridci-" + safe + "-" + uuid.NewString()[:8]
}
