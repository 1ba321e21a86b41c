package executor

import (
	"context"
	"errors"
	"time"

	"github.com/vk/gridci/internal/aggregate"
	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/environment"
)

// runInstance drives one job instance through its full lifecycle:
// Pending → Provisioning → Running → {Succeeded | Failed}. The environment
// is torn down on every exit path.
func (e *Executor) runInstance(ctx context.Context, p *config.Pipeline, n *node) *aggregate.InstanceResult {
	logger := ctxlog.FromContext(ctx).With("instance", n.inst.ID)
	res := &aggregate.InstanceResult{
		ID:       n.inst.ID,
		Job:      n.inst.Job.Name,
		Platform: n.inst.Platform,
	}

	if ctx.Err() != nil {
		n.setState(Failed)
		res.Cause = aggregate.CauseAborted
		res.Err = ctx.Err()
		return res
	}

	jobCtx := ctx
	if n.inst.Job.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, n.inst.Job.Timeout)
		defer cancel()
	}

	n.setState(Provisioning)
	env, err := e.prov.Provision(jobCtx, n.inst, p.Env)
	if err != nil {
		n.setState(Failed)
		res.Cause = aggregate.CauseProvisioning
		res.Err = err
		return res
	}
	defer func() {
		if terr := e.prov.Teardown(env); terr != nil {
			logger.Error("Environment teardown failed.", "error", terr)
		}
	}()

	for i, step := range n.inst.Job.Steps {
		name := step.DisplayName(i + 1)
		stepRes, cause, stepErr := e.runStep(ctx, jobCtx, n, env, step, name)
		res.Steps = append(res.Steps, stepRes)

		if stepErr != nil {
			n.setState(Failed)
			res.Cause = cause
			res.FailedStep = name
			res.Err = stepErr
			logger.Warn("Step failed, stopping instance.", "step", name, "cause", cause.String(), "error", stepErr)
			return res
		}
	}

	n.setState(Succeeded)
	res.Succeeded = true
	return res
}

// runStep dispatches one step to the provisioner or the command runner
// depending on its variant, enforcing the step's own timeout if declared.
// On failure it also classifies the cause, which needs the step-scoped
// context before it goes out of scope.
func (e *Executor) runStep(runCtx, jobCtx context.Context, n *node, env *environment.Environment, step *config.Step, name string) (aggregate.StepResult, aggregate.Cause, error) {
	stepCtx := jobCtx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(jobCtx, step.Timeout)
		defer cancel()
	}

	start := time.Now()
	var output string
	var err error
	if step.Setup != nil {
		err = e.prov.Apply(stepCtx, env, step)
	} else {
		n.setState(Running)
		output, err = e.runner.Run(stepCtx, env, step.Run)
	}

	res := aggregate.StepResult{
		Step:      name,
		Succeeded: err == nil,
		Output:    output,
		Duration:  time.Since(start),
	}
	if err == nil {
		return res, aggregate.CauseNone, nil
	}
	return res, classifyFailure(runCtx, jobCtx, stepCtx, step, err), err
}

// classifyFailure maps a failing step's error onto the failure taxonomy.
// Cancellation of the whole run wins over everything; a hit deadline is a
// timeout; otherwise the step variant decides.
func classifyFailure(runCtx, jobCtx, stepCtx context.Context, step *config.Step, err error) aggregate.Cause {
	switch {
	case runCtx.Err() != nil:
		return aggregate.CauseAborted
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded) || errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		return aggregate.CauseTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return aggregate.CauseTimeout
	case step.Setup != nil:
		return aggregate.CauseProvisioning
	default:
		return aggregate.CauseStepFailure
	}
}
