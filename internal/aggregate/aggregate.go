// Package aggregate collects per-instance outcomes into one pipeline-level
// result. Aggregation is a plain logical AND across every job instance:
// the run fails if and only if at least one instance failed.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cause classifies why a job instance failed.
type Cause int

const (
	// CauseNone means the instance did not fail.
	CauseNone Cause = iota
	// CauseStepFailure means a command step exited non-zero.
	CauseStepFailure
	// CauseProvisioning means a setup step failed before commands ran.
	CauseProvisioning
	// CauseTimeout means a step or job deadline expired.
	CauseTimeout
	// CauseAborted means the run was cancelled while the instance was in flight.
	CauseAborted
	// CauseDependency means a needed job failed, so the instance never started.
	CauseDependency
)

// String returns the cause's diagnostic name.
func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseStepFailure:
		return "step failure"
	case CauseProvisioning:
		return "provisioning error"
	case CauseTimeout:
		return "timeout"
	case CauseAborted:
		return "aborted"
	case CauseDependency:
		return "dependency failed"
	}
	return "unknown"
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	// Step is the step's display name.
	Step string
	// Succeeded reports whether the step completed without error.
	Succeeded bool
	// Output is the step's captured combined output.
	Output string
	// Duration is how long the step ran.
	Duration time.Duration
}

// InstanceResult is the terminal outcome of one job instance.
type InstanceResult struct {
	// ID is the instance's derived identity.
	ID string
	// Job is the instance's job name.
	Job string
	// Platform is the instance's target platform.
	Platform string
	// Succeeded reports whether every step of the instance succeeded.
	Succeeded bool
	// Cause classifies the failure; CauseNone on success.
	Cause Cause
	// FailedStep names the step that failed, when one did.
	FailedStep string
	// Steps holds the results of every step that ran, in execution order.
	Steps []StepResult
	// Err is the underlying error of the failing step, if any.
	Err error
}

// RunResult maps every job instance of a run to its terminal outcome.
type RunResult struct {
	// RunID uniquely identifies this run.
	RunID string
	// Pipeline is the pipeline's declared name.
	Pipeline string
	// Started is when the run began.
	Started time.Time

	instances map[string]*InstanceResult
	order     []string
}

// NewRunResult creates an empty result for one run of the named pipeline.
func NewRunResult(pipeline string) *RunResult {
	return &RunResult{
		RunID:     uuid.NewString(),
		Pipeline:  pipeline,
		Started:   time.Now().UTC(),
		instances: make(map[string]*InstanceResult),
	}
}

// Add records one instance's terminal outcome. Insertion order is kept for
// deterministic reporting.
func (r *RunResult) Add(res *InstanceResult) {
	if _, exists := r.instances[res.ID]; !exists {
		r.order = append(r.order, res.ID)
	}
	r.instances[res.ID] = res
}

// Instance returns the recorded outcome for an instance ID, or nil.
func (r *RunResult) Instance(id string) *InstanceResult {
	return r.instances[id]
}

// Instances returns every recorded outcome in insertion order.
func (r *RunResult) Instances() []*InstanceResult {
	out := make([]*InstanceResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.instances[id])
	}
	return out
}

// Failed reports whether any instance failed. A run with zero instances
// succeeds vacuously.
func (r *RunResult) Failed() bool {
	for _, res := range r.instances {
		if !res.Succeeded {
			return true
		}
	}
	return false
}

// ExitCode maps the aggregate outcome onto a process exit code.
func (r *RunResult) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}

// Summary renders a human-readable account of the run, naming the failing
// step of every failed instance and including its captured output.
func (r *RunResult) Summary() string {
	var sb strings.Builder
	for _, res := range r.Instances() {
		if res.Succeeded {
			fmt.Fprintf(&sb, "✔ %s\n", res.ID)
			continue
		}
		fmt.Fprintf(&sb, "✘ %s (%s)", res.ID, res.Cause)
		if res.FailedStep != "" {
			fmt.Fprintf(&sb, " at step %q", res.FailedStep)
		}
		sb.WriteByte('\n')
		for _, step := range res.Steps {
			if step.Succeeded || step.Output == "" {
				continue
			}
			for _, line := range strings.Split(strings.TrimRight(step.Output, "\n"), "\n") {
				fmt.Fprintf(&sb, "    %s\n", line)
			}
		}
	}
	return sb.String()
}
