package config

import (
	"strconv"
	"time"
)

// Pipeline is the unified, format-agnostic representation of one pipeline
// definition: its triggers, its environment passthrough, and its jobs.
// A loaded Pipeline is immutable; the engine never mutates it during a run.
type Pipeline struct {
	// Name is the pipeline's declared name.
	Name string
	// Triggers lists the event conditions under which the pipeline runs.
	Triggers []Trigger
	// Env is a mapping of environment variables passed through, unchanged,
	// into every execution environment. The engine never interprets the values.
	Env map[string]string
	// FailFast, when set, cancels every in-flight job instance as soon as
	// one instance fails. Off by default: sibling instances are independent.
	FailFast bool
	// Jobs holds the pipeline's jobs in declaration order.
	Jobs []*Job
}

// Trigger is one declared trigger condition: an event kind plus optional
// branch filters.
type Trigger struct {
	// Event is the event kind this trigger matches, e.g. "push".
	Event string
	// Branches optionally restricts the trigger to refs whose branch name
	// matches one of the patterns. An empty list matches any ref.
	Branches []string
}

// Job is a named, possibly matrix-templated unit of work. A job with
// matrix axes (or more than one platform) is a template; the matrix
// package expands it into concrete instances.
type Job struct {
	// Name is the job's unique name within the pipeline.
	Name string
	// RunsOn is the job's target platform set. It acts as the implicit
	// leading matrix axis, so a two-platform job yields two instances.
	RunsOn []string
	// Needs names jobs that must succeed before this job's instances run.
	Needs []string
	// Matrix holds the declared matrix axes in declaration order.
	Matrix []Axis
	// Timeout bounds each instance of this job. Zero means no bound.
	Timeout time.Duration
	// Steps holds the job's steps in declaration order.
	Steps []*Step
}

// Axis is one named matrix dimension with its ordered literal values.
type Axis struct {
	Name   string
	Values []string
}

// Step is one ordered unit of work inside a job: either a literal command
// (Run non-empty) or an environment-setup action (Setup non-nil). Exactly
// one of the two is set on a valid step.
type Step struct {
	// Name is the step's optional display name.
	Name string
	// Run is the literal command to execute. Opaque to the engine.
	Run string
	// Setup is the environment-setup action to perform, if any.
	Setup *SetupAction
	// Timeout bounds this single step. Zero means no bound.
	Timeout time.Duration
}

// SetupAction is a named environment-setup action with its configuration
// options. Option values are strings or string lists.
type SetupAction struct {
	Action  string
	Options map[string]any
}

// DisplayName returns the step's name, or a positional fallback derived
// from its one-based index when the definition gave it no name.
func (s *Step) DisplayName(index int) string {
	if s.Name != "" {
		return s.Name
	}
	if s.Setup != nil {
		return s.Setup.Action
	}
	// One-based to match how people count steps in CI logs.
	return "step-" + strconv.Itoa(index)
}

// JobByName returns the named job, or nil when the pipeline declares none
// with that name.
func (p *Pipeline) JobByName(name string) *Job {
	for _, j := range p.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}
