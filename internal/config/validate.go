package config

import (
	"fmt"

	"github.com/vk/gridci/internal/dag"
)

// setupOptions maps each recognized setup action to its recognized option
// keys and the Go type each value must carry after loading. The environment
// package registers the matching behavior for these actions.
var setupOptions = map[string]map[string]string{
	"toolchain": {
		"profile":    "string",
		"toolchain":  "string",
		"components": "list",
	},
}

// implicitPlatformAxis is the reserved axis name under which a job's
// platform set participates in matrix expansion.
const implicitPlatformAxis = "os"

// Validate checks a loaded pipeline against the semantic rules of the
// definition language. It returns an *InvalidJobSpecError describing the
// first violation found, or nil. Loaders call this before handing a
// pipeline to the engine, so a pipeline in circulation is always valid.
func Validate(p *Pipeline) error {
	seen := make(map[string]bool, len(p.Jobs))
	for _, job := range p.Jobs {
		if job.Name == "" {
			return &InvalidJobSpecError{Reason: "job with empty name"}
		}
		if seen[job.Name] {
			return &InvalidJobSpecError{Job: job.Name, Reason: "duplicate job name"}
		}
		seen[job.Name] = true

		if err := validateJob(job); err != nil {
			return err
		}
	}

	for _, job := range p.Jobs {
		for _, need := range job.Needs {
			if need == job.Name {
				return &InvalidJobSpecError{Job: job.Name, Reason: "job cannot need itself"}
			}
			if !seen[need] {
				return &InvalidJobSpecError{Job: job.Name, Reason: fmt.Sprintf("needs undeclared job %q", need)}
			}
		}
	}

	return validateNeedsAcyclic(p)
}

func validateJob(job *Job) error {
	if len(job.Steps) == 0 {
		return &InvalidJobSpecError{Job: job.Name, Reason: "job has no steps"}
	}
	if len(job.RunsOn) == 0 {
		return &InvalidJobSpecError{Job: job.Name, Reason: "job declares no target platform"}
	}
	for _, platform := range job.RunsOn {
		if platform == "" {
			return &InvalidJobSpecError{Job: job.Name, Reason: "empty platform value"}
		}
	}

	axes := make(map[string]bool, len(job.Matrix))
	for _, axis := range job.Matrix {
		if axis.Name == implicitPlatformAxis {
			// Platforms are the implicit leading axis; one source of truth.
			return &InvalidJobSpecError{Job: job.Name, Reason: fmt.Sprintf("matrix axis %q is reserved, use runs_on", implicitPlatformAxis)}
		}
		if axes[axis.Name] {
			return &InvalidJobSpecError{Job: job.Name, Reason: fmt.Sprintf("duplicate matrix axis %q", axis.Name)}
		}
		axes[axis.Name] = true
		if len(axis.Values) == 0 {
			return &InvalidJobSpecError{Job: job.Name, Reason: fmt.Sprintf("matrix axis %q has no values", axis.Name)}
		}
	}

	for i, step := range job.Steps {
		if err := validateStep(job.Name, step, i+1); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(jobName string, step *Step, index int) error {
	name := step.DisplayName(index)
	hasRun := step.Run != ""
	hasSetup := step.Setup != nil
	if hasRun == hasSetup {
		return &InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("step %q must have exactly one of run or setup", name)}
	}
	if !hasSetup {
		return nil
	}

	known, ok := setupOptions[step.Setup.Action]
	if !ok {
		return &InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("step %q uses unknown setup action %q", name, step.Setup.Action)}
	}
	for key, value := range step.Setup.Options {
		kind, ok := known[key]
		if !ok {
			return &InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("step %q: unknown option %q for setup action %q", name, key, step.Setup.Action)}
		}
		switch kind {
		case "string":
			if _, ok := value.(string); !ok {
				return &InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("step %q: option %q must be a string", name, key)}
			}
		case "list":
			if _, ok := value.([]string); !ok {
				return &InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("step %q: option %q must be a list of strings", name, key)}
			}
		}
	}
	return nil
}

// validateNeedsAcyclic rejects definitions whose needs references form a
// cycle; the executor's instance graph inherits its shape from this one.
func validateNeedsAcyclic(p *Pipeline) error {
	g := dag.New()
	for _, job := range p.Jobs {
		g.AddNode(job.Name)
	}
	for _, job := range p.Jobs {
		for _, need := range job.Needs {
			if err := g.AddEdge(need, job.Name); err != nil {
				return &InvalidJobSpecError{Job: job.Name, Reason: err.Error()}
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return &InvalidJobSpecError{Reason: err.Error()}
	}
	return nil
}
