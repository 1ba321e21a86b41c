// Package schema holds the HCL decoding structs for pipeline definition
// files. The hcl package translates these into the format-agnostic config
// model; nothing outside the loader should depend on this package.
package schema

import "github.com/hashicorp/hcl/v2"

// File represents the top-level structure of a pipeline definition file.
type File struct {
	Pipelines []*Pipeline `hcl:"pipeline,block"`
}

// Pipeline represents a `pipeline` block.
type Pipeline struct {
	Name     string            `hcl:"name,label"`
	Triggers []*Trigger        `hcl:"on,block"`
	Env      map[string]string `hcl:"env,optional"`
	FailFast bool              `hcl:"fail_fast,optional"`
	Jobs     []*Job            `hcl:"job,block"`
}

// Trigger represents an `on` block: an event kind label plus optional
// branch filters.
type Trigger struct {
	Event    string   `hcl:"event,label"`
	Branches []string `hcl:"branches,optional"`
}

// Job represents a `job` block.
type Job struct {
	Name    string   `hcl:"name,label"`
	RunsOn  []string `hcl:"runs_on"`
	Needs   []string `hcl:"needs,optional"`
	Timeout string   `hcl:"timeout,optional"`
	Matrix  *Matrix  `hcl:"matrix,block"`
	Steps   []*Step  `hcl:"step,block"`
}

// Matrix represents a `matrix` block. Each attribute is one axis; the
// loader recovers declaration order from the attributes' source ranges.
type Matrix struct {
	Body hcl.Body `hcl:",remain"`
}

// Step represents a `step` block: a label plus either a `run` attribute or
// a nested `setup` block.
type Step struct {
	Name    string `hcl:"name,label"`
	Run     string `hcl:"run,optional"`
	Timeout string `hcl:"timeout,optional"`
	Setup   *Setup `hcl:"setup,block"`
}

// Setup represents a `setup` block: the action name as label and its
// configuration options as attributes.
type Setup struct {
	Action string   `hcl:"action,label"`
	Body   hcl.Body `hcl:",remain"`
}
