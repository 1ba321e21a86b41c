package hcl

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/schema"
)

// translatePipeline converts the decoded HCL schema into the agnostic model.
func translatePipeline(s *schema.Pipeline) (*config.Pipeline, error) {
	p := &config.Pipeline{
		Name:     s.Name,
		Env:      s.Env,
		FailFast: s.FailFast,
	}
	for _, t := range s.Triggers {
		p.Triggers = append(p.Triggers, config.Trigger{Event: t.Event, Branches: t.Branches})
	}
	for _, j := range s.Jobs {
		job, err := translateJob(j)
		if err != nil {
			return nil, err
		}
		p.Jobs = append(p.Jobs, job)
	}
	return p, nil
}

func translateJob(s *schema.Job) (*config.Job, error) {
	job := &config.Job{
		Name:   s.Name,
		RunsOn: s.RunsOn,
		Needs:  s.Needs,
	}

	timeout, err := parseTimeout(s.Name, s.Timeout)
	if err != nil {
		return nil, err
	}
	job.Timeout = timeout

	if s.Matrix != nil {
		axes, err := translateMatrix(s.Name, s.Matrix)
		if err != nil {
			return nil, err
		}
		job.Matrix = axes
	}

	for _, st := range s.Steps {
		step, err := translateStep(s.Name, st)
		if err != nil {
			return nil, err
		}
		job.Steps = append(job.Steps, step)
	}
	return job, nil
}

// translateMatrix reads the matrix block's attributes as axes. Declaration
// order is recovered from the attributes' source ranges, since HCL hands
// back attributes as an unordered map.
func translateMatrix(jobName string, m *schema.Matrix) ([]config.Axis, error) {
	attrs, diags := m.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("matrix block: %s", diags.Error())}
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Range.Start, ordered[j].Range.Start
		if ri.Line != rj.Line {
			return ri.Line < rj.Line
		}
		return ri.Column < rj.Column
	})

	axes := make([]config.Axis, 0, len(ordered))
	for _, attr := range ordered {
		values, err := stringListValue(attr.Expr)
		if err != nil {
			return nil, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("matrix axis %q: %s", attr.Name, err)}
		}
		axes = append(axes, config.Axis{Name: attr.Name, Values: values})
	}
	return axes, nil
}

func translateStep(jobName string, s *schema.Step) (*config.Step, error) {
	step := &config.Step{
		Name: s.Name,
		Run:  s.Run,
	}

	timeout, err := parseTimeout(jobName, s.Timeout)
	if err != nil {
		return nil, err
	}
	step.Timeout = timeout

	if s.Setup == nil {
		return step, nil
	}

	attrs, diags := s.Setup.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("setup %q: %s", s.Setup.Action, diags.Error())}
	}

	options := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		value, err := optionValue(attr.Expr)
		if err != nil {
			return nil, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("setup %q option %q: %s", s.Setup.Action, name, err)}
		}
		options[name] = value
	}
	step.Setup = &config.SetupAction{Action: s.Setup.Action, Options: options}
	return step, nil
}

// optionValue converts a setup option expression to a string or a string
// list, the only value shapes the definition language allows.
func optionValue(expr hcl.Expression) (any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.Type() == cty.String {
		return val.AsString(), nil
	}
	if val.CanIterateElements() {
		return stringListValue(expr)
	}
	return nil, fmt.Errorf("value must be a string or a list of strings, got %s", val.Type().FriendlyName())
}

// stringListValue evaluates an expression to an ordered list of strings.
func stringListValue(expr hcl.Expression) ([]string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("value must be a list of strings, got %s", val.Type().FriendlyName())
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			return nil, fmt.Errorf("list element must be a string, got %s", elem.Type().FriendlyName())
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

func parseTimeout(jobName, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("invalid timeout %q", raw)}
	}
	if d <= 0 {
		return 0, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("timeout %q must be positive", raw)}
	}
	return d, nil
}
