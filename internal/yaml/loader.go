package yaml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	goyaml "gopkg.in/yaml.v3"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
)

// Loader loads pipeline definitions from YAML files. It implements
// config.Loader.
type Loader struct{}

// NewLoader returns a new YAML definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a single YAML definition file.
func (l *Loader) Load(ctx context.Context, path string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline definition.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &config.MalformedDefinitionError{Path: path, Err: err}
	}

	model, err := Parse(data)
	if err != nil {
		var invalid *config.InvalidJobSpecError
		if errors.As(err, &invalid) {
			return nil, err
		}
		var malformed *config.MalformedDefinitionError
		if errors.As(err, &malformed) {
			return nil, err
		}
		return nil, &config.MalformedDefinitionError{Path: path, Err: err}
	}

	if err := config.Validate(model); err != nil {
		return nil, err
	}

	logger.Debug("Pipeline definition loaded.", "pipeline", model.Name, "jobs", len(model.Jobs))
	return model, nil
}

// Parse decodes raw YAML into a pipeline model without validating it.
// Load is the entry point callers want; Parse exists for the round-trip
// with Encode.
func Parse(data []byte) (*config.Pipeline, error) {
	var root goyaml.Node
	if err := goyaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != goyaml.DocumentNode || len(root.Content) != 1 {
		return nil, errors.New("empty definition document")
	}
	return decodePipeline(root.Content[0])
}

func decodePipeline(n *goyaml.Node) (*config.Pipeline, error) {
	if n.Kind != goyaml.MappingNode {
		return nil, errors.New("definition root must be a mapping")
	}

	p := &config.Pipeline{}
	for i := 0; i < len(n.Content); i += 2 {
		key, value := n.Content[i].Value, n.Content[i+1]
		switch key {
		case "name":
			p.Name = value.Value
		case "on":
			triggers, err := decodeTriggers(value)
			if err != nil {
				return nil, err
			}
			p.Triggers = triggers
		case "env":
			env, err := decodeStringMap(value)
			if err != nil {
				return nil, fmt.Errorf("env: %w", err)
			}
			p.Env = env
		case "fail-fast":
			if err := value.Decode(&p.FailFast); err != nil {
				return nil, fmt.Errorf("fail-fast: %w", err)
			}
		case "jobs":
			if value.Kind != goyaml.MappingNode {
				return nil, errors.New("jobs must be a mapping")
			}
			for j := 0; j < len(value.Content); j += 2 {
				job, err := decodeJob(value.Content[j].Value, value.Content[j+1])
				if err != nil {
					return nil, err
				}
				p.Jobs = append(p.Jobs, job)
			}
		default:
			return nil, &config.InvalidJobSpecError{Reason: fmt.Sprintf("unknown key %q", key)}
		}
	}
	return p, nil
}

// decodeTriggers accepts the three forms the workflow dialect allows: a
// single scalar kind, a sequence of kinds, or a mapping of kind to filters.
func decodeTriggers(n *goyaml.Node) ([]config.Trigger, error) {
	switch n.Kind {
	case goyaml.ScalarNode:
		return []config.Trigger{{Event: n.Value}}, nil
	case goyaml.SequenceNode:
		triggers := make([]config.Trigger, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != goyaml.ScalarNode {
				return nil, errors.New("on: sequence entries must be event kinds")
			}
			triggers = append(triggers, config.Trigger{Event: item.Value})
		}
		return triggers, nil
	case goyaml.MappingNode:
		var triggers []config.Trigger
		for i := 0; i < len(n.Content); i += 2 {
			t := config.Trigger{Event: n.Content[i].Value}
			filters := n.Content[i+1]
			if filters.Kind == goyaml.MappingNode {
				for j := 0; j < len(filters.Content); j += 2 {
					if filters.Content[j].Value != "branches" {
						return nil, &config.InvalidJobSpecError{Reason: fmt.Sprintf("on.%s: unknown filter %q", t.Event, filters.Content[j].Value)}
					}
					branches, err := decodeStringList(filters.Content[j+1])
					if err != nil {
						return nil, fmt.Errorf("on.%s.branches: %w", t.Event, err)
					}
					t.Branches = branches
				}
			}
			triggers = append(triggers, t)
		}
		return triggers, nil
	}
	return nil, errors.New("on: must be an event kind, a sequence, or a mapping")
}

func decodeJob(name string, n *goyaml.Node) (*config.Job, error) {
	if n.Kind != goyaml.MappingNode {
		return nil, fmt.Errorf("job %q must be a mapping", name)
	}

	job := &config.Job{Name: name}
	for i := 0; i < len(n.Content); i += 2 {
		key, value := n.Content[i].Value, n.Content[i+1]
		switch key {
		case "runs-on":
			platforms, err := decodeStringList(value)
			if err != nil {
				return nil, fmt.Errorf("job %q runs-on: %w", name, err)
			}
			job.RunsOn = platforms
		case "needs":
			needs, err := decodeStringList(value)
			if err != nil {
				return nil, fmt.Errorf("job %q needs: %w", name, err)
			}
			job.Needs = needs
		case "timeout":
			d, err := decodeTimeout(name, value.Value)
			if err != nil {
				return nil, err
			}
			job.Timeout = d
		case "matrix":
			if value.Kind != goyaml.MappingNode {
				return nil, fmt.Errorf("job %q matrix must be a mapping", name)
			}
			for j := 0; j < len(value.Content); j += 2 {
				values, err := decodeStringList(value.Content[j+1])
				if err != nil {
					return nil, fmt.Errorf("job %q matrix axis %q: %w", name, value.Content[j].Value, err)
				}
				job.Matrix = append(job.Matrix, config.Axis{Name: value.Content[j].Value, Values: values})
			}
		case "steps":
			if value.Kind != goyaml.SequenceNode {
				return nil, fmt.Errorf("job %q steps must be a sequence", name)
			}
			for _, item := range value.Content {
				step, err := decodeStep(name, item)
				if err != nil {
					return nil, err
				}
				job.Steps = append(job.Steps, step)
			}
		default:
			return nil, &config.InvalidJobSpecError{Job: name, Reason: fmt.Sprintf("unknown key %q", key)}
		}
	}
	return job, nil
}

func decodeStep(jobName string, n *goyaml.Node) (*config.Step, error) {
	if n.Kind != goyaml.MappingNode {
		return nil, fmt.Errorf("job %q: each step must be a mapping", jobName)
	}

	step := &config.Step{}
	var action string
	var options map[string]any
	for i := 0; i < len(n.Content); i += 2 {
		key, value := n.Content[i].Value, n.Content[i+1]
		switch key {
		case "name":
			step.Name = value.Value
		case "run":
			step.Run = value.Value
		case "timeout":
			d, err := decodeTimeout(jobName, value.Value)
			if err != nil {
				return nil, err
			}
			step.Timeout = d
		case "setup":
			action = value.Value
		case "with":
			opts, err := decodeOptions(value)
			if err != nil {
				return nil, fmt.Errorf("job %q step with: %w", jobName, err)
			}
			options = opts
		default:
			return nil, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("unknown step key %q", key)}
		}
	}

	if action != "" {
		step.Setup = &config.SetupAction{Action: action, Options: options}
	} else if options != nil {
		return nil, &config.InvalidJobSpecError{Job: jobName, Reason: "step has a with block but no setup action"}
	}
	return step, nil
}

func decodeOptions(n *goyaml.Node) (map[string]any, error) {
	if n.Kind != goyaml.MappingNode {
		return nil, errors.New("must be a mapping")
	}
	options := make(map[string]any, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		key, value := n.Content[i].Value, n.Content[i+1]
		switch value.Kind {
		case goyaml.ScalarNode:
			options[key] = value.Value
		case goyaml.SequenceNode:
			list, err := decodeStringList(value)
			if err != nil {
				return nil, fmt.Errorf("option %q: %w", key, err)
			}
			options[key] = list
		default:
			return nil, fmt.Errorf("option %q: must be a string or a list of strings", key)
		}
	}
	return options, nil
}

// decodeStringList accepts a scalar (one-element list) or a sequence of
// scalars, matching the workflow dialect's shorthand.
func decodeStringList(n *goyaml.Node) ([]string, error) {
	switch n.Kind {
	case goyaml.ScalarNode:
		return []string{n.Value}, nil
	case goyaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != goyaml.ScalarNode {
				return nil, errors.New("must be a list of strings")
			}
			out = append(out, item.Value)
		}
		return out, nil
	}
	return nil, errors.New("must be a string or a list of strings")
}

func decodeStringMap(n *goyaml.Node) (map[string]string, error) {
	if n.Kind != goyaml.MappingNode {
		return nil, errors.New("must be a mapping of strings")
	}
	out := make(map[string]string, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		if n.Content[i+1].Kind != goyaml.ScalarNode {
			return nil, fmt.Errorf("value for %q must be a string", n.Content[i].Value)
		}
		out[n.Content[i].Value] = n.Content[i+1].Value
	}
	return out, nil
}

func decodeTimeout(jobName, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("invalid timeout %q", raw)}
	}
	if d <= 0 {
		return 0, &config.InvalidJobSpecError{Job: jobName, Reason: fmt.Sprintf("timeout %q must be positive", raw)}
	}
	return d, nil
}
