package yaml

import (
	"sort"

	goyaml "gopkg.in/yaml.v3"

	"github.com/vk/gridci/internal/config"
)

// Encode serializes a pipeline model back into the workflow-flavored YAML
// dialect Parse reads. Job names, step order, and matrix axis sets survive
// a Parse/Encode round trip; env keys are emitted sorted since the model
// holds them in a map.
func Encode(p *config.Pipeline) ([]byte, error) {
	root := mapping()

	if p.Name != "" {
		appendPair(root, "name", scalar(p.Name))
	}
	if len(p.Triggers) > 0 {
		appendPair(root, "on", encodeTriggers(p.Triggers))
	}
	if len(p.Env) > 0 {
		env := mapping()
		keys := make([]string, 0, len(p.Env))
		for k := range p.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendPair(env, k, scalar(p.Env[k]))
		}
		appendPair(root, "env", env)
	}
	if p.FailFast {
		appendPair(root, "fail-fast", boolScalar(true))
	}

	jobs := mapping()
	for _, job := range p.Jobs {
		appendPair(jobs, job.Name, encodeJob(job))
	}
	appendPair(root, "jobs", jobs)

	return goyaml.Marshal(root)
}

func encodeTriggers(triggers []config.Trigger) *goyaml.Node {
	plain := true
	for _, t := range triggers {
		if len(t.Branches) > 0 {
			plain = false
			break
		}
	}
	if plain {
		seq := sequence()
		for _, t := range triggers {
			seq.Content = append(seq.Content, scalar(t.Event))
		}
		return seq
	}

	m := mapping()
	for _, t := range triggers {
		filters := mapping()
		if len(t.Branches) > 0 {
			appendPair(filters, "branches", stringSequence(t.Branches))
		}
		appendPair(m, t.Event, filters)
	}
	return m
}

func encodeJob(job *config.Job) *goyaml.Node {
	m := mapping()
	appendPair(m, "runs-on", stringSequence(job.RunsOn))
	if len(job.Needs) > 0 {
		appendPair(m, "needs", stringSequence(job.Needs))
	}
	if job.Timeout > 0 {
		appendPair(m, "timeout", scalar(job.Timeout.String()))
	}
	if len(job.Matrix) > 0 {
		matrix := mapping()
		for _, axis := range job.Matrix {
			appendPair(matrix, axis.Name, stringSequence(axis.Values))
		}
		appendPair(m, "matrix", matrix)
	}

	steps := sequence()
	for _, step := range job.Steps {
		steps.Content = append(steps.Content, encodeStep(step))
	}
	appendPair(m, "steps", steps)
	return m
}

func encodeStep(step *config.Step) *goyaml.Node {
	m := mapping()
	if step.Name != "" {
		appendPair(m, "name", scalar(step.Name))
	}
	if step.Setup != nil {
		appendPair(m, "setup", scalar(step.Setup.Action))
		if len(step.Setup.Options) > 0 {
			with := mapping()
			keys := make([]string, 0, len(step.Setup.Options))
			for k := range step.Setup.Options {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				switch v := step.Setup.Options[k].(type) {
				case string:
					appendPair(with, k, scalar(v))
				case []string:
					appendPair(with, k, stringSequence(v))
				}
			}
			appendPair(m, "with", with)
		}
	} else {
		appendPair(m, "run", scalar(step.Run))
	}
	if step.Timeout > 0 {
		appendPair(m, "timeout", scalar(step.Timeout.String()))
	}
	return m
}

func mapping() *goyaml.Node {
	return &goyaml.Node{Kind: goyaml.MappingNode, Tag: "!!map"}
}

func sequence() *goyaml.Node {
	return &goyaml.Node{Kind: goyaml.SequenceNode, Tag: "!!seq"}
}

func scalar(value string) *goyaml.Node {
	return &goyaml.Node{Kind: goyaml.ScalarNode, Tag: "!!str", Value: value}
}

func boolScalar(value bool) *goyaml.Node {
	v := "false"
	if value {
		v = "true"
	}
	return &goyaml.Node{Kind: goyaml.ScalarNode, Tag: "!!bool", Value: v}
}

func stringSequence(values []string) *goyaml.Node {
	seq := sequence()
	for _, v := range values {
		seq.Content = append(seq.Content, scalar(v))
	}
	return seq
}

func appendPair(m *goyaml.Node, key string, value *goyaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}
