// Package matrix expands job templates into concrete job instances, one
// per element of the Cartesian product of the job's matrix axes. Expansion
// is a pure function: the same job always yields the same instances in the
// same order.
package matrix

import (
	"strings"

	"github.com/vk/gridci/internal/config"
)

// AxisValue is one axis bound to one concrete value on an instance.
type AxisValue struct {
	Name  string
	Value string
}

// Instance is one concrete, non-templated execution of a job: the job
// bound to a platform and to one value per matrix axis. Instances are
// immutable once created and live only for the duration of a run.
type Instance struct {
	// ID is the derived identity: the job name plus the axis-value tuple,
	// e.g. "test[os=ubuntu-latest,rust=stable]". A job that expands to a
	// single instance with no declared axes keeps its bare name.
	ID string
	// Job is the template this instance was expanded from.
	Job *config.Job
	// Platform is the instance's target platform (the implicit "os" axis).
	Platform string
	// Values holds the full axis-value tuple in axis declaration order,
	// platform first.
	Values []AxisValue
}

// Expand returns the ordered instances of one job template. The platform
// set is the leading (slowest-varying) axis, followed by the declared
// matrix axes in declaration order.
func Expand(job *config.Job) []*Instance {
	axes := make([]config.Axis, 0, len(job.Matrix)+1)
	axes = append(axes, config.Axis{Name: "os", Values: job.RunsOn})
	axes = append(axes, job.Matrix...)

	total := 1
	for _, axis := range axes {
		total *= len(axis.Values)
	}

	bare := len(job.RunsOn) == 1 && len(job.Matrix) == 0

	instances := make([]*Instance, 0, total)
	// Odometer over the axis value indices: the last axis ticks fastest,
	// so the first axis varies slowest.
	indices := make([]int, len(axes))
	for i := 0; i < total; i++ {
		values := make([]AxisValue, len(axes))
		for a, axis := range axes {
			values[a] = AxisValue{Name: axis.Name, Value: axis.Values[indices[a]]}
		}
		instances = append(instances, &Instance{
			ID:       instanceID(job.Name, values, bare),
			Job:      job,
			Platform: values[0].Value,
			Values:   values,
		})
		for a := len(indices) - 1; a >= 0; a-- {
			indices[a]++
			if indices[a] < len(axes[a].Values) {
				break
			}
			indices[a] = 0
		}
	}
	return instances
}

// ExpandAll expands every job of a pipeline, preserving job declaration
// order between the per-job instance sequences.
func ExpandAll(p *config.Pipeline) []*Instance {
	var instances []*Instance
	for _, job := range p.Jobs {
		instances = append(instances, Expand(job)...)
	}
	return instances
}

func instanceID(jobName string, values []AxisValue, bare bool) string {
	if bare {
		return jobName
	}
	var sb strings.Builder
	sb.WriteString(jobName)
	sb.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(v.Name)
		sb.WriteByte('=')
		sb.WriteString(v.Value)
	}
	sb.WriteByte(']')
	return sb.String()
}
