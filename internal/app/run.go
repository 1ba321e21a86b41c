package app

import (
	"context"

	"github.com/vk/gridci/internal/aggregate"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/executor"
	"github.com/vk/gridci/internal/matrix"
	"github.com/vk/gridci/internal/trigger"
)

// Run evaluates the event against the pipeline's triggers and, on a match,
// executes one full run. A nil result with a nil error means the event did
// not match and nothing ran.
func (a *App) Run(ctx context.Context, ev trigger.Event) (*aggregate.RunResult, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	matched, err := trigger.Evaluate(a.pipeline, ev)
	if err != nil {
		return nil, err
	}
	if !matched {
		a.logger.Info("Event did not match any trigger, skipping run.", "event", ev.Kind, "ref", ev.Ref)
		return nil, nil
	}

	instances := matrix.ExpandAll(a.pipeline)
	a.logger.Info("🚀 Starting pipeline run.", "pipeline", a.pipeline.Name, "event", ev.Kind, "ref", ev.Ref, "instances", len(instances))

	exec := executor.New(a.prov, a.runner, a.config.WorkerCount)
	result, err := exec.Run(ctx, a.pipeline, instances)
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		a.logger.Error("🏁 Pipeline run failed.", "run_id", result.RunID)
	} else {
		a.logger.Info("🏁 Pipeline run succeeded.", "run_id", result.RunID)
	}
	return result, nil
}
