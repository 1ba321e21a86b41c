package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/gridci/internal/aggregate"
	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/dag"
	"github.com/vk/gridci/internal/environment"
	"github.com/vk/gridci/internal/matrix"
)

// Executor orchestrates the concurrent execution of a run's job instances.
type Executor struct {
	prov    environment.Provisioner
	runner  CommandRunner
	workers int
}

// New creates an Executor with the given provisioner, command runner, and
// worker count.
func New(prov environment.Provisioner, runner CommandRunner, workers int) *Executor {
	if workers <= 0 {
		workers = 4
	}
	return &Executor{prov: prov, runner: runner, workers: workers}
}

// Run executes every instance to a terminal state and returns the
// aggregated result. A single instance's failure never stops its siblings
// unless the pipeline opts into fail_fast.
func (e *Executor) Run(ctx context.Context, p *config.Pipeline, instances []*matrix.Instance) (*aggregate.RunResult, error) {
	logger := ctxlog.FromContext(ctx)
	result := aggregate.NewRunResult(p.Name)

	if len(instances) == 0 {
		logger.Warn("No job instances to execute.")
		return result, nil
	}

	graph, nodes, err := buildInstanceGraph(instances)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan *node, len(nodes))
	var wg sync.WaitGroup
	wg.Add(len(nodes))

	for id, n := range nodes {
		deps, err := graph.Dependencies(id)
		if err != nil {
			return nil, err
		}
		n.depCount.Store(int32(len(deps)))
	}
	// Seed in instance order so startup is deterministic.
	for _, inst := range instances {
		if nodes[inst.ID].depCount.Load() == 0 {
			ready <- nodes[inst.ID]
		}
	}

	logger.Debug("Executor starting run.", "instances", len(nodes), "workers", e.workers)
	for i := 0; i < e.workers; i++ {
		go e.worker(runCtx, i, p, graph, nodes, ready, cancel, &wg)
	}

	wg.Wait()
	close(ready)

	for _, inst := range instances {
		result.Add(nodes[inst.ID].result)
	}
	return result, nil
}

// buildInstanceGraph creates one graph node per instance and an edge for
// every needs relation, from each instance of the needed job to each
// instance of the dependent job.
func buildInstanceGraph(instances []*matrix.Instance) (*dag.Graph, map[string]*node, error) {
	graph := dag.New()
	nodes := make(map[string]*node, len(instances))
	byJob := make(map[string][]*matrix.Instance)

	for _, inst := range instances {
		graph.AddNode(inst.ID)
		nodes[inst.ID] = &node{inst: inst}
		byJob[inst.Job.Name] = append(byJob[inst.Job.Name], inst)
	}
	for _, inst := range instances {
		for _, need := range inst.Job.Needs {
			for _, dep := range byJob[need] {
				if err := graph.AddEdge(dep.ID, inst.ID); err != nil {
					return nil, nil, fmt.Errorf("building instance graph: %w", err)
				}
			}
		}
	}
	return graph, nodes, nil
}

// worker is the processing loop for one concurrent worker.
func (e *Executor) worker(ctx context.Context, workerID int, p *config.Pipeline, graph *dag.Graph, nodes map[string]*node, ready chan *node, cancel context.CancelFunc, wg *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "worker", workerID)

	for n := range ready {
		if !n.claim() {
			// Already failed through the dependency-skip path.
			continue
		}

		res := e.runInstance(ctx, p, n)
		n.result = res

		if !res.Succeeded {
			logger.Warn("Job instance failed.", "worker", workerID, "instance", n.inst.ID, "cause", res.Cause.String())
			if p.FailFast {
				cancel()
			}
			e.skipDependents(ctx, graph, nodes, n, wg)
		} else {
			logger.Debug("Job instance succeeded.", "worker", workerID, "instance", n.inst.ID)
			dependents, err := graph.Dependents(n.inst.ID)
			if err != nil {
				logger.Error("Failed to get dependents for completed instance.", "instance", n.inst.ID, "error", err)
			} else {
				for _, id := range dependents {
					if nodes[id].depCount.Add(-1) == 0 {
						ready <- nodes[id]
					}
				}
			}
		}
		wg.Done()
	}
	logger.Debug("Worker finished.", "worker", workerID)
}

// skipDependents marks every transitive dependent of a failed instance as
// failed without provisioning it. Sibling instances are untouched.
func (e *Executor) skipDependents(ctx context.Context, graph *dag.Graph, nodes map[string]*node, failed *node, wg *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx)
	dependents, err := graph.Dependents(failed.inst.ID)
	if err != nil {
		logger.Error("Failed to get dependents for failed instance.", "instance", failed.inst.ID, "error", err)
		return
	}

	for _, id := range dependents {
		dep := nodes[id]
		if !dep.claim() {
			continue
		}
		dep.setState(Failed)
		dep.result = &aggregate.InstanceResult{
			ID:       dep.inst.ID,
			Job:      dep.inst.Job.Name,
			Platform: dep.inst.Platform,
			Cause:    aggregate.CauseDependency,
			Err:      fmt.Errorf("needed job %q failed", failed.inst.Job.Name),
		}
		logger.Warn("Skipping instance, needed job failed.", "instance", dep.inst.ID, "failed", failed.inst.ID)
		wg.Done()
		e.skipDependents(ctx, graph, nodes, dep, wg)
	}
}
