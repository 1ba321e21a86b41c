package executor

import (
	"sync/atomic"

	"github.com/vk/gridci/internal/aggregate"
	"github.com/vk/gridci/internal/matrix"
)

// State is the execution state of one job instance.
type State int32

const (
	// Pending means the instance is waiting for a worker or for needed jobs.
	Pending State = iota
	// Provisioning means the instance's environment and setup steps are
	// being established.
	Provisioning
	// Running means the instance's command steps are executing.
	Running
	// Succeeded is terminal: every step completed.
	Succeeded
	// Failed is terminal: a step failed, a deadline expired, the run was
	// aborted, or a needed job failed.
	Failed
)

// String returns the state's diagnostic name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Provisioning:
		return "provisioning"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// node is the executor's mutable wrapper around one immutable job
// instance.
type node struct {
	inst *matrix.Instance

	// state is the instance's current execution state, managed atomically.
	state atomic.Int32
	// depCount counts unmet needs; the node becomes ready at zero.
	depCount atomic.Int32
	// claimed guards ownership: exactly one of a worker or the
	// dependency-skip path processes a node.
	claimed atomic.Bool

	// result is written by the owner before the run's WaitGroup is
	// released, so reads after Wait are safe.
	result *aggregate.InstanceResult
}

func (n *node) setState(s State) {
	n.state.Store(int32(s))
}

// getState atomically retrieves the node's execution state.
func (n *node) getState() State {
	return State(n.state.Load())
}

// claim marks the node as owned. It returns false if someone else already
// owns it.
func (n *node) claim() bool {
	return n.claimed.CompareAndSwap(false, true)
}
