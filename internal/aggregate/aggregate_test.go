package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunResultVacuousSuccess(t *testing.T) {
	r := NewRunResult("ci")
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, "ci", r.Pipeline)
	assert.False(t, r.Failed())
	assert.Equal(t, 0, r.ExitCode())
	assert.Empty(t, r.Instances())
}

func TestRunResultAggregatesWithAnd(t *testing.T) {
	r := NewRunResult("ci")
	r.Add(&InstanceResult{ID: "a", Succeeded: true})
	r.Add(&InstanceResult{ID: "b", Succeeded: true})
	assert.False(t, r.Failed())

	r.Add(&InstanceResult{ID: "c", Cause: CauseStepFailure})
	assert.True(t, r.Failed())
	assert.Equal(t, 1, r.ExitCode())
}

func TestRunResultKeepsInsertionOrder(t *testing.T) {
	r := NewRunResult("ci")
	r.Add(&InstanceResult{ID: "b", Succeeded: true})
	r.Add(&InstanceResult{ID: "a", Succeeded: true})
	r.Add(&InstanceResult{ID: "c", Succeeded: true})

	got := r.Instances()
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestRunResultInstanceLookup(t *testing.T) {
	r := NewRunResult("ci")
	r.Add(&InstanceResult{ID: "a", Succeeded: true})
	assert.NotNil(t, r.Instance("a"))
	assert.Nil(t, r.Instance("missing"))
}

func TestSummaryNamesFailingStep(t *testing.T) {
	r := NewRunResult("ci")
	r.Add(&InstanceResult{ID: "lint", Succeeded: true})
	r.Add(&InstanceResult{
		ID:         "test[os=ubuntu-latest]",
		Cause:      CauseStepFailure,
		FailedStep: "cargo test",
		Err:        errors.New("exit status 101"),
		Steps: []StepResult{
			{Step: "cargo build", Succeeded: true, Output: "compiled fine"},
			{Step: "cargo test", Output: "test oom_guard ... FAILED\n"},
		},
	})

	summary := r.Summary()
	assert.Contains(t, summary, "✔ lint")
	assert.Contains(t, summary, "✘ test[os=ubuntu-latest] (step failure) at step \"cargo test\"")
	assert.Contains(t, summary, "    test oom_guard ... FAILED")
	// Output of succeeding steps stays out of the summary.
	assert.NotContains(t, summary, "compiled fine")
}

func TestCauseString(t *testing.T) {
	tests := map[Cause]string{
		CauseNone:         "none",
		CauseStepFailure:  "step failure",
		CauseProvisioning: "provisioning error",
		CauseTimeout:      "timeout",
		CauseAborted:      "aborted",
		CauseDependency:   "dependency failed",
		Cause(42):         "unknown",
	}
	for cause, want := range tests {
		assert.Equal(t, want, cause.String())
	}
}
