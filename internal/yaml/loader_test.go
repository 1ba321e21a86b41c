package yaml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridci/internal/config"
)

const fullDefinition = `
name: ci
on:
  push:
    branches: [main]
env:
  CARGO_TERM_VERBOSE: "true"
jobs:
  test:
    runs-on: [ubuntu-latest, macos-latest]
    timeout: 10m
    matrix:
      rust: [stable, beta]
      feature: [default]
    steps:
      - name: toolchain
        setup: toolchain
        with:
          profile: minimal
          toolchain: stable
          components: [clippy]
      - name: build
        run: cargo build --verbose
        timeout: 5m
  lint:
    runs-on: ubuntu-latest
    needs: test
    steps:
      - run: cargo fmt --all -- --check
`

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullDefinition(t *testing.T) {
	path := writeDefinition(t, fullDefinition)

	p, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "ci", p.Name)
	require.Len(t, p.Triggers, 1)
	assert.Equal(t, "push", p.Triggers[0].Event)
	assert.Equal(t, []string{"main"}, p.Triggers[0].Branches)
	assert.Equal(t, map[string]string{"CARGO_TERM_VERBOSE": "true"}, p.Env)

	require.Len(t, p.Jobs, 2)

	test := p.Jobs[0]
	assert.Equal(t, "test", test.Name)
	assert.Equal(t, []string{"ubuntu-latest", "macos-latest"}, test.RunsOn)
	assert.Equal(t, 10*time.Minute, test.Timeout)
	require.Len(t, test.Matrix, 2)
	assert.Equal(t, config.Axis{Name: "rust", Values: []string{"stable", "beta"}}, test.Matrix[0])
	assert.Equal(t, config.Axis{Name: "feature", Values: []string{"default"}}, test.Matrix[1])

	require.Len(t, test.Steps, 2)
	setup := test.Steps[0]
	require.NotNil(t, setup.Setup)
	assert.Equal(t, "toolchain", setup.Setup.Action)
	assert.Equal(t, "minimal", setup.Setup.Options["profile"])
	assert.Equal(t, []string{"clippy"}, setup.Setup.Options["components"])
	assert.Equal(t, 5*time.Minute, test.Steps[1].Timeout)

	// Scalar shorthand expands to one-element lists.
	lint := p.Jobs[1]
	assert.Equal(t, []string{"ubuntu-latest"}, lint.RunsOn)
	assert.Equal(t, []string{"test"}, lint.Needs)
}

func TestLoadTriggerShorthand(t *testing.T) {
	path := writeDefinition(t, `
name: ci
on: [push, pull_request]
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - run: "true"
`)

	p, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, p.Triggers, 2)
	assert.Equal(t, "push", p.Triggers[0].Event)
	assert.Equal(t, "pull_request", p.Triggers[1].Event)
	assert.Empty(t, p.Triggers[0].Branches)
}

func TestLoadMalformedDocument(t *testing.T) {
	path := writeDefinition(t, "name: [unclosed")

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)

	var malformed *config.MalformedDefinitionError
	assert.ErrorAs(t, err, &malformed)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		job     string
	}{
		{
			name: "pipeline level",
			content: `
name: ci
concurrency: 4
jobs: {}
`,
		},
		{
			name: "job level",
			content: `
name: ci
jobs:
  test:
    runs-on: ubuntu-latest
    container: alpine
    steps:
      - run: "true"
`,
			job: "test",
		},
		{
			name: "step level",
			content: `
name: ci
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
`,
			job: "test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Load(context.Background(), writeDefinition(t, tt.content))
			require.Error(t, err)

			var invalid *config.InvalidJobSpecError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.job, invalid.Job)
			assert.Contains(t, invalid.Reason, "unknown")
		})
	}
}

func TestLoadRejectsWithWithoutSetup(t *testing.T) {
	path := writeDefinition(t, `
name: ci
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - run: "true"
        with:
          profile: minimal
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)

	var invalid *config.InvalidJobSpecError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "no setup action")
}

func TestRoundTrip(t *testing.T) {
	original, err := Parse([]byte(fullDefinition))
	require.NoError(t, err)
	require.NoError(t, config.Validate(original))

	encoded, err := Encode(original)
	require.NoError(t, err)

	reparsed, err := Parse(encoded)
	require.NoError(t, err)

	// Scalar shorthands normalize to lists on the first parse, so the
	// second pass reproduces the model exactly.
	assert.Equal(t, original, reparsed)
}

func TestRoundTripFailFast(t *testing.T) {
	p := &config.Pipeline{
		Name:     "ci",
		FailFast: true,
		Jobs: []*config.Job{{
			Name:   "test",
			RunsOn: []string{"ubuntu-latest"},
			Steps:  []*config.Step{{Run: "true"}},
		}},
	}

	encoded, err := Encode(p)
	require.NoError(t, err)

	reparsed, err := Parse(encoded)
	require.NoError(t, err)
	assert.True(t, reparsed.FailFast)
	assert.Equal(t, p, reparsed)
}
