// Package testutil provides the shared harness for integration-style
// tests that run the whole engine against a pipeline definition written to
// a temporary directory.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/gridci/internal/aggregate"
	"github.com/vk/gridci/internal/app"
	"github.com/vk/gridci/internal/trigger"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a harness run.
type HarnessResult struct {
	Result    *aggregate.RunResult
	App       *app.App
	Err       error
	LogOutput string
}

// RunPipelineTest writes one definition file into a temp directory, builds
// an app around it, and dispatches the event against it. Load and
// validation errors surface in Err with a nil App.
func RunPipelineTest(t *testing.T, filename, content string, ev trigger.Event) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, filename, content, ev)
}

// RunPipelineTestWithContext is RunPipelineTest with a caller-provided
// context, for cancellation tests.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, filename, content string, ev trigger.Event) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	logBuffer := &SafeBuffer{}
	appConfig := &app.Config{
		PipelinePath:  path,
		Event:         ev.Kind,
		Ref:           ev.Ref,
		WorkspaceRoot: t.TempDir(),
		LogFormat:     "text",
		LogLevel:      "debug",
		WorkerCount:   4,
	}

	engineApp, err := app.NewApp(logBuffer, appConfig, nil)
	if err != nil {
		return &HarnessResult{Err: err, LogOutput: logBuffer.String()}
	}

	result, err := engineApp.Run(ctx, ev)
	return &HarnessResult{
		Result:    result,
		App:       engineApp,
		Err:       err,
		LogOutput: logBuffer.String(),
	}
}
