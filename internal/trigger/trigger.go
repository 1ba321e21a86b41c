// Package trigger decides whether an incoming event should start a
// pipeline run by matching it against the pipeline's declared trigger
// conditions. Evaluation is pure: no side effects, no I/O.
package trigger

import (
	"path"
	"strings"

	"github.com/vk/gridci/internal/config"
)

// Event is the descriptor of an incoming external event.
type Event struct {
	// Kind is the event kind, e.g. "push".
	Kind string
	// Ref is the git ref the event carries, e.g. "refs/heads/main".
	Ref string
}

// knownEvents is the set of event kinds the engine understands. A pipeline
// declaring anything else is rejected at evaluation time.
var knownEvents = map[string]bool{
	"push":              true,
	"pull_request":      true,
	"workflow_dispatch": true,
}

// Evaluate reports whether the event matches any of the pipeline's
// declared triggers. It returns *config.InvalidTriggerSpecError when the
// definition declares an event kind the engine does not recognize; the
// whole definition is checked before any match is reported, so a bad
// trigger aborts the run even if an earlier trigger would have matched.
func Evaluate(p *config.Pipeline, ev Event) (bool, error) {
	for _, t := range p.Triggers {
		if !knownEvents[t.Event] {
			return false, &config.InvalidTriggerSpecError{Event: t.Event}
		}
	}
	for _, t := range p.Triggers {
		if t.Event != ev.Kind {
			continue
		}
		if matchesBranches(t.Branches, ev.Ref) {
			return true, nil
		}
	}
	return false, nil
}

// matchesBranches reports whether the ref's branch name matches one of the
// patterns. An empty pattern list matches any ref.
func matchesBranches(patterns []string, ref string) bool {
	if len(patterns) == 0 {
		return true
	}
	branch := strings.TrimPrefix(ref, "refs/heads/")
	for _, pattern := range patterns {
		// path.Match covers the single glob form the definition language
		// allows, e.g. "release/*".
		if ok, err := path.Match(pattern, branch); err == nil && ok {
			return true
		}
	}
	return false
}
