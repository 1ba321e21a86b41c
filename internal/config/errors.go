package config

import "fmt"

// MalformedDefinitionError reports a definition document that could not be
// parsed at all. Nothing executes when loading fails this way.
type MalformedDefinitionError struct {
	// Path is the file the parser choked on.
	Path string
	Err  error
}

func (e *MalformedDefinitionError) Error() string {
	return fmt.Sprintf("malformed pipeline definition %s: %v", e.Path, e.Err)
}

func (e *MalformedDefinitionError) Unwrap() error { return e.Err }

// InvalidJobSpecError reports a definition that parsed but violates a
// semantic rule: an empty step list, an unknown setup option, a bad matrix
// axis, and so on. Nothing executes when validation fails.
type InvalidJobSpecError struct {
	// Job names the offending job, or is empty for pipeline-level violations.
	Job    string
	Reason string
}

func (e *InvalidJobSpecError) Error() string {
	if e.Job == "" {
		return fmt.Sprintf("invalid pipeline definition: %s", e.Reason)
	}
	return fmt.Sprintf("invalid job %q: %s", e.Job, e.Reason)
}

// InvalidTriggerSpecError reports a declared trigger with an event kind the
// engine does not recognize.
type InvalidTriggerSpecError struct {
	Event string
}

func (e *InvalidTriggerSpecError) Error() string {
	return fmt.Sprintf("invalid trigger: unrecognized event kind %q", e.Event)
}
