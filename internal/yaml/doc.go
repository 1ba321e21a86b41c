// Package yaml implements the workflow-flavored YAML loader for pipeline
// definitions, plus the matching serializer. Documents are walked as
// yaml.Node trees rather than decoded into maps so that job, step, and
// matrix axis declaration order survives loading; expansion order must be
// reproducible across runs.
package yaml
