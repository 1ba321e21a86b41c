// Package hcl implements the engine's native pipeline definition loader.
// It parses .hcl definition files with hclparse/gohcl, translates the
// decoded schema structs into the format-agnostic config model, and
// validates the result before returning it.
package hcl
