// Package config defines the format-agnostic pipeline definition model for
// the engine, along with the Loader interface for producing it from a
// concrete on-disk format and the validation rules every definition must
// pass before anything executes.
//
// The config.Pipeline is the single source of truth for the trigger,
// matrix, and executor packages. Concrete Loader implementations, such as
// for HCL and YAML, are provided in separate packages.
package config
