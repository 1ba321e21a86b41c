package config

import "context"

// Loader is the interface for a format-specific definition loader.
type Loader interface {
	// Load reads a pipeline definition from the given path, translates it
	// into the format-agnostic model, and validates it. Implementations
	// return *MalformedDefinitionError for unparsable documents and
	// *InvalidJobSpecError for semantic violations; in either case no
	// partial model is returned.
	Load(ctx context.Context, path string) (*Pipeline, error)
}
