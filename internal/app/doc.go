// Package app wires the engine together: it configures the logger, loads
// and validates the pipeline definition, and drives trigger evaluation,
// matrix expansion, execution, and aggregation for each run.
package app
