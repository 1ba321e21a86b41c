// Package cli parses command-line arguments into an app.Config and maps
// run outcomes onto process exit codes.
package cli
