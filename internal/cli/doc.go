// Package cli implements the marrow command-line interface: validate a
// CUE model, plan a YAML changeset's row identities, and apply a
// changeset to SQLite.
//
// Commands share the root options pattern: a RootOptions struct carries
// global flags, each command takes it by pointer, and output goes through
// OutputFormatter so --format json stays machine-clean while diagnostics
// go to stderr.
package cli
