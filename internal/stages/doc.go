// Package stages defines the static stage catalog for filing workflows.
//
// Each workflow family (quarterly tax filing, annual accounts) carries its own
// ordered list of stages. A stage may be tagged as chase-related and may map
// to at most one milestone. Order indices define what "forward" and "backward"
// mean for undo detection, and the last stage of each ordering is terminal.
//
// Everything here is pure data plus lookup functions; the catalog never
// touches storage. Treat this package as the single source of truth for stage
// semantics; when a family gains a stage, update the ordering here and the
// workflow engine picks it up without changes.
package stages
