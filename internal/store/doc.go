// Package store persists clients, users, filing periods, and their transition
// history in SQLite.
//
// The Store manages database connections, schema initialization, busy-retry
// handling, and the set-based assignment sweep the workflow engine relies on.
// Period milestones are kept as a JSON column decoded into a typed map so the
// engine never manipulates raw field names.
//
// Periods are never physically deleted; history rows are append-only. Schema
// changes bump the version in schema.go.
package store
