// Package workflow implements the filing stage engine.
//
// A transition is one synchronous unit of work: validate the request, compute
// milestone set/clear operations from the stage catalog, resolve the assignee
// (explicit or role-based), enforce the single-active-assignment rule across
// a client's sibling periods, persist the updated period plus an audit history
// row, and hand a notification envelope to the dispatcher.
//
// Undo semantics: moving backward clears every milestone between the new
// stage (exclusive) and the old stage (inclusive) so a reopened period shows
// no stale completion evidence. History rows are never touched; they remain
// the permanent record of what happened and when. Cleared milestones are not
// restored on a later re-advance; they are re-stamped as the stages are
// reached again.
//
// The acting user and clock are explicit inputs on every call so milestone
// timestamps and audit attribution stay deterministic under test.
package workflow
