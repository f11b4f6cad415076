package notifications

import (
	"time"

	"tally/internal/stages"
	"tally/internal/store"
)

// AssignmentDelta describes an assignee change carried by a transition.
// Empty ids mean unassigned on that side.
type AssignmentDelta struct {
	OldID   string
	OldName string
	NewID   string
	NewName string
}

// Envelope is the ephemeral summary of one transition, produced by the
// workflow engine and consumed once by the recipient resolver.
type Envelope struct {
	PeriodID    string
	PeriodLabel string
	ClientID    string
	ClientName  string
	Family      stages.Family
	FromStage   stages.Stage // equals ToStage for assignment-only changes
	ToStage     stages.Stage
	Actor       store.User
	// AssigneeID is the period's assignee after the transition.
	AssigneeID string
	// Assignment is nil when the transition did not change the assignee.
	Assignment *AssignmentDelta
	Note       string
	At         time.Time
}

// StageChanged reports whether the envelope carries a stage change.
func (e *Envelope) StageChanged() bool {
	return e.FromStage != "" && e.FromStage != e.ToStage
}
