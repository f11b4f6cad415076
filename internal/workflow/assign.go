package workflow

import (
	"tally/internal/stages"
	"tally/internal/store"
)

// Roster holds the active team members eligible for auto-assignment, keyed by
// role. Slices must be in the store's stable ordering (name, then id) so
// "first eligible" is deterministic.
type Roster map[store.Role][]*store.User

// ResolveAssignee computes the default assignee for a stage when the caller
// did not supply one explicitly.
//
// Chase stages route to the first active senior, preparation stages to the
// first active preparer, manager review to the first active manager, partner
// review to the first active senior. Client-facing and terminal stages keep
// the current assignee, falling back to the first active preparer when there
// is none. Every rule degrades to "keep current" when the roster has no
// eligible member; this function never fails.
func ResolveAssignee(family stages.Family, stage stages.Stage, currentID string, roster Roster) string {
	switch stage {
	case stages.StagePaperworkPendingChase, stages.StagePaperworkChased:
		return firstOr(roster[store.RoleSenior], currentID)
	case stages.StagePaperworkReceived, stages.StageWorkInProgress, stages.StageWorkFinished:
		return firstOr(roster[store.RolePreparer], currentID)
	case stages.StageInManagerReview, stages.StageReviewedByManager:
		return firstOr(roster[store.RoleManager], currentID)
	case stages.StageInPartnerReview, stages.StageReviewedByPartner:
		return firstOr(roster[store.RoleSenior], currentID)
	case stages.StageSentToClient, stages.StageApprovedByClient, stages.StageFiled:
		if currentID != "" {
			return currentID
		}
		return firstOr(roster[store.RolePreparer], currentID)
	default:
		return currentID
	}
}

func firstOr(users []*store.User, fallback string) string {
	if len(users) > 0 {
		return users[0].ID
	}
	return fallback
}
