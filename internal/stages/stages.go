package stages

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Family selects one of the two workflow orderings.
type Family string

const (
	FamilyQuarterly Family = "quarterly"
	FamilyAnnual    Family = "annual"
)

// Stage identifies one step of a filing workflow.
type Stage string

const (
	StagePaperworkPendingChase Stage = "paperwork_pending_chase"
	StagePaperworkChased       Stage = "paperwork_chased"
	StagePaperworkReceived     Stage = "paperwork_received"
	StageWorkInProgress        Stage = "work_in_progress"
	StageWorkFinished          Stage = "work_finished"
	StageInManagerReview       Stage = "in_manager_review"
	StageReviewedByManager     Stage = "reviewed_by_manager"
	StageInPartnerReview       Stage = "in_partner_review"
	StageReviewedByPartner     Stage = "reviewed_by_partner"
	StageSentToClient          Stage = "sent_to_client"
	StageApprovedByClient      Stage = "approved_by_client"
	StageFiled                 Stage = "filed"
)

// Milestone names a dated, attributed checkpoint on a period.
type Milestone string

const (
	MilestoneChaseStarted    Milestone = "chase_started"
	MilestoneRecordsReceived Milestone = "records_received"
	MilestoneWorkFinished    Milestone = "work_finished"
	MilestoneManagerReviewed Milestone = "manager_reviewed"
	MilestonePartnerReviewed Milestone = "partner_reviewed"
	MilestoneSentToClient    Milestone = "sent_to_client"
	MilestoneClientApproved  Milestone = "client_approved"
	MilestoneFiled           Milestone = "filed"
)

type definition struct {
	stage     Stage
	milestone Milestone // empty when the stage has no milestone
	chase     bool
}

var quarterlyOrder = []definition{
	{stage: StagePaperworkPendingChase, chase: true},
	{stage: StagePaperworkChased, milestone: MilestoneChaseStarted, chase: true},
	{stage: StagePaperworkReceived, milestone: MilestoneRecordsReceived},
	{stage: StageWorkInProgress},
	{stage: StageWorkFinished, milestone: MilestoneWorkFinished},
	{stage: StageInManagerReview},
	{stage: StageReviewedByManager, milestone: MilestoneManagerReviewed},
	{stage: StageSentToClient, milestone: MilestoneSentToClient},
	{stage: StageApprovedByClient, milestone: MilestoneClientApproved},
	{stage: StageFiled, milestone: MilestoneFiled},
}

var annualOrder = []definition{
	{stage: StagePaperworkPendingChase, chase: true},
	{stage: StagePaperworkChased, milestone: MilestoneChaseStarted, chase: true},
	{stage: StagePaperworkReceived, milestone: MilestoneRecordsReceived},
	{stage: StageWorkInProgress},
	{stage: StageWorkFinished, milestone: MilestoneWorkFinished},
	{stage: StageInManagerReview},
	{stage: StageReviewedByManager, milestone: MilestoneManagerReviewed},
	{stage: StageInPartnerReview},
	{stage: StageReviewedByPartner, milestone: MilestonePartnerReviewed},
	{stage: StageSentToClient, milestone: MilestoneSentToClient},
	{stage: StageApprovedByClient, milestone: MilestoneClientApproved},
	{stage: StageFiled, milestone: MilestoneFiled},
}

var orderings = map[Family][]definition{
	FamilyQuarterly: quarterlyOrder,
	FamilyAnnual:    annualOrder,
}

var allFamilies = []Family{FamilyQuarterly, FamilyAnnual}

// Families returns the known workflow families in catalog order.
func Families() []Family {
	cp := make([]Family, len(allFamilies))
	copy(cp, allFamilies)
	return cp
}

// ParseFamily converts a string into a known Family.
func ParseFamily(value string) (Family, bool) {
	normalized := Family(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := orderings[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// Ordered returns the full stage ordering for a family.
func Ordered(family Family) []Stage {
	defs := orderings[family]
	out := make([]Stage, len(defs))
	for i, def := range defs {
		out[i] = def.stage
	}
	return out
}

// ParseStage converts a string into a stage known to the family.
func ParseStage(family Family, value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	if _, ok := OrderIndex(family, normalized); !ok {
		return "", false
	}
	return normalized, true
}

// OrderIndex returns a stage's position within its family's ordering. The
// second return is false when the stage is unknown to the family.
func OrderIndex(family Family, stage Stage) (int, bool) {
	for i, def := range orderings[family] {
		if def.stage == stage {
			return i, true
		}
	}
	return 0, false
}

// MilestoneFor returns the milestone associated with a stage, if any.
func MilestoneFor(family Family, stage Stage) (Milestone, bool) {
	for _, def := range orderings[family] {
		if def.stage == stage {
			if def.milestone == "" {
				return "", false
			}
			return def.milestone, true
		}
	}
	return "", false
}

// Initial returns the first stage of a family's ordering.
func Initial(family Family) Stage {
	defs := orderings[family]
	if len(defs) == 0 {
		return ""
	}
	return defs[0].stage
}

// Terminal returns the final stage of a family's ordering.
func Terminal(family Family) Stage {
	defs := orderings[family]
	if len(defs) == 0 {
		return ""
	}
	return defs[len(defs)-1].stage
}

// IsTerminal reports whether a stage completes the family's workflow.
func IsTerminal(family Family, stage Stage) bool {
	return stage != "" && stage == Terminal(family)
}

// IsChase reports whether a stage concerns outstanding-paperwork follow-up.
func IsChase(family Family, stage Stage) bool {
	for _, def := range orderings[family] {
		if def.stage == stage {
			return def.chase
		}
	}
	return false
}

// Milestones returns the family's milestones in stage order.
func Milestones(family Family) []Milestone {
	var out []Milestone
	for _, def := range orderings[family] {
		if def.milestone != "" {
			out = append(out, def.milestone)
		}
	}
	return out
}

var labelCaser = cases.Title(language.BritishEnglish)

// Label renders a stage identifier for human-facing output.
func (s Stage) Label() string {
	return labelCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// Label renders a milestone identifier for human-facing output.
func (m Milestone) Label() string {
	return labelCaser.String(strings.ReplaceAll(string(m), "_", " "))
}

// Label renders a family identifier for human-facing output.
func (f Family) Label() string {
	return labelCaser.String(string(f))
}
