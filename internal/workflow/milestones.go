package workflow

import (
	"sort"
	"time"

	"tally/internal/stages"
	"tally/internal/store"
)

// MilestoneOp is one set-or-clear operation against a named milestone.
type MilestoneOp struct {
	Set   bool
	Stamp store.Stamp // zero when clearing
}

// MilestoneDelta maps milestone names to the operation a transition performs
// on them. Milestones absent from the delta are untouched.
type MilestoneDelta map[stages.Milestone]MilestoneOp

// ResolveMilestones computes the milestone operations for a stage change.
//
// The target stage's milestone (if any) is set with now and the acting user.
// When the movement is backward, every milestone for a stage strictly after
// the target and up to and including the origin is cleared; the set for the
// target stage itself wins over any clear. Forward movement never clears, so
// re-entering a stage simply re-stamps its milestone. Milestones are cleared
// on undo and never restored; history rows carry the permanent record.
func ResolveMilestones(family stages.Family, from, to stages.Stage, actor store.User, now time.Time) MilestoneDelta {
	delta := MilestoneDelta{}

	if milestone, ok := stages.MilestoneFor(family, to); ok {
		delta[milestone] = MilestoneOp{
			Set: true,
			Stamp: store.Stamp{
				At:     now,
				ByID:   actor.ID,
				ByName: actor.Name,
			},
		}
	}

	if from == "" {
		return delta
	}

	fromIdx, fromOK := stages.OrderIndex(family, from)
	toIdx, toOK := stages.OrderIndex(family, to)
	if !fromOK || !toOK || toIdx >= fromIdx {
		return delta
	}

	// Backward movement: clear milestones for stages in (to, from].
	for _, stage := range stages.Ordered(family) {
		idx, _ := stages.OrderIndex(family, stage)
		if idx <= toIdx || idx > fromIdx {
			continue
		}
		milestone, ok := stages.MilestoneFor(family, stage)
		if !ok {
			continue
		}
		if op, exists := delta[milestone]; exists && op.Set {
			continue
		}
		delta[milestone] = MilestoneOp{}
	}

	return delta
}

// Apply mutates a milestone map according to the delta and returns the names
// touched, in stable order.
func (d MilestoneDelta) Apply(milestones store.Milestones) []stages.Milestone {
	touched := make([]stages.Milestone, 0, len(d))
	for name, op := range d {
		if op.Set {
			milestones[name] = op.Stamp
		} else {
			delete(milestones, name)
		}
		touched = append(touched, name)
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })
	return touched
}
