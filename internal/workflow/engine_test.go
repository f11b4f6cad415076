package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/logging"
	"tally/internal/notifications"
	"tally/internal/stages"
	"tally/internal/store"
	"tally/internal/testsupport"
	"tally/internal/workflow"
)

type captureNotifier struct {
	envelopes []*notifications.Envelope
}

func (c *captureNotifier) Enqueue(env *notifications.Envelope) {
	c.envelopes = append(c.envelopes, env)
}

type engineFixture struct {
	store    *store.Store
	team     testsupport.Team
	client   *store.Client
	period   *store.Period
	engine   *workflow.Engine
	notifier *captureNotifier
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	team := testsupport.SeedTeam(t, st)
	client := testsupport.SeedClient(t, st, "Acme Ltd", "ACME", team.Manager.ID, []string{team.Preparer.ID})
	period := testsupport.SeedQuarter(t, st, client.ID, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))

	notifier := &captureNotifier{}
	engine := workflow.NewEngine(st, notifier, logging.NewNop())
	return &engineFixture{store: st, team: team, client: client, period: period, engine: engine, notifier: notifier}
}

func (f *engineFixture) actor() store.User {
	return *f.team.Preparer
}

func (f *engineFixture) transition(t *testing.T, req workflow.Request) *workflow.Result {
	t.Helper()

	if req.PeriodID == "" {
		req.PeriodID = f.period.ID
	}
	if req.Actor.ID == "" {
		req.Actor = f.actor()
	}
	res, err := f.engine.Transition(context.Background(), req)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	return res
}

// advanceTo walks the period forward one stage at a time with explicit
// assignees so roster auto-assignment doesn't interfere.
func (f *engineFixture) advanceTo(t *testing.T, target stages.Stage, at time.Time) {
	t.Helper()

	for {
		period, err := f.store.GetPeriod(context.Background(), f.period.ID)
		if err != nil {
			t.Fatalf("GetPeriod: %v", err)
		}
		if period.Stage == target {
			return
		}
		idx, _ := stages.OrderIndex(period.Family, period.Stage)
		next := stages.Ordered(period.Family)[idx+1]
		f.transition(t, workflow.Request{
			Stage:       next,
			AssigneeID:  f.team.Preparer.ID,
			AssigneeSet: true,
			Now:         at,
		})
	}
}

func TestTransitionRejectsEmptyRequest(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Transition(context.Background(), workflow.Request{
		PeriodID: f.period.ID,
		Actor:    f.actor(),
	})
	if !errors.Is(err, workflow.ErrNoOpRequest) {
		t.Fatalf("expected ErrNoOpRequest, got %v", err)
	}
	if !workflow.IsCallerError(err) {
		t.Fatal("no-op request should classify as a caller error")
	}
}

func TestTransitionUnknownPeriod(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Transition(context.Background(), workflow.Request{
		PeriodID: "missing",
		Stage:    stages.StagePaperworkChased,
		Actor:    f.actor(),
	})
	if !errors.Is(err, workflow.ErrPeriodNotFound) {
		t.Fatalf("expected ErrPeriodNotFound, got %v", err)
	}
}

func TestTransitionRejectsStageOutsideFamily(t *testing.T) {
	f := newEngineFixture(t)

	// Partner review exists only in the annual ordering.
	_, err := f.engine.Transition(context.Background(), workflow.Request{
		PeriodID: f.period.ID,
		Stage:    stages.StageInPartnerReview,
		Actor:    f.actor(),
	})
	if !errors.Is(err, workflow.ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
}

func TestChaseTransitionSetsMilestoneAndAutoAssigns(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Date(2026, 7, 6, 9, 30, 0, 0, time.UTC)

	res := f.transition(t, workflow.Request{
		Stage: stages.StagePaperworkChased,
		Now:   now,
	})

	stamp, ok := res.Period.Milestones[stages.MilestoneChaseStarted]
	if !ok {
		t.Fatal("chase_started milestone should be set")
	}
	if !stamp.At.Equal(now) || stamp.ByID != f.team.Preparer.ID {
		t.Fatalf("unexpected stamp %#v", stamp)
	}
	// No explicit assignee: chase stages route to the first active senior.
	if res.Period.AssigneeID != f.team.Senior.ID {
		t.Fatalf("expected senior auto-assigned, got %q", res.Period.AssigneeID)
	}
	if res.History == nil {
		t.Fatal("expected history entry")
	}
	if res.History.FromStage != stages.StagePaperworkPendingChase || res.History.ToStage != stages.StagePaperworkChased {
		t.Fatalf("unexpected history stages %s -> %s", res.History.FromStage, res.History.ToStage)
	}
	if res.History.DaysInPreviousStage != nil {
		t.Fatalf("first entry should have nil elapsed days, got %v", *res.History.DaysInPreviousStage)
	}
	if len(f.notifier.envelopes) != 1 {
		t.Fatalf("expected one envelope, got %d", len(f.notifier.envelopes))
	}
}

func TestElapsedDaysComputedFromPriorEntry(t *testing.T) {
	f := newEngineFixture(t)
	first := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 5)

	f.transition(t, workflow.Request{Stage: stages.StagePaperworkChased, Now: first})
	res := f.transition(t, workflow.Request{Stage: stages.StagePaperworkReceived, Now: second})

	if res.History == nil || res.History.DaysInPreviousStage == nil {
		t.Fatal("expected elapsed days on second entry")
	}
	if *res.History.DaysInPreviousStage != 5 {
		t.Fatalf("expected 5 days, got %d", *res.History.DaysInPreviousStage)
	}
}

func TestCompletedFlagTracksTerminalStage(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	f.advanceTo(t, stages.StageFiled, now)

	period, err := f.store.GetPeriod(context.Background(), f.period.ID)
	if err != nil {
		t.Fatalf("GetPeriod: %v", err)
	}
	if !period.Completed {
		t.Fatal("period at filed should be completed")
	}
	if _, ok := period.Milestones[stages.MilestoneFiled]; !ok {
		t.Fatal("filed milestone should be set")
	}
}

func TestAlreadyCompletedRejectsTerminalRestamp(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.advanceTo(t, stages.StageFiled, now)

	_, err := f.engine.Transition(context.Background(), workflow.Request{
		PeriodID: f.period.ID,
		Stage:    stages.StageFiled,
		Actor:    f.actor(),
		Now:      now.AddDate(0, 0, 1),
	})
	if !errors.Is(err, workflow.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	// An assignment-only request on a completed period is rejected too: the
	// effective stage is still terminal.
	_, err = f.engine.Transition(context.Background(), workflow.Request{
		PeriodID:    f.period.ID,
		AssigneeID:  f.team.Manager.ID,
		AssigneeSet: true,
		Actor:       f.actor(),
		Now:         now.AddDate(0, 0, 1),
	})
	if !errors.Is(err, workflow.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted for assignment-only request, got %v", err)
	}
}

func TestReopenClearsMilestonesButKeepsHistory(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.advanceTo(t, stages.StageFiled, now)

	historyBefore, err := f.store.History(context.Background(), f.period.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	res := f.transition(t, workflow.Request{
		Stage: stages.StageWorkInProgress,
		Now:   now.AddDate(0, 0, 2),
	})

	if res.Period.Completed {
		t.Fatal("reopened period must not be completed")
	}
	for _, name := range []stages.Milestone{
		stages.MilestoneWorkFinished,
		stages.MilestoneManagerReviewed,
		stages.MilestoneSentToClient,
		stages.MilestoneClientApproved,
		stages.MilestoneFiled,
	} {
		if _, ok := res.Period.Milestones[name]; ok {
			t.Fatalf("milestone %s should be cleared on reopen", name)
		}
	}
	for _, name := range []stages.Milestone{stages.MilestoneChaseStarted, stages.MilestoneRecordsReceived} {
		if _, ok := res.Period.Milestones[name]; !ok {
			t.Fatalf("milestone %s before the reopen target must be untouched", name)
		}
	}

	historyAfter, err := f.store.History(context.Background(), f.period.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(historyAfter) != len(historyBefore)+1 {
		t.Fatalf("reopen should append one history row, before=%d after=%d", len(historyBefore), len(historyAfter))
	}
}

func TestReopenThenRefileRestampsTerminalMilestoneOnly(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.advanceTo(t, stages.StageFiled, now)

	reopenAt := now.AddDate(0, 0, 2)
	f.transition(t, workflow.Request{Stage: stages.StageWorkInProgress, Now: reopenAt})

	refileAt := reopenAt.AddDate(0, 0, 3)
	res := f.transition(t, workflow.Request{Stage: stages.StageFiled, Now: refileAt})

	stamp, ok := res.Period.Milestones[stages.MilestoneFiled]
	if !ok || !stamp.At.Equal(refileAt) {
		t.Fatalf("filed milestone should carry the fresh timestamp, got %#v", stamp)
	}
	// Intermediate milestones cleared on reopen are not restored by the
	// direct jump back to filed.
	if _, ok := res.Period.Milestones[stages.MilestoneWorkFinished]; ok {
		t.Fatal("work_finished must stay cleared after the direct re-file")
	}
	if !res.Period.Completed {
		t.Fatal("re-filed period should be completed")
	}
}

func TestAssignmentOnlyChangeSkipsHistory(t *testing.T) {
	f := newEngineFixture(t)

	res := f.transition(t, workflow.Request{
		AssigneeID:  f.team.Manager.ID,
		AssigneeSet: true,
		Now:         time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC),
	})

	if res.History != nil {
		t.Fatal("assignment-only change must not write history")
	}
	if len(res.MilestonesTouched) != 0 {
		t.Fatalf("assignment-only change must not touch milestones, got %v", res.MilestonesTouched)
	}
	if res.Period.AssigneeID != f.team.Manager.ID {
		t.Fatalf("expected assignee updated, got %q", res.Period.AssigneeID)
	}
	if len(f.notifier.envelopes) != 1 {
		t.Fatalf("expected one envelope for the assignment change, got %d", len(f.notifier.envelopes))
	}
	env := f.notifier.envelopes[0]
	if env.Assignment == nil || env.Assignment.NewID != f.team.Manager.ID {
		t.Fatalf("unexpected assignment delta %#v", env.Assignment)
	}
}

func TestExplicitUnassignBypassesResolver(t *testing.T) {
	f := newEngineFixture(t)
	f.transition(t, workflow.Request{
		AssigneeID:  f.team.Manager.ID,
		AssigneeSet: true,
	})

	res := f.transition(t, workflow.Request{
		Stage:       stages.StagePaperworkChased,
		AssigneeID:  "",
		AssigneeSet: true,
	})

	if res.Period.AssigneeID != "" {
		t.Fatalf("explicit unassign must be respected, got %q", res.Period.AssigneeID)
	}
}

func TestAssigneeChangeSweepsFutureSiblings(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	future := testsupport.SeedQuarter(t, f.store, f.client.ID, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC))
	future.AssigneeID = f.team.Senior.ID
	future.UpdatedAt = time.Now().UTC()
	if err := f.store.UpdatePeriod(ctx, future); err != nil {
		t.Fatalf("UpdatePeriod: %v", err)
	}

	// A past sibling must be left alone by the sweep.
	past := testsupport.SeedQuarter(t, f.store, f.client.ID, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	past.AssigneeID = f.team.Senior.ID
	past.UpdatedAt = time.Now().UTC()
	if err := f.store.UpdatePeriod(ctx, past); err != nil {
		t.Fatalf("UpdatePeriod: %v", err)
	}

	res := f.transition(t, workflow.Request{
		AssigneeID:  f.team.Preparer.ID,
		AssigneeSet: true,
	})
	if res.FuturesUnassigned != 1 {
		t.Fatalf("expected one future sibling swept, got %d", res.FuturesUnassigned)
	}

	swept, err := f.store.GetPeriod(ctx, future.ID)
	if err != nil {
		t.Fatalf("GetPeriod: %v", err)
	}
	if swept.AssigneeID != "" {
		t.Fatalf("future sibling should be unassigned, got %q", swept.AssigneeID)
	}
	untouched, err := f.store.GetPeriod(ctx, past.ID)
	if err != nil {
		t.Fatalf("GetPeriod: %v", err)
	}
	if untouched.AssigneeID != f.team.Senior.ID {
		t.Fatalf("past sibling must keep its assignee, got %q", untouched.AssigneeID)
	}
}

func TestSameStageExplicitSameAssigneeIsQuiet(t *testing.T) {
	f := newEngineFixture(t)
	f.transition(t, workflow.Request{
		Stage:       stages.StagePaperworkChased,
		AssigneeID:  f.team.Preparer.ID,
		AssigneeSet: true,
	})
	f.notifier.envelopes = nil

	res := f.transition(t, workflow.Request{
		Stage:       stages.StagePaperworkChased,
		AssigneeID:  f.team.Preparer.ID,
		AssigneeSet: true,
	})

	if res.History != nil {
		t.Fatal("re-requesting the current stage must not write history")
	}
	if len(res.MilestonesTouched) != 0 {
		t.Fatalf("no milestones should be touched, got %v", res.MilestonesTouched)
	}
	if len(f.notifier.envelopes) != 0 {
		t.Fatalf("no envelope expected, got %d", len(f.notifier.envelopes))
	}
}
