package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/logging"
	"tally/internal/notifications"
	"tally/internal/stages"
	"tally/internal/store"
)

// Store is the persistence surface the engine consumes. *store.Store
// satisfies it; tests may substitute their own.
type Store interface {
	GetPeriod(ctx context.Context, id string) (*store.Period, error)
	GetClient(ctx context.Context, id string) (*store.Client, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	LatestHistory(ctx context.Context, periodID string) (*store.HistoryEntry, error)
	UpdatePeriod(ctx context.Context, period *store.Period) error
	AppendHistory(ctx context.Context, entry *store.HistoryEntry) error
	UnassignFuturePeriods(ctx context.Context, clientID string, family stages.Family, after time.Time, excludeID string) (int64, error)
	ActiveUsersByRole(ctx context.Context, roles ...store.Role) ([]*store.User, error)
}

// Notifier receives envelopes for asynchronous delivery. Enqueue must never
// block; the transition result is returned regardless of delivery.
type Notifier interface {
	Enqueue(env *notifications.Envelope)
}

// Request describes one transition. Stage is optional (empty means keep the
// current stage). AssigneeSet distinguishes "not provided" from an explicit
// unassign: when true, AssigneeID is used verbatim, empty included. Now is
// the transition timestamp; the zero value means the current time.
type Request struct {
	PeriodID    string
	Stage       stages.Stage
	AssigneeID  string
	AssigneeSet bool
	Note        string
	Actor       store.User
	Now         time.Time
}

// Result summarizes an applied transition.
type Result struct {
	Period            *store.Period
	History           *store.HistoryEntry // nil when the stage did not change
	MilestonesTouched []stages.Milestone
	FuturesUnassigned int64
	Envelope          *notifications.Envelope // nil when nothing changed
}

// Engine orchestrates stage transitions against the store.
type Engine struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

// NewEngine builds a transition engine. notifier may be nil when notification
// fan-out is not wanted (tests, offline admin commands).
func NewEngine(st Store, notifier Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		store:    st,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow-engine"),
	}
}

// Transition validates and applies one transition request as a single unit of
// work. All validation happens before any write; either the full transition
// persists or nothing does.
func (e *Engine) Transition(ctx context.Context, req Request) (*Result, error) {
	if req.Stage == "" && !req.AssigneeSet {
		return nil, Wrap(ErrNoOpRequest, "transition", "request carries neither a stage nor an assignee change", nil)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	period, err := e.store.GetPeriod(ctx, req.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("load period: %w", err)
	}
	if period == nil {
		return nil, Wrap(ErrPeriodNotFound, "transition", req.PeriodID, nil)
	}

	effective := period.Stage
	if req.Stage != "" {
		stage, ok := stages.ParseStage(period.Family, string(req.Stage))
		if !ok {
			return nil, Wrap(ErrInvalidStage, "transition",
				fmt.Sprintf("%q is not a stage of the %s family", req.Stage, period.Family), nil)
		}
		effective = stage
	}

	// A completed period only leaves the terminal stage via an explicit
	// reopen to a different stage.
	if period.Completed && stages.IsTerminal(period.Family, effective) {
		return nil, Wrap(ErrAlreadyCompleted, "transition", req.PeriodID, nil)
	}

	stageChanged := effective != period.Stage

	previousAssignee := period.AssigneeID
	newAssignee := previousAssignee
	if req.AssigneeSet {
		newAssignee = req.AssigneeID
	} else {
		roster, err := e.loadRoster(ctx)
		if err != nil {
			return nil, err
		}
		newAssignee = ResolveAssignee(period.Family, effective, previousAssignee, roster)
	}
	assigneeChanged := newAssignee != previousAssignee

	var entry *store.HistoryEntry
	if stageChanged {
		latest, err := e.store.LatestHistory(ctx, period.ID)
		if err != nil {
			return nil, fmt.Errorf("load latest history: %w", err)
		}
		var days *int
		if latest != nil {
			d := int(now.Sub(latest.At).Hours() / 24)
			if d < 0 {
				d = 0
			}
			days = &d
		}
		entry = &store.HistoryEntry{
			PeriodID:            period.ID,
			FromStage:           period.Stage,
			ToStage:             effective,
			At:                  now,
			DaysInPreviousStage: days,
			ActorID:             req.Actor.ID,
			ActorName:           req.Actor.Name,
			ActorEmail:          req.Actor.Email,
			ActorRole:           req.Actor.Role,
			Note:                req.Note,
		}
	}

	// Remaining reads happen before the first write so a failure leaves
	// nothing persisted.
	var env *notifications.Envelope
	if stageChanged || assigneeChanged {
		env, err = e.buildEnvelope(ctx, period, effective, newAssignee, previousAssignee, assigneeChanged, req, now)
		if err != nil {
			return nil, err
		}
	}

	var touched []stages.Milestone
	if stageChanged {
		delta := ResolveMilestones(period.Family, period.Stage, effective, req.Actor, now)
		if period.Milestones == nil {
			period.Milestones = store.Milestones{}
		}
		touched = delta.Apply(period.Milestones)
	}

	period.Stage = effective
	period.Completed = stages.IsTerminal(period.Family, effective)
	period.AssigneeID = newAssignee
	period.UpdatedAt = now

	if err := e.store.UpdatePeriod(ctx, period); err != nil {
		return nil, fmt.Errorf("persist period: %w", err)
	}
	if entry != nil {
		if err := e.store.AppendHistory(ctx, entry); err != nil {
			return nil, fmt.Errorf("persist history: %w", err)
		}
	}

	var swept int64
	if assigneeChanged {
		swept, err = e.store.UnassignFuturePeriods(ctx, period.ClientID, period.Family, period.PeriodEnd, period.ID)
		if err != nil {
			return nil, fmt.Errorf("unassign future periods: %w", err)
		}
	}

	if env != nil && e.notifier != nil {
		e.notifier.Enqueue(env)
	}

	e.logger.Info("transition applied",
		logging.String(logging.FieldPeriodID, period.ID),
		logging.String(logging.FieldClientID, period.ClientID),
		logging.String(logging.FieldFamily, string(period.Family)),
		logging.String(logging.FieldStage, string(period.Stage)),
		logging.String(logging.FieldActor, req.Actor.ID),
		logging.Bool("stage_changed", stageChanged),
		logging.Bool("assignee_changed", assigneeChanged),
		logging.Int("milestones_touched", len(touched)),
		logging.Int64("futures_unassigned", swept),
	)

	return &Result{
		Period:            period,
		History:           entry,
		MilestonesTouched: touched,
		FuturesUnassigned: swept,
		Envelope:          env,
	}, nil
}

func (e *Engine) loadRoster(ctx context.Context) (Roster, error) {
	roster := Roster{}
	for _, role := range store.AllRoles() {
		users, err := e.store.ActiveUsersByRole(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("load roster for role %s: %w", role, err)
		}
		roster[role] = users
	}
	return roster, nil
}

func (e *Engine) buildEnvelope(ctx context.Context, period *store.Period, effective stages.Stage, newAssignee, previousAssignee string, assigneeChanged bool, req Request, now time.Time) (*notifications.Envelope, error) {
	client, err := e.store.GetClient(ctx, period.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	env := &notifications.Envelope{
		PeriodID:    period.ID,
		PeriodLabel: period.Label(),
		ClientID:    period.ClientID,
		Family:      period.Family,
		FromStage:   period.Stage,
		ToStage:     effective,
		Actor:       req.Actor,
		AssigneeID:  newAssignee,
		Note:        req.Note,
		At:          now,
	}
	if client != nil {
		env.ClientName = client.Name
	}

	if assigneeChanged {
		oldName, err := e.userName(ctx, previousAssignee)
		if err != nil {
			return nil, err
		}
		newName, err := e.userName(ctx, newAssignee)
		if err != nil {
			return nil, err
		}
		env.Assignment = &notifications.AssignmentDelta{
			OldID:   previousAssignee,
			OldName: oldName,
			NewID:   newAssignee,
			NewName: newName,
		}
	}

	return env, nil
}

func (e *Engine) userName(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	user, err := e.store.GetUser(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", id, err)
	}
	if user == nil {
		return "", nil
	}
	return user.Name, nil
}
