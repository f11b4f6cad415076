package notifications

import (
	"context"
	"fmt"

	"tally/internal/stages"
	"tally/internal/store"
)

// Inclusion reasons, in resolution order. The first reason a user matches
// wins; later steps never overwrite it.
const (
	ReasonOversight        = "oversight"
	ReasonAssignedUser     = "assigned user"
	ReasonChaseTeam        = "chase team"
	ReasonWorkflowAssignee = "workflow assignee"
)

// Recipient is one stakeholder to notify, tagged with why.
type Recipient struct {
	UserID string
	Name   string
	Email  string
	Role   store.Role
	Reason string
}

// Directory provides the read queries recipient resolution needs.
type Directory interface {
	ActiveUsersByRole(ctx context.Context, roles ...store.Role) ([]*store.User, error)
	GetClient(ctx context.Context, id string) (*store.Client, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
}

// Resolver computes the stakeholder set for a transition envelope.
type Resolver struct {
	dir Directory
}

// NewResolver builds a recipient resolver over the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the deduplicated recipient list for an envelope.
//
// Resolution order: oversight roles, the client's general assigned user (when
// not the actor), the client's chase team when either end of the transition
// is chase-related, then the period's post-transition assignee when distinct
// from the client's general assignee.
func (r *Resolver) Resolve(ctx context.Context, env *Envelope) ([]Recipient, error) {
	if env == nil {
		return nil, nil
	}

	var recipients []Recipient
	seen := map[string]struct{}{}

	add := func(user *store.User, reason string) {
		if user == nil || user.ID == "" {
			return
		}
		if _, ok := seen[user.ID]; ok {
			return
		}
		seen[user.ID] = struct{}{}
		recipients = append(recipients, Recipient{
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
			Role:   user.Role,
			Reason: reason,
		})
	}

	oversight, err := r.dir.ActiveUsersByRole(ctx, store.OversightRoles()...)
	if err != nil {
		return nil, fmt.Errorf("load oversight users: %w", err)
	}
	for _, user := range oversight {
		add(user, ReasonOversight)
	}

	client, err := r.dir.GetClient(ctx, env.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if client == nil {
		return recipients, nil
	}

	if client.AssignedUserID != "" && client.AssignedUserID != env.Actor.ID {
		user, err := r.dir.GetUser(ctx, client.AssignedUserID)
		if err != nil {
			return nil, fmt.Errorf("load assigned user: %w", err)
		}
		add(user, ReasonAssignedUser)
	}

	if stages.IsChase(env.Family, env.FromStage) || stages.IsChase(env.Family, env.ToStage) {
		for _, memberID := range client.ChaseTeam {
			user, err := r.dir.GetUser(ctx, memberID)
			if err != nil {
				return nil, fmt.Errorf("load chase team member: %w", err)
			}
			add(user, ReasonChaseTeam)
		}
	}

	if env.AssigneeID != "" && env.AssigneeID != client.AssignedUserID {
		user, err := r.dir.GetUser(ctx, env.AssigneeID)
		if err != nil {
			return nil, fmt.Errorf("load workflow assignee: %w", err)
		}
		add(user, ReasonWorkflowAssignee)
	}

	return recipients, nil
}
