package store

import (
	"fmt"
	"strings"
	"time"

	"tally/internal/stages"
)

// Role classifies a team member for assignment and notification purposes.
type Role string

const (
	RolePreparer Role = "preparer"
	RoleManager  Role = "manager"
	RoleSenior   Role = "senior"
)

var allRoles = []Role{RolePreparer, RoleManager, RoleSenior}

var roleSet = func() map[Role]struct{} {
	set := make(map[Role]struct{}, len(allRoles))
	for _, role := range allRoles {
		set[role] = struct{}{}
	}
	return set
}()

// AllRoles returns the known roles.
func AllRoles() []Role {
	cp := make([]Role, len(allRoles))
	copy(cp, allRoles)
	return cp
}

// ParseRole converts a string into a known Role.
func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := roleSet[normalized]
	return normalized, ok
}

// OversightRoles are the roles that are always notified of transitions.
func OversightRoles() []Role {
	return []Role{RoleManager, RoleSenior}
}

// User is a member of the accounting team.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// Client is a portfolio client whose filings are tracked.
type Client struct {
	ID             string
	Name           string
	Code           string
	AssignedUserID string   // general client contact, may be empty
	ChaseTeam      []string // user ids notified on chase-stage transitions
	CreatedAt      time.Time
}

// Stamp records when a milestone was reached and by whom.
type Stamp struct {
	At     time.Time `json:"at"`
	ByID   string    `json:"by_id"`
	ByName string    `json:"by_name"`
}

// Milestones maps milestone names to their stamps. Absent keys are unset.
type Milestones map[stages.Milestone]Stamp

// Clone returns a copy safe to mutate.
func (m Milestones) Clone() Milestones {
	if m == nil {
		return Milestones{}
	}
	cp := make(Milestones, len(m))
	for name, stamp := range m {
		cp[name] = stamp
	}
	return cp
}

// Period is one filing obligation instance for one client.
type Period struct {
	ID          string
	ClientID    string
	Family      stages.Family
	PeriodStart time.Time
	PeriodEnd   time.Time
	FilingDue   time.Time
	Stage       stages.Stage
	Completed   bool
	AssigneeID  string // empty when unassigned
	Milestones  Milestones
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Label renders a short period-identifying string for lists and notifications.
func (p *Period) Label() string {
	switch p.Family {
	case stages.FamilyQuarterly:
		quarter := (int(p.PeriodEnd.Month())-1)/3 + 1
		return fmt.Sprintf("Q%d %d", quarter, p.PeriodEnd.Year())
	case stages.FamilyAnnual:
		return fmt.Sprintf("YE %s", p.PeriodEnd.Format("02 Jan 2006"))
	default:
		return p.PeriodEnd.Format("2006-01-02")
	}
}

// HistoryEntry is the immutable audit record of one stage transition.
type HistoryEntry struct {
	ID        string
	PeriodID  string
	FromStage stages.Stage // empty for the first entry
	ToStage   stages.Stage
	At        time.Time
	// DaysInPreviousStage is the whole-day gap since the preceding entry;
	// nil when the entry is the first for its period.
	DaysInPreviousStage *int
	ActorID             string
	ActorName           string
	ActorEmail          string
	ActorRole           Role
	Note                string
}
