package testsupport

import (
	"context"
	"testing"
	"time"

	"tally/internal/config"
	"tally/internal/stages"
	"tally/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// Team is the standard seeded roster: one active user per role.
type Team struct {
	Preparer *store.User
	Manager  *store.User
	Senior   *store.User
}

// SeedTeam creates one active user per role with deterministic names.
func SeedTeam(t testing.TB, st *store.Store) Team {
	t.Helper()

	ctx := context.Background()
	preparer, err := st.CreateUser(ctx, "Alice Preparer", "alice@example.com", store.RolePreparer)
	if err != nil {
		t.Fatalf("create preparer: %v", err)
	}
	manager, err := st.CreateUser(ctx, "Bob Manager", "bob@example.com", store.RoleManager)
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	senior, err := st.CreateUser(ctx, "Carol Senior", "carol@example.com", store.RoleSenior)
	if err != nil {
		t.Fatalf("create senior: %v", err)
	}
	return Team{Preparer: preparer, Manager: manager, Senior: senior}
}

// SeedClient creates a client with the given general assignee and chase team.
func SeedClient(t testing.TB, st *store.Store, name, code, assignedUserID string, chaseTeam []string) *store.Client {
	t.Helper()

	client, err := st.CreateClient(context.Background(), name, code, assignedUserID, chaseTeam)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

// SeedQuarter creates a quarterly period ending on the given date with a
// filing due one month later.
func SeedQuarter(t testing.TB, st *store.Store, clientID string, end time.Time) *store.Period {
	t.Helper()

	start := end.AddDate(0, -3, 1)
	due := end.AddDate(0, 1, 0)
	period, err := st.CreatePeriod(context.Background(), clientID, stages.FamilyQuarterly, start, end, due)
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	return period
}
