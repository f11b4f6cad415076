package main

import (
	"context"
	"testing"

	"tally/internal/stages"
)

func TestEndToEndWorkflowCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	mustRunCLI(t, env, "user", "add", "--name", "Alice Preparer", "--email", "alice@example.com", "--role", "preparer")
	mustRunCLI(t, env, "user", "add", "--name", "Bob Manager", "--email", "bob@example.com", "--role", "manager")
	mustRunCLI(t, env, "user", "add", "--name", "Carol Senior", "--email", "carol@example.com", "--role", "senior")

	out := mustRunCLI(t, env, "user", "list")
	requireContains(t, out, "Alice Preparer")
	requireContains(t, out, "manager")

	mustRunCLI(t, env, "client", "add",
		"--name", "Acme Ltd", "--code", "ACME",
		"--assignee", "bob@example.com",
		"--chase", "alice@example.com")
	out = mustRunCLI(t, env, "client", "list")
	requireContains(t, out, "ACME")
	requireContains(t, out, "Bob Manager")

	mustRunCLI(t, env, "period", "add", "--client", "ACME", "--family", "quarterly", "--end", "2026-06-30")

	st := openEnvStore(t, env)
	periods, err := st.ListPeriods(context.Background(), "")
	if err != nil {
		t.Fatalf("ListPeriods: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("expected one period, got %d", len(periods))
	}
	periodID := periods[0].ID

	out = mustRunCLI(t, env, "period", "list")
	requireContains(t, out, "Q2 2026")
	requireContains(t, out, "Paperwork Pending Chase")

	out = mustRunCLI(t, env, "transition", periodID,
		"--stage", "paperwork_chased", "--actor", "alice@example.com", "--note", "first reminder sent")
	requireContains(t, out, "Paperwork Pending Chase -> Paperwork Chased")
	requireContains(t, out, "Carol Senior") // chase stages route to the senior

	out = mustRunCLI(t, env, "transition", periodID,
		"--stage", "paperwork_received", "--actor", "alice@example.com")
	requireContains(t, out, "Alice Preparer") // preparation stages route to the preparer

	out = mustRunCLI(t, env, "history", periodID)
	requireContains(t, out, "Paperwork Chased")
	requireContains(t, out, "first reminder sent")

	out = mustRunCLI(t, env, "period", "show", periodID)
	requireContains(t, out, "Acme Ltd (ACME)")
	requireContains(t, out, "[x] Chase Started")
	requireContains(t, out, "[ ] Filed")

	out = mustRunCLI(t, env, "period", "due", "--within", "36500")
	requireContains(t, out, "Q2 2026")
}

func TestTransitionUnassignFlag(t *testing.T) {
	env := setupCLITestEnv(t)

	mustRunCLI(t, env, "user", "add", "--name", "Alice Preparer", "--email", "alice@example.com", "--role", "preparer")
	mustRunCLI(t, env, "client", "add", "--name", "Acme Ltd", "--code", "ACME")
	mustRunCLI(t, env, "period", "add", "--client", "ACME", "--family", "annual", "--end", "2026-12-31")

	st := openEnvStore(t, env)
	periods, err := st.ListPeriods(context.Background(), "")
	if err != nil {
		t.Fatalf("ListPeriods: %v", err)
	}
	periodID := periods[0].ID

	mustRunCLI(t, env, "transition", periodID, "--assignee", "alice@example.com", "--actor", "alice@example.com")
	out := mustRunCLI(t, env, "transition", periodID, "--unassign", "--actor", "alice@example.com")
	requireContains(t, out, "Assignee: -")

	period, err := st.GetPeriod(context.Background(), periodID)
	if err != nil {
		t.Fatalf("GetPeriod: %v", err)
	}
	if period.AssigneeID != "" {
		t.Fatalf("expected unassigned period, got %q", period.AssigneeID)
	}
	if period.Family != stages.FamilyAnnual {
		t.Fatalf("unexpected family %s", period.Family)
	}

	if _, err := runCLI(t, env, "transition", periodID, "--assignee", "alice@example.com", "--unassign", "--actor", "alice@example.com"); err == nil {
		t.Fatal("expected --assignee and --unassign to conflict")
	}
}
