package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tally/internal/config"
	"tally/internal/notifications"
	"tally/internal/stages"
	"tally/internal/store"
)

type capturedRequest struct {
	title string
	body  string
}

func newWebhookServer(t *testing.T, captured *[]capturedRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = append(*captured, capturedRequest{
			title: r.Header.Get("Title"),
			body:  string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func webhookConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Practice.Name = "Tally"
	cfg.Notifications.WebhookURL = url
	return &cfg
}

func TestDispatcherIsNoopWithoutWebhook(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = ""
	dispatcher := notifications.NewDispatcher(&cfg)

	env := &notifications.Envelope{PeriodID: "p-1"}
	recipients := []notifications.Recipient{{UserID: "u-1", Name: "Alice"}}
	if err := dispatcher.Dispatch(context.Background(), env, recipients); err != nil {
		t.Fatalf("noop dispatch should never fail: %v", err)
	}
	if err := dispatcher.Test(context.Background()); err != nil {
		t.Fatalf("noop test should never fail: %v", err)
	}
}

func TestDispatchRendersStageChange(t *testing.T) {
	var captured []capturedRequest
	server := newWebhookServer(t, &captured)
	dispatcher := notifications.NewDispatcher(webhookConfig(server.URL))

	env := &notifications.Envelope{
		PeriodID:    "p-1",
		PeriodLabel: "Q2 2026",
		ClientName:  "Acme Ltd",
		Family:      stages.FamilyQuarterly,
		FromStage:   stages.StageWorkInProgress,
		ToStage:     stages.StageWorkFinished,
		Actor:       store.User{ID: "u-1", Name: "Alice Preparer"},
		Note:        "draft ready",
		At:          time.Now(),
	}
	recipients := []notifications.Recipient{
		{UserID: "u-2", Name: "Bob Manager"},
		{UserID: "u-3", Name: "Carol Senior"},
	}
	if err := dispatcher.Dispatch(context.Background(), env, recipients); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(captured) != 1 {
		t.Fatalf("expected one webhook call, got %d", len(captured))
	}
	got := captured[0]
	if got.title != "Tally - Acme Ltd Q2 2026" {
		t.Fatalf("unexpected title %q", got.title)
	}
	for _, want := range []string{
		"Quarterly: Work In Progress -> Work Finished",
		"(by Alice Preparer)",
		"Note: draft ready",
		"To: Bob Manager, Carol Senior",
	} {
		if !strings.Contains(got.body, want) {
			t.Fatalf("body missing %q:\n%s", want, got.body)
		}
	}
}

func TestDispatchRendersAssignmentDelta(t *testing.T) {
	var captured []capturedRequest
	server := newWebhookServer(t, &captured)
	dispatcher := notifications.NewDispatcher(webhookConfig(server.URL))

	env := &notifications.Envelope{
		PeriodLabel: "Q2 2026",
		ClientName:  "Acme Ltd",
		Family:      stages.FamilyQuarterly,
		FromStage:   stages.StageWorkInProgress,
		ToStage:     stages.StageWorkInProgress,
		Assignment: &notifications.AssignmentDelta{
			OldID:   "u-1",
			OldName: "Alice Preparer",
			NewID:   "u-2",
			NewName: "Bob Manager",
		},
	}
	recipients := []notifications.Recipient{{UserID: "u-2", Name: "Bob Manager"}}
	if err := dispatcher.Dispatch(context.Background(), env, recipients); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	body := captured[0].body
	if !strings.Contains(body, "Reassigned Alice Preparer -> Bob Manager") {
		t.Fatalf("body missing reassignment line:\n%s", body)
	}
	// No stage change, so the header names only the current stage.
	if strings.Contains(body, "->Work In Progress ->") {
		t.Fatalf("unexpected stage arrow in body:\n%s", body)
	}
}

func TestDispatchSkipsEmptyRecipients(t *testing.T) {
	var captured []capturedRequest
	server := newWebhookServer(t, &captured)
	dispatcher := notifications.NewDispatcher(webhookConfig(server.URL))

	env := &notifications.Envelope{PeriodLabel: "Q2 2026"}
	if err := dispatcher.Dispatch(context.Background(), env, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(captured) != 0 {
		t.Fatalf("no webhook call expected, got %d", len(captured))
	}
}

func TestDispatchReportsWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	t.Cleanup(server.Close)
	dispatcher := notifications.NewDispatcher(webhookConfig(server.URL))

	env := &notifications.Envelope{PeriodLabel: "Q2 2026", Family: stages.FamilyQuarterly, ToStage: stages.StageFiled}
	recipients := []notifications.Recipient{{UserID: "u-1", Name: "Alice"}}
	err := dispatcher.Dispatch(context.Background(), env, recipients)
	if err == nil || !strings.Contains(err.Error(), "418") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestTestSendsProbe(t *testing.T) {
	var captured []capturedRequest
	server := newWebhookServer(t, &captured)
	dispatcher := notifications.NewDispatcher(webhookConfig(server.URL))

	if err := dispatcher.Test(context.Background()); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if len(captured) != 1 || captured[0].title != "Tally - Test" {
		t.Fatalf("unexpected probe %#v", captured)
	}
}
