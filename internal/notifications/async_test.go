package notifications_test

import (
	"context"
	"sync"
	"testing"

	"tally/internal/logging"
	"tally/internal/notifications"
	"tally/internal/stages"
	"tally/internal/store"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []int // recipient counts per dispatch
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ *notifications.Envelope, recipients []notifications.Recipient) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, len(recipients))
	return nil
}

func (d *recordingDispatcher) Test(context.Context) error { return nil }

func TestAsyncDispatcherDeliversQueuedEnvelopes(t *testing.T) {
	dir := newFakeDirectory()
	dir.addUser("mgr", "Bob Manager", store.RoleManager)
	dir.clients["c-1"] = &store.Client{ID: "c-1", Name: "Acme Ltd"}

	recorder := &recordingDispatcher{}
	async := notifications.NewAsyncDispatcher(notifications.NewResolver(dir), recorder, logging.NewNop(), 8)

	for i := 0; i < 3; i++ {
		async.Enqueue(&notifications.Envelope{
			PeriodID:  "p-1",
			ClientID:  "c-1",
			Family:    stages.FamilyQuarterly,
			FromStage: stages.StageWorkInProgress,
			ToStage:   stages.StageWorkFinished,
		})
	}
	async.Close()

	if len(recorder.calls) != 3 {
		t.Fatalf("expected 3 dispatches, got %d", len(recorder.calls))
	}
	for _, count := range recorder.calls {
		if count != 1 {
			t.Fatalf("expected the oversight manager as sole recipient, got %d", count)
		}
	}
}

func TestAsyncDispatcherSkipsEmptyRecipientSets(t *testing.T) {
	dir := newFakeDirectory() // no users at all

	recorder := &recordingDispatcher{}
	async := notifications.NewAsyncDispatcher(notifications.NewResolver(dir), recorder, logging.NewNop(), 8)

	async.Enqueue(&notifications.Envelope{
		PeriodID: "p-1",
		ClientID: "missing",
		Family:   stages.FamilyQuarterly,
		ToStage:  stages.StageFiled,
	})
	async.Close()

	if len(recorder.calls) != 0 {
		t.Fatalf("no dispatch expected without recipients, got %d", len(recorder.calls))
	}
}

func TestAsyncDispatcherIgnoresNil(t *testing.T) {
	recorder := &recordingDispatcher{}
	async := notifications.NewAsyncDispatcher(notifications.NewResolver(newFakeDirectory()), recorder, logging.NewNop(), 1)

	async.Enqueue(nil)
	async.Close()

	if len(recorder.calls) != 0 {
		t.Fatalf("nil envelope must be ignored, got %d dispatches", len(recorder.calls))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	async := notifications.NewAsyncDispatcher(notifications.NewResolver(newFakeDirectory()), &recordingDispatcher{}, logging.NewNop(), 1)
	async.Close()
	async.Close()
}
