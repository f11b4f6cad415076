package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tally/internal/config"
)

const userAgent = "Tally/0.1.0"

// Dispatcher delivers a resolved recipient list for one envelope. Templating
// and transport details live behind this interface; the workflow core never
// waits on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *Envelope, recipients []Recipient) error
	Test(ctx context.Context) error
}

// NewDispatcher builds a dispatcher backed by the configured webhook. When no
// webhook URL is configured, a noop implementation is returned.
func NewDispatcher(cfg *config.Config) Dispatcher {
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return noopDispatcher{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookDispatcher{
		endpoint: endpoint,
		practice: cfg.Practice.Name,
		client:   &http.Client{Timeout: timeout},
	}
}

type webhookDispatcher struct {
	endpoint string
	practice string
	client   *http.Client
}

func (d *webhookDispatcher) Dispatch(ctx context.Context, env *Envelope, recipients []Recipient) error {
	if env == nil || len(recipients) == 0 {
		return nil
	}
	title := fmt.Sprintf("%s - %s %s", d.practice, env.ClientName, env.PeriodLabel)
	return d.send(ctx, title, renderMessage(env, recipients))
}

func (d *webhookDispatcher) Test(ctx context.Context) error {
	return d.send(ctx, fmt.Sprintf("%s - Test", d.practice), "Notification system test")
}

func (d *webhookDispatcher) send(ctx context.Context, title, message string) error {
	if d == nil || d.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func renderMessage(env *Envelope, recipients []Recipient) string {
	var builder strings.Builder

	if env.StageChanged() {
		fmt.Fprintf(&builder, "%s: %s -> %s", env.Family.Label(), env.FromStage.Label(), env.ToStage.Label())
	} else {
		fmt.Fprintf(&builder, "%s: %s", env.Family.Label(), env.ToStage.Label())
	}
	if env.Actor.Name != "" {
		fmt.Fprintf(&builder, " (by %s)", env.Actor.Name)
	}

	if delta := env.Assignment; delta != nil {
		builder.WriteByte('\n')
		switch {
		case delta.NewID == "":
			fmt.Fprintf(&builder, "Unassigned (was %s)", nameOrUnassigned(delta.OldName))
		case delta.OldID == "":
			fmt.Fprintf(&builder, "Assigned to %s", delta.NewName)
		default:
			fmt.Fprintf(&builder, "Reassigned %s -> %s", delta.OldName, delta.NewName)
		}
	}

	if note := strings.TrimSpace(env.Note); note != "" {
		fmt.Fprintf(&builder, "\nNote: %s", note)
	}

	names := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		names = append(names, recipient.Name)
	}
	fmt.Fprintf(&builder, "\nTo: %s", strings.Join(names, ", "))

	return builder.String()
}

func nameOrUnassigned(name string) string {
	if strings.TrimSpace(name) == "" {
		return "unassigned"
	}
	return name
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, *Envelope, []Recipient) error { return nil }

func (noopDispatcher) Test(context.Context) error { return nil }
