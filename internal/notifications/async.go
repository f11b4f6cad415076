package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tally/internal/logging"
)

const dispatchTimeout = 30 * time.Second

// AsyncDispatcher decouples notification delivery from the transition that
// produced it. Envelopes are queued on a buffered channel; a background
// goroutine resolves recipients and dispatches. Enqueue never blocks and
// dispatch failures are logged, never surfaced to the caller.
type AsyncDispatcher struct {
	resolver   *Resolver
	dispatcher Dispatcher
	logger     *slog.Logger

	queue chan *Envelope
	wg    sync.WaitGroup
	once  sync.Once
}

// NewAsyncDispatcher builds and starts the background dispatch loop.
func NewAsyncDispatcher(resolver *Resolver, dispatcher Dispatcher, logger *slog.Logger, queueSize int) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	a := &AsyncDispatcher{
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logging.NewComponentLogger(logger, "notify-dispatch"),
		queue:      make(chan *Envelope, queueSize),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Enqueue hands an envelope to the background loop. When the queue is full
// the envelope is dropped with a warning; a transition must never wait on
// notification capacity.
func (a *AsyncDispatcher) Enqueue(env *Envelope) {
	if a == nil || env == nil {
		return
	}
	select {
	case a.queue <- env:
	default:
		a.logger.Warn("notification queue full; envelope dropped",
			logging.String(logging.FieldPeriodID, env.PeriodID),
			logging.String(logging.FieldClientID, env.ClientID),
		)
	}
}

// Close stops accepting envelopes and waits for queued ones to be delivered.
func (a *AsyncDispatcher) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		close(a.queue)
	})
	a.wg.Wait()
}

func (a *AsyncDispatcher) run() {
	defer a.wg.Done()
	for env := range a.queue {
		a.deliver(env)
	}
}

func (a *AsyncDispatcher) deliver(env *Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	recipients, err := a.resolver.Resolve(ctx, env)
	if err != nil {
		a.logger.Warn("recipient resolution failed; notification skipped",
			logging.Error(err),
			logging.String(logging.FieldPeriodID, env.PeriodID),
		)
		return
	}
	if len(recipients) == 0 {
		a.logger.Debug("no recipients for transition",
			logging.String(logging.FieldPeriodID, env.PeriodID),
		)
		return
	}

	if err := a.dispatcher.Dispatch(ctx, env, recipients); err != nil {
		a.logger.Warn("notification dispatch failed",
			logging.Error(err),
			logging.String(logging.FieldPeriodID, env.PeriodID),
			logging.Int("recipients", len(recipients)),
		)
		return
	}

	a.logger.Debug("notification dispatched",
		logging.String(logging.FieldPeriodID, env.PeriodID),
		logging.Int("recipients", len(recipients)),
	)
}
