// Package notifications resolves transition stakeholders and delivers
// notifications via pluggable dispatchers.
//
// The Resolver turns a transition envelope into a deduplicated recipient list
// (oversight roles first, then the client's assigned user, chase team, and
// workflow assignee), each tagged with the reason for inclusion. The default
// Dispatcher posts to a webhook endpoint configured in config.toml and
// degrades to a no-op when none is set.
//
// Delivery is fire-and-forget relative to the transition itself: the
// AsyncDispatcher queues envelopes on a buffered channel and a background
// goroutine resolves and dispatches them, logging failures without ever
// affecting the transition outcome.
package notifications
