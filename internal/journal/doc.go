// Package journal persists hotplug events to SQLite.
//
// Every arrival and departure delivered by the notification engine is
// recorded as one row in the hotplug_events table, keyed by a UUID and
// carrying the device identity, bus position, attachment session id and
// an RFC3339 UTC timestamp.
//
// The store is append-only from the daemon's point of view. Queries are
// newest-first with a bounded limit; Prune removes rows older than a
// retention window.
package journal
