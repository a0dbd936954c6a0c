// Package events implements the catalog's audit trail (SPEC_FULL.md §3
// "Extension — audit trail"): every catalog mutation optionally records a
// CatalogEvent row, and this package fans those rows out in-process via
// Postgres LISTEN/NOTIFY, mirroring the donor's WebSocket event-delivery
// package with the WebSocket transport removed — there are no external
// subscribers for this service, only in-process consumers (e.g. a future
// cache invalidator or metrics counter) registered via Dispatcher.Subscribe.
package events

// Channel is the fixed PostgreSQL NOTIFY channel the catalog_events table's
// insert trigger (catalog_notify_event, see 0001_init.up.sql) publishes on.
// Unlike the donor, which LISTENs on a distinct channel per session, this
// service has exactly one event stream, so there is no dynamic per-channel
// LISTEN/UNLISTEN bookkeeping to do.
const Channel = "catalog_events"
