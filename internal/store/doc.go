// Package store persists the per-post moderation state that makes the
// escalation engine idempotent across restarts and repeated ticks.
//
// # Contract
//
// One row per post ever seen, keyed by post id, never deleted (the table
// doubles as an audit trail). GetOrCreate inserts the default state exactly
// once, on the post's first sighting. Upsert replaces the row and is a no-op
// when called again with identical state. Every write is committed before it
// returns, so a crash mid-tick loses at most the in-flight post's update.
//
// # Corruption
//
// The post id must be unique. More than one row for the same id means the
// table was modified out-of-band; that surfaces as ErrCorrupt and is treated
// as fatal by the checker, not retried.
package store
