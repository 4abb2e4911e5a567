// Package provenance maintains a queryable SQLite index over the
// journal's MARK records.
//
// Marks are out-of-band provenance notes: they ride inside frames and
// are durable, but they never touch world state. Finding "every mark
// named X" by rescanning log segments gets slow as the log grows, so
// this package derives an index the journal can always rebuild.
//
// Only marks from committed frames are indexed - the same atomicity
// rule the replay engine applies to mutations. Ingestion keys rows by
// journal sequence number, making re-indexing idempotent.
package provenance
