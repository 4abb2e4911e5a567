// Package wal persists world mutations through a write-ahead log and
// reconstructs world state by replaying it.
//
// ARCHITECTURE:
//
// Single-Writer, Single Frame:
// All operations run synchronously on the caller's tick. A Log holds
// at most one open frame; overlap is rejected with errors rather than
// queued. This keeps the durable order and the in-memory order
// trivially identical.
//
// Durability Contract:
// Writer.Append syncs before returning, and Frame.Set appends before
// applying. So at any crash point, an effect visible in memory but not
// durable is impossible by construction; the reverse (durable but not
// applied) is corrected by replay, which is idempotent because SET is
// a total overwrite.
//
// Atomicity at Replay Time:
// The log may legitimately end mid-frame after a crash. Replay buffers
// the open frame's records and applies them only on the matching END;
// a trailing incomplete frame is discarded and reported, never
// half-applied.
//
// Rotation:
// When the segment outgrows a caller-supplied threshold (checked at
// frame boundaries only), Rotate snapshots the world at the current
// watermark, archives the segment, and starts a fresh one whose
// "LOG <watermark>" preamble keeps sequence numbers continuous.
// Snapshot plus fresh segment reconstruct exactly the pre-rotation
// state.
package wal
