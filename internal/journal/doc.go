// Package journal defines the journal record model and its
// line-oriented wire codec.
//
// One record per line, keyword first:
//
//	BEGIN <frameLabel>
//	SET <nodeId>.<attribute> <canonicalJSON>
//	MARK <name> <canonicalJSON>
//	END <frameLabel>
//
// A segment may open with a "LOG <baseSeq>" preamble written by
// rotation, recording the sequence number the segment continues from.
//
// The codec is pure - no I/O. Encoding is deterministic (canonical JSON
// values, validated tokens), and decoding never fails hard: a bad line
// comes back as a Malformed marker carrying the raw line and a reason,
// so the replay engine can skip and report rather than abort.
package journal
