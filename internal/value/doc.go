// Package value defines the tagged variant type for world attribute
// values and mark payloads, together with its canonical JSON encoding.
//
// Every value that reaches the durability path (journal lines, snapshot
// documents) is one of: Null, String, Int, Float, Bool, Array, Object.
// The sealed Value interface makes this closed set explicit - there is
// no runtime type inspection of arbitrary Go values on the write path.
//
// Canonical encoding follows RFC 8785 (object keys in UTF-16 code unit
// order, NFC-normalized strings, no HTML escaping) so that encoding a
// value is a pure function of its content: the same value always
// produces the same bytes, which is what makes replay and snapshot
// comparison deterministic.
package value
