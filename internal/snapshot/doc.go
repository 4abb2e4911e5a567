// Package snapshot exports full world state to a structured document
// and restores it.
//
// A snapshot plus the journal records with sequence numbers greater
// than its watermark reconstruct current state exactly, which is what
// lets rotation discard old log segments safely.
//
// Document shape:
//
//	{"watermark": 12, "checksum": "sha256:...", "nodes": [
//	  {"id": "rect1", "attributes": {"x": 50, "color": "red"}}
//	]}
//
// Node order and attribute order are insertion order, so export is a
// pure function of world state. The checksum covers the watermark and
// node content; Import verifies it when present and refuses the
// document outright on any inconsistency (ErrCorruptSnapshot) - a
// snapshot that cannot be trusted is worse than no snapshot.
package snapshot
