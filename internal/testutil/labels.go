package testutil

import "fmt"

// LabelSequence generates deterministic frame labels for tests:
// "tick-1", "tick-2", ... with a configurable prefix.
//
// Production callers label frames from their own context (a heartbeat
// tick id, a user gesture); tests need labels that are stable across
// runs so logs and golden files compare byte-for-byte.
type LabelSequence struct {
	prefix string
	n      int
}

// NewLabelSequence creates a label generator. An empty prefix defaults
// to "tick".
func NewLabelSequence(prefix string) *LabelSequence {
	if prefix == "" {
		prefix = "tick"
	}
	return &LabelSequence{prefix: prefix}
}

// Next returns the next label in the sequence.
func (s *LabelSequence) Next() string {
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}
