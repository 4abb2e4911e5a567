package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelSequence(t *testing.T) {
	s := NewLabelSequence("")
	assert.Equal(t, "tick-1", s.Next())
	assert.Equal(t, "tick-2", s.Next())
	assert.Equal(t, "tick-3", s.Next())
}

func TestLabelSequencePrefix(t *testing.T) {
	s := NewLabelSequence("frame")
	assert.Equal(t, "frame-1", s.Next())
	assert.Equal(t, "frame-2", s.Next())
}

func TestLabelSequencesIndependent(t *testing.T) {
	a := NewLabelSequence("a")
	b := NewLabelSequence("b")
	a.Next()
	a.Next()
	assert.Equal(t, "b-1", b.Next())
}
