package wal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/journal"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/world"
)

// Protocol errors. These indicate a broken transactional invariant in
// the caller and are surfaced immediately, never silently recovered.
var (
	// ErrFrameAlreadyOpen is returned by Begin while a frame is open.
	// Frames do not nest.
	ErrFrameAlreadyOpen = errors.New("frame already open")

	// ErrNoOpenFrame is returned when a mutation or mark is recorded
	// through a handle that is not the currently open frame.
	ErrNoOpenFrame = errors.New("no open frame")

	// ErrFrameMismatch is returned by End when the handle does not
	// match the open frame.
	ErrFrameMismatch = errors.New("frame handle does not match open frame")

	// ErrOpenFrameOnRotate is returned by Rotate while a frame is
	// open. Rotation never interrupts a frame.
	ErrOpenFrameOnRotate = errors.New("cannot rotate with an open frame")
)

// Log brackets batches of world mutations into frames and pushes every
// record through the Writer before touching in-memory state.
//
// Single-threaded: all operations run synchronously on the caller's
// tick, and frame serialization is enforced with errors, not queuing.
type Log struct {
	writer *Writer
	world  *world.World
	open   *Frame
}

// Frame is the handle for the currently open frame. It captures the
// label and the sequence of the BEGIN record. The unexported id makes
// a stale handle from an earlier frame with the same label detectable.
type Frame struct {
	id       string
	Label    string
	StartSeq int64
	log      *Log
}

// NewLog creates a frame manager writing through w and applying
// committed mutations to wd.
func NewLog(w *Writer, wd *world.World) *Log {
	return &Log{writer: w, world: wd}
}

// World returns the live world this log applies mutations to.
func (l *Log) World() *world.World {
	return l.world
}

// Writer returns the underlying log writer.
func (l *Log) Writer() *Writer {
	return l.writer
}

// Begin opens a new frame. Fails with ErrFrameAlreadyOpen if one is
// open. The BEGIN record is durable before the handle is returned; if
// the append fails no frame is opened.
func (l *Log) Begin(label string) (*Frame, error) {
	if l.open != nil {
		return nil, fmt.Errorf("begin %q: %w (open frame %q)", label, ErrFrameAlreadyOpen, l.open.Label)
	}
	if !journal.ValidLabel(label) {
		return nil, fmt.Errorf("begin: invalid frame label %q", label)
	}

	seq, err := l.writer.Append(journal.Record{Kind: journal.KindBeginFrame, FrameLabel: label})
	if err != nil {
		return nil, err
	}

	l.open = &Frame{
		id:       uuid.Must(uuid.NewV7()).String(),
		Label:    label,
		StartSeq: seq,
		log:      l,
	}
	return l.open, nil
}

// Set records a mutation and applies it to the live world. Ordering is
// the durability contract: the SET record is synced to the log BEFORE
// the in-memory apply. A crash between the two leaves a durable record
// that replay reapplies - harmless, since Set is a total overwrite.
// On append failure nothing is applied.
func (f *Frame) Set(path journal.Path, v value.Value) (int64, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}

	seq, err := f.log.writer.Append(journal.Record{
		Kind:   journal.KindSetAttribute,
		Target: path,
		Value:  v,
	})
	if err != nil {
		return 0, err
	}

	f.log.world.Set(path.Node, path.Attribute, v)
	return seq, nil
}

// SetPath is Set with an unparsed "<node>.<attribute>" path.
func (f *Frame) SetPath(path string, v value.Value) (int64, error) {
	p, err := journal.ParsePath(path)
	if err != nil {
		return 0, err
	}
	return f.Set(p, v)
}

// Mark records an out-of-band provenance note. Marks never mutate the
// world; they exist only in the journal (and anything indexing it).
func (f *Frame) Mark(name string, payload value.Value) (int64, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}

	return f.log.writer.Append(journal.Record{
		Kind:    journal.KindMark,
		Name:    name,
		Payload: payload,
	})
}

// End writes the END record and closes the frame. Callers must ensure
// End runs on every exit path of the enclosing operation; a frame left
// open is discarded by replay on the next restart.
func (f *Frame) End() error {
	if f.log.open == nil {
		return fmt.Errorf("end %q: %w", f.Label, ErrNoOpenFrame)
	}
	if f.log.open.id != f.id {
		return fmt.Errorf("end %q: %w (open frame %q)", f.Label, ErrFrameMismatch, f.log.open.Label)
	}

	if _, err := f.log.writer.Append(journal.Record{Kind: journal.KindEndFrame, FrameLabel: f.Label}); err != nil {
		return err
	}
	f.log.open = nil
	return nil
}

func (f *Frame) checkOpen() error {
	if f.log.open == nil {
		return fmt.Errorf("frame %q: %w", f.Label, ErrNoOpenFrame)
	}
	if f.log.open.id != f.id {
		return fmt.Errorf("frame %q: %w", f.Label, ErrNoOpenFrame)
	}
	return nil
}
