package wal

import (
	"fmt"
	"os"
	"time"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/snapshot"
)

// RotationResult reports the outcome of a rotation check.
type RotationResult struct {
	// Rotated is false when the log was under the threshold (no-op).
	Rotated bool `json:"rotated"`

	// SizeBytes is the log size observed at the check.
	SizeBytes int64 `json:"size_bytes"`

	// Watermark is the sequence number the snapshot reflects.
	Watermark int64 `json:"watermark,omitempty"`

	// SnapshotPath is where the checkpoint snapshot was written.
	SnapshotPath string `json:"snapshot_path,omitempty"`

	// ArchivePath is where the prior segment was moved.
	ArchivePath string `json:"archive_path,omitempty"`
}

// SnapshotPath returns the checkpoint snapshot path for a log path.
func SnapshotPath(logPath string) string {
	return logPath + ".snapshot"
}

// Rotate checkpoints the log when it has grown past threshold bytes:
// snapshot the current world at the current watermark, archive the old
// segment, and start a fresh one whose preamble carries the watermark.
// Under the threshold it is a no-op.
//
// Rotation is all-or-nothing with the pre-rotation log as the safe
// fallback: the snapshot is written to a temp file and renamed into
// place before the log file is touched, and any failure leaves the
// original log usable. Never called with an open frame
// (ErrOpenFrameOnRotate) - a checkpoint mid-frame could capture state
// that replay would discard.
func (l *Log) Rotate(threshold int64) (RotationResult, error) {
	if l.open != nil {
		return RotationResult{}, fmt.Errorf("rotate: %w (frame %q)", ErrOpenFrameOnRotate, l.open.Label)
	}

	size, err := l.writer.Size()
	if err != nil {
		return RotationResult{}, fmt.Errorf("rotate: %w", err)
	}
	if size <= threshold {
		return RotationResult{Rotated: false, SizeBytes: size}, nil
	}

	// Rotating: snapshot first, then swap segments. Order matters -
	// until the snapshot is durable, the old log is the only source of
	// committed state.
	watermark := l.writer.Watermark()
	snapPath := SnapshotPath(l.writer.Path())

	doc, err := snapshot.Export(l.world, watermark)
	if err != nil {
		return RotationResult{}, fmt.Errorf("rotate: %w", err)
	}
	if err := writeFileAtomic(snapPath, doc); err != nil {
		return RotationResult{}, fmt.Errorf("rotate: write snapshot: %w", err)
	}

	archivePath, err := nextArchivePath(l.writer.Path())
	if err != nil {
		return RotationResult{}, fmt.Errorf("rotate: %w", err)
	}
	if err := l.writer.replaceSegment(archivePath); err != nil {
		return RotationResult{}, fmt.Errorf("rotate: %w", err)
	}

	return RotationResult{
		Rotated:      true,
		SizeBytes:    size,
		Watermark:    watermark,
		SnapshotPath: snapPath,
		ArchivePath:  archivePath,
	}, nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory plus rename, so a crash mid-write never leaves a truncated
// document at path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// nextArchivePath names the archived segment with a UTC timestamp,
// appending a counter when a rotation lands on the same second.
func nextArchivePath(logPath string) (string, error) {
	stamp := time.Now().UTC().Format("20060102T150405")
	candidate := fmt.Sprintf("%s.%s", logPath, stamp)
	for n := 1; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s.%s.%d", logPath, stamp, n)
	}
}
