package wal

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/journal"
)

// maxLineSize bounds a single journal line. A line holds one attribute
// value as canonical JSON; anything past this is treated as corruption
// rather than buffered indefinitely.
const maxLineSize = 16 * 1024 * 1024

// Writer owns the active log file and appends codec-encoded records to
// it. Single writer: one in-flight append at a time, records are never
// reordered, and every append is synced to stable storage before it
// returns - "append returned" means "durable".
type Writer struct {
	path  string
	f     *os.File
	clock *Clock
}

// OpenWriter opens the log at path for appending, creating it if
// absent. An existing log is scanned so the sequence clock resumes
// after the last record (every non-preamble line occupies one sequence
// slot, well-formed or not).
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}

	last, err := scanLastSeq(path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}

	return &Writer{path: path, f: f, clock: NewClockAt(last)}, nil
}

// scanLastSeq derives the sequence number after the final line of the
// segment: the preamble base (0 when absent) plus one per record line.
func scanLastSeq(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var base, count int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	first := true
	for sc.Scan() {
		if first {
			first = false
			if rec, mal := journal.DecodeLine(sc.Text()); mal == nil && rec.Kind == journal.KindSegmentBase {
				base = rec.Base
				continue
			}
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return base + count, nil
}

// Append encodes the record, writes it as one line, forces it to
// stable storage, and returns the assigned sequence number. On error
// the record is NOT durable and the caller must not apply the
// corresponding in-memory mutation.
func (w *Writer) Append(rec journal.Record) (int64, error) {
	if w.f == nil {
		return 0, fmt.Errorf("append: log %s is closed", w.path)
	}

	line, err := journal.EncodeLine(rec)
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}

	if _, err := io.WriteString(w.f, line+"\n"); err != nil {
		return 0, fmt.Errorf("append to %s: %w", w.path, err)
	}
	if err := w.f.Sync(); err != nil {
		return 0, fmt.Errorf("sync %s: %w", w.path, err)
	}

	return w.clock.Next(), nil
}

// Watermark returns the sequence number of the last durable record.
func (w *Writer) Watermark() int64 {
	return w.clock.Current()
}

// Size returns the current size of the log file in bytes.
func (w *Writer) Size() (int64, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", w.path, err)
	}
	return info.Size(), nil
}

// Path returns the active log path.
func (w *Writer) Path() string {
	return w.path
}

// Close closes the underlying file. Further appends fail.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// replaceSegment archives the current file under archivePath and
// starts a fresh segment at the same path, opening it with a
// "LOG <watermark>" preamble so sequence numbering continues. Called
// only by rotation. If any step fails before the rename, the original
// log is untouched; the writer is reopened on the original file.
func (w *Writer) replaceSegment(archivePath string) error {
	if err := w.f.Close(); err != nil {
		w.reopen()
		return fmt.Errorf("close before archive: %w", err)
	}
	w.f = nil

	if err := os.Rename(w.path, archivePath); err != nil {
		w.reopen()
		return fmt.Errorf("archive %s: %w", w.path, err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		// The archive rename already happened; restore it so the
		// pre-rotation log remains the safe fallback.
		if renameErr := os.Rename(archivePath, w.path); renameErr == nil {
			w.reopen()
		}
		return fmt.Errorf("create fresh segment %s: %w", w.path, err)
	}
	w.f = f

	preamble := journal.Record{Kind: journal.KindSegmentBase, Base: w.clock.Current()}
	line, err := journal.EncodeLine(preamble)
	if err != nil {
		return w.undoReplace(archivePath, fmt.Errorf("encode segment preamble: %w", err))
	}
	if _, err := io.WriteString(w.f, line+"\n"); err != nil {
		return w.undoReplace(archivePath, fmt.Errorf("write segment preamble: %w", err))
	}
	if err := w.f.Sync(); err != nil {
		return w.undoReplace(archivePath, fmt.Errorf("sync segment preamble: %w", err))
	}
	return nil
}

// undoReplace discards a fresh segment whose preamble never became
// durable and puts the archived segment back at the log path, so the
// pre-rotation log remains the safe fallback.
func (w *Writer) undoReplace(archivePath string, cause error) error {
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	if err := os.Remove(w.path); err == nil {
		if err := os.Rename(archivePath, w.path); err == nil {
			w.reopen()
		}
	}
	return cause
}

// reopen re-attaches the writer to its path after a failed rotation
// step. Best effort: if reopening fails the writer stays closed and
// the next Append reports it.
func (w *Writer) reopen() {
	if f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		w.f = f
	}
}
