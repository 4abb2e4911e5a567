package wal

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/journal"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/world"
)

// SkippedRecord describes one line replay could not use.
type SkippedRecord struct {
	Seq    int64  `json:"seq"`
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// Report is the full account of one replay pass. Replay never aborts
// on recoverable per-record issues - the caller reads the report and
// decides whether the damage is acceptable.
type Report struct {
	// FramesApplied counts frames whose mutations were applied to the
	// target world. Frames entirely at or below the starting watermark
	// are not applied and not counted.
	FramesApplied int `json:"frames_applied"`

	// FramesDiscarded counts non-trailing frames dropped because a new
	// BEGIN arrived while they were still open.
	FramesDiscarded int `json:"frames_discarded"`

	// RecordsSkipped counts malformed or out-of-protocol lines.
	RecordsSkipped int `json:"records_skipped"`

	// Skipped carries the detail for every skipped line.
	Skipped []SkippedRecord `json:"skipped,omitempty"`

	// IncompleteFrameDiscarded is true when end-of-log was reached
	// with a frame still open. Its buffered mutations were discarded,
	// not applied - the atomicity guarantee after a crash mid-frame.
	IncompleteFrameDiscarded bool `json:"incomplete_frame_discarded"`

	// DiscardedFrameLabel is the label of the trailing incomplete
	// frame, when there was one.
	DiscardedFrameLabel string `json:"discarded_frame_label,omitempty"`

	// Watermark is the sequence number of the last line read.
	Watermark int64 `json:"watermark"`
}

// ReplayFile replays the log at path into target. See Replay.
func ReplayFile(path string, target *world.World, from int64) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("replay %s: %w", path, err)
	}
	defer f.Close()

	report, err := Replay(f, target, from)
	if err != nil {
		return report, fmt.Errorf("replay %s: %w", path, err)
	}
	return report, nil
}

// Replay reads journal lines in order and applies well-formed frames
// to target. from is the starting watermark: frames whose END sequence
// is at or below it were already captured by a snapshot and are not
// reapplied. Pass 0 to replay everything.
//
// Applying a SET is a total overwrite, so replaying the same log twice
// (or replaying a mutation that was already applied live before a
// crash) yields identical state.
//
// Only I/O failures return an error; malformed lines and incomplete
// frames are reported, never fatal.
func Replay(r io.Reader, target *world.World, from int64) (Report, error) {
	report := Report{Watermark: from}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		seq       int64
		first     = true
		openLabel string
		openSet   bool
		buffered  []journal.Record
	)

	skip := func(line, reason string) {
		report.RecordsSkipped++
		report.Skipped = append(report.Skipped, SkippedRecord{Seq: seq, Line: line, Reason: reason})
	}

	for sc.Scan() {
		line := sc.Text()
		rec, mal := journal.DecodeLine(line)

		if first {
			first = false
			if mal == nil && rec.Kind == journal.KindSegmentBase {
				seq = rec.Base
				if seq > report.Watermark {
					report.Watermark = seq
				}
				continue
			}
		}

		seq++
		if seq > report.Watermark {
			report.Watermark = seq
		}

		if mal != nil {
			skip(line, mal.Reason)
			continue
		}

		switch rec.Kind {
		case journal.KindSegmentBase:
			skip(line, "LOG preamble not at start of segment")

		case journal.KindBeginFrame:
			if openSet {
				// A frame never closed. Its buffered mutations must
				// not be applied; the new frame takes over.
				report.FramesDiscarded++
				buffered = buffered[:0]
			}
			openSet = true
			openLabel = rec.FrameLabel

		case journal.KindSetAttribute, journal.KindMark:
			if !openSet {
				skip(line, string(rec.Kind)+" outside frame")
				continue
			}
			rec.Seq = seq
			buffered = append(buffered, rec)

		case journal.KindEndFrame:
			if !openSet {
				skip(line, "END without open frame")
				continue
			}
			if rec.FrameLabel != openLabel {
				skip(line, fmt.Sprintf("END %q does not match open frame %q", rec.FrameLabel, openLabel))
				continue
			}
			if seq > from {
				for _, b := range buffered {
					if b.Kind == journal.KindSetAttribute {
						target.Set(b.Target.Node, b.Target.Attribute, b.Value)
					}
				}
				report.FramesApplied++
			}
			openSet = false
			openLabel = ""
			buffered = buffered[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return report, fmt.Errorf("read journal: %w", err)
	}

	if openSet {
		report.IncompleteFrameDiscarded = true
		report.DiscardedFrameLabel = openLabel
	}

	return report, nil
}
