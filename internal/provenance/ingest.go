package provenance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/journal"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

// maxLineSize matches the wal package's per-line bound.
const maxLineSize = 16 * 1024 * 1024

// IndexLogFile ingests the journal segment at path. See IndexLog.
func (x *Index) IndexLogFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", path, err)
	}
	defer f.Close()
	return x.IndexLog(ctx, f)
}

// IndexLog scans a journal segment and stores the MARK records of
// committed frames. Marks inside frames that never ended are not
// indexed - the same atomicity rule replay enforces. Malformed lines
// are skipped.
//
// Ingestion is idempotent: a mark's journal sequence number is its
// primary key, so re-indexing the same segment (or overlapping
// segments) inserts nothing new. Returns the number of rows inserted.
func (x *Index) IndexLog(ctx context.Context, r io.Reader) (int, error) {
	marks, err := collectCommittedMarks(r)
	if err != nil {
		return 0, err
	}
	if len(marks) == 0 {
		return 0, nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("index marks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO marks (seq, frame_label, name, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("index marks: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, m := range marks {
		payload, err := value.MarshalCanonical(m.Payload)
		if err != nil {
			return 0, fmt.Errorf("index mark seq %d: %w", m.Seq, err)
		}
		res, err := stmt.ExecContext(ctx, m.Seq, m.FrameLabel, m.Name, string(payload))
		if err != nil {
			return 0, fmt.Errorf("index mark seq %d: %w", m.Seq, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index marks: %w", err)
	}
	return inserted, nil
}

// Mark is one provenance note recovered from the journal.
type Mark struct {
	Seq        int64
	FrameLabel string
	Name       string
	Payload    value.Value
}

// collectCommittedMarks walks the segment with the same framing rules
// as replay: marks are buffered per frame and surface only when the
// frame's END arrives.
func collectCommittedMarks(r io.Reader) ([]Mark, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		out       []Mark
		buffered  []Mark
		seq       int64
		first     = true
		openLabel string
		openSet   bool
	)

	for sc.Scan() {
		rec, mal := journal.DecodeLine(sc.Text())

		if first {
			first = false
			if mal == nil && rec.Kind == journal.KindSegmentBase {
				seq = rec.Base
				continue
			}
		}

		seq++
		if mal != nil {
			continue
		}

		switch rec.Kind {
		case journal.KindBeginFrame:
			buffered = buffered[:0]
			openSet = true
			openLabel = rec.FrameLabel

		case journal.KindMark:
			if openSet {
				buffered = append(buffered, Mark{
					Seq:        seq,
					FrameLabel: openLabel,
					Name:       rec.Name,
					Payload:    rec.Payload,
				})
			}

		case journal.KindEndFrame:
			if openSet && rec.FrameLabel == openLabel {
				out = append(out, buffered...)
				buffered = buffered[:0]
				openSet = false
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	return out, nil
}
