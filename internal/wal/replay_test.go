package wal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/testutil"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/world"
)

func replayString(t *testing.T, log string) (*world.World, Report) {
	t.Helper()
	w := world.New()
	report, err := Replay(strings.NewReader(log), w, 0)
	require.NoError(t, err)
	return w, report
}

func TestReplayWellFormedLog(t *testing.T) {
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"SET rect1.color \"red\"\n" +
		"END f1\n"

	w, report := replayString(t, log)

	assert.Equal(t, 1, report.FramesApplied)
	assert.Equal(t, 0, report.RecordsSkipped)
	assert.False(t, report.IncompleteFrameDiscarded)
	assert.Equal(t, int64(4), report.Watermark)

	v, ok := w.Get("rect1", "x")
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(50), v))
	v, ok = w.Get("rect1", "color")
	require.True(t, ok)
	assert.True(t, value.Equal(value.String("red"), v))
}

func TestReplayTruncatedFrameDiscarded(t *testing.T) {
	// Crash simulated by truncating the log before END: none of the
	// frame's mutations may appear.
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"SET rect1.color \"red\"\n"

	w, report := replayString(t, log)

	assert.Equal(t, 0, report.FramesApplied)
	assert.True(t, report.IncompleteFrameDiscarded)
	assert.Equal(t, "f1", report.DiscardedFrameLabel)
	assert.Equal(t, 0, w.Len())
}

func TestReplayAtomicityAtEveryTruncationPoint(t *testing.T) {
	lines := []string{
		"BEGIN f1",
		"SET rect1.x 50",
		"SET rect1.color \"red\"",
		"END f1",
	}

	// Truncate strictly before END: nothing from the frame applies.
	for cut := 0; cut < len(lines); cut++ {
		log := strings.Join(lines[:cut], "\n")
		if cut > 0 {
			log += "\n"
		}
		w, report := replayString(t, log)
		assert.Equal(t, 0, w.Len(), "cut at line %d", cut)
		assert.Equal(t, 0, report.FramesApplied, "cut at line %d", cut)
	}

	// Full log: everything applies.
	w, report := replayString(t, strings.Join(lines, "\n")+"\n")
	assert.Equal(t, 1, report.FramesApplied)
	assert.Len(t, w.Node("rect1").Attributes(), 2)
}

func TestReplayIdempotent(t *testing.T) {
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"END f1\n" +
		"BEGIN f2\n" +
		"SET rect1.x 80\n" +
		"SET rect2.y 7\n" +
		"END f2\n"

	once, _ := replayString(t, log)

	// Replaying twice into the same store changes nothing.
	twice := world.New()
	_, err := Replay(strings.NewReader(log), twice, 0)
	require.NoError(t, err)
	_, err = Replay(strings.NewReader(log), twice, 0)
	require.NoError(t, err)

	assert.True(t, world.Equal(once, twice))
}

func TestReplayLastWriteWins(t *testing.T) {
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"END f1\n" +
		"BEGIN f2\n" +
		"SET rect1.x 80\n" +
		"END f2\n"

	w, report := replayString(t, log)

	assert.Equal(t, 2, report.FramesApplied)
	v, ok := w.Get("rect1", "x")
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(80), v))
}

func TestReplayMalformedLineSkippedFrameSurvives(t *testing.T) {
	// One corrupted line inside a terminated frame: that record is
	// skipped and reported, the rest of the frame still applies.
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"SET rect1.color \x01garbage\n" +
		"SET rect1.y 9\n" +
		"END f1\n"

	w, report := replayString(t, log)

	assert.Equal(t, 1, report.FramesApplied)
	assert.Equal(t, 1, report.RecordsSkipped)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, int64(3), report.Skipped[0].Seq)

	v, ok := w.Get("rect1", "x")
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(50), v))
	v, ok = w.Get("rect1", "y")
	require.True(t, ok)
	assert.True(t, value.Equal(value.Int(9), v))
	_, ok = w.Get("rect1", "color")
	assert.False(t, ok)
}

func TestReplayMalformedBetweenFramesDoesNotDisturbNeighbors(t *testing.T) {
	log := "BEGIN f1\n" +
		"SET rect1.x 1\n" +
		"END f1\n" +
		"total nonsense line\n" +
		"BEGIN f2\n" +
		"SET rect2.y 2\n" +
		"END f2\n"

	w, report := replayString(t, log)

	assert.Equal(t, 2, report.FramesApplied)
	assert.Equal(t, 1, report.RecordsSkipped)
	_, ok := w.Get("rect1", "x")
	assert.True(t, ok)
	_, ok = w.Get("rect2", "y")
	assert.True(t, ok)
}

func TestReplayRecordsOutsideFrameSkipped(t *testing.T) {
	log := "SET rect1.x 50\n" +
		"MARK stray {\"a\":1}\n" +
		"END ghost\n" +
		"BEGIN f1\n" +
		"SET rect1.x 60\n" +
		"END f1\n"

	w, report := replayString(t, log)

	assert.Equal(t, 1, report.FramesApplied)
	assert.Equal(t, 3, report.RecordsSkipped)
	v, _ := w.Get("rect1", "x")
	assert.True(t, value.Equal(value.Int(60), v))
}

func TestReplayBeginWhileOpenDiscardsEarlierFrame(t *testing.T) {
	// A frame that never ended, followed by a new BEGIN (e.g. crash
	// recovery wrote a fresh frame after restart without replay-trim).
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"BEGIN f2\n" +
		"SET rect2.y 7\n" +
		"END f2\n"

	w, report := replayString(t, log)

	assert.Equal(t, 1, report.FramesApplied)
	assert.Equal(t, 1, report.FramesDiscarded)
	_, ok := w.Get("rect1", "x")
	assert.False(t, ok, "unterminated frame must not apply")
	_, ok = w.Get("rect2", "y")
	assert.True(t, ok)
}

func TestReplayMismatchedEndSkipped(t *testing.T) {
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"END wrong\n" +
		"END f1\n"

	w, report := replayString(t, log)

	assert.Equal(t, 1, report.FramesApplied)
	assert.Equal(t, 1, report.RecordsSkipped)
	_, ok := w.Get("rect1", "x")
	assert.True(t, ok)
}

func TestReplayEmptyLog(t *testing.T) {
	w, report := replayString(t, "")

	assert.Equal(t, 0, report.FramesApplied)
	assert.Equal(t, int64(0), report.Watermark)
	assert.Equal(t, 0, w.Len())
}

func TestReplaySegmentPreambleSetsBase(t *testing.T) {
	log := "LOG 40\n" +
		"BEGIN f1\n" +
		"SET rect1.x 1\n" +
		"END f1\n"

	w, report := replayString(t, log)

	assert.Equal(t, 1, report.FramesApplied)
	assert.Equal(t, int64(43), report.Watermark)
	_, ok := w.Get("rect1", "x")
	assert.True(t, ok)
}

func TestReplayPreambleMidFileSkipped(t *testing.T) {
	log := "BEGIN f1\n" +
		"LOG 99\n" +
		"END f1\n"

	_, report := replayString(t, log)

	assert.Equal(t, 1, report.FramesApplied)
	assert.Equal(t, 1, report.RecordsSkipped)
	assert.Equal(t, int64(3), report.Watermark)
}

func TestReplayFromWatermarkSkipsCoveredFrames(t *testing.T) {
	log := "BEGIN f1\n" +
		"SET rect1.x 50\n" +
		"END f1\n" + // END at seq 3
		"BEGIN f2\n" +
		"SET rect2.y 7\n" +
		"END f2\n" // END at seq 6

	w := world.New()
	report, err := Replay(strings.NewReader(log), w, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FramesApplied)
	_, ok := w.Get("rect1", "x")
	assert.False(t, ok, "frame covered by watermark must not reapply")
	_, ok = w.Get("rect2", "y")
	assert.True(t, ok)
	assert.Equal(t, int64(6), report.Watermark)
}

func TestReplayFileEndToEnd(t *testing.T) {
	// Write through the real frame path, then replay the file into a
	// fresh world and compare with the live one.
	path := filepath.Join(t.TempDir(), "world.log")
	wr, err := OpenWriter(path)
	require.NoError(t, err)
	defer wr.Close()
	l := NewLog(wr, world.New())
	labels := testutil.NewLabelSequence("tick")

	f, err := l.Begin(labels.Next())
	require.NoError(t, err)
	_, err = f.SetPath("rect1.x", value.Int(50))
	require.NoError(t, err)
	_, err = f.SetPath("rect1.color", value.String("red"))
	require.NoError(t, err)
	require.NoError(t, f.End())

	f, err = l.Begin(labels.Next())
	require.NoError(t, err)
	_, err = f.SetPath("rect1.x", value.Int(80))
	require.NoError(t, err)
	_, err = f.Mark("origin", value.Object{"tick": value.Int(2)})
	require.NoError(t, err)
	require.NoError(t, f.End())

	fresh := world.New()
	report, err := ReplayFile(path, fresh, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FramesApplied)
	assert.Equal(t, int64(8), report.Watermark)
	assert.Equal(t, report.Watermark, wr.Watermark())
	assert.True(t, world.Equal(l.World(), fresh))
}

func TestReplayFileMissing(t *testing.T) {
	_, err := ReplayFile(filepath.Join(t.TempDir(), "absent.log"), world.New(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
