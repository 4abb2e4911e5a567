package wal

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/snapshot"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/world"
)

func writeFrames(t *testing.T, l *Log, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f, err := l.Begin("tick")
		require.NoError(t, err)
		_, err = f.SetPath("rect1.x", value.Int(int64(i)))
		require.NoError(t, err)
		require.NoError(t, f.End())
	}
}

func TestRotateUnderThresholdNoOp(t *testing.T) {
	l, path := newTestLog(t)
	writeFrames(t, l, 1)

	res, err := l.Rotate(1 << 20)
	require.NoError(t, err)

	assert.False(t, res.Rotated)
	assert.Greater(t, res.SizeBytes, int64(0))
	_, err = os.Stat(SnapshotPath(path))
	assert.True(t, os.IsNotExist(err), "no snapshot on no-op rotation")
}

func TestRotateOverThreshold(t *testing.T) {
	l, path := newTestLog(t)
	writeFrames(t, l, 3)
	watermark := l.Writer().Watermark()

	res, err := l.Rotate(1)
	require.NoError(t, err)

	require.True(t, res.Rotated)
	assert.Equal(t, watermark, res.Watermark)
	assert.Equal(t, SnapshotPath(path), res.SnapshotPath)

	// The archive holds the old records.
	archived, err := os.ReadFile(res.ArchivePath)
	require.NoError(t, err)
	assert.Contains(t, string(archived), "BEGIN tick")

	// The fresh segment holds only the preamble.
	fresh, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "LOG 9\n", string(fresh))

	// Appending continues the sequence.
	f, err := l.Begin("after")
	require.NoError(t, err)
	assert.Equal(t, watermark+1, f.StartSeq)
	require.NoError(t, f.End())
}

func TestRotationSafety(t *testing.T) {
	// Snapshot plus fresh segment reconstruct exactly the
	// pre-rotation state.
	l, path := newTestLog(t)

	f, err := l.Begin("setup")
	require.NoError(t, err)
	_, err = f.SetPath("rect1.x", value.Int(50))
	require.NoError(t, err)
	_, err = f.SetPath("rect1.color", value.String("red"))
	require.NoError(t, err)
	require.NoError(t, f.End())

	before := snapshotWorld(t, l.World())

	res, err := l.Rotate(1)
	require.NoError(t, err)
	require.True(t, res.Rotated)

	// Post-rotation mutation lands in the fresh segment.
	f, err = l.Begin("after")
	require.NoError(t, err)
	_, err = f.SetPath("rect1.x", value.Int(99))
	require.NoError(t, err)
	require.NoError(t, f.End())

	// Restart path: import the snapshot, replay the fresh segment.
	doc, err := os.ReadFile(res.SnapshotPath)
	require.NoError(t, err)
	restored, watermark, err := snapshot.Import(doc)
	require.NoError(t, err)
	assert.True(t, world.Equal(before, restored), "snapshot equals pre-rotation state")

	report, err := ReplayFile(path, restored, watermark)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FramesApplied)
	assert.True(t, world.Equal(l.World(), restored))
}

func TestRotateWithOpenFrame(t *testing.T) {
	l, _ := newTestLog(t)
	writeFrames(t, l, 2)

	f, err := l.Begin("open")
	require.NoError(t, err)

	_, err = l.Rotate(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpenFrameOnRotate)

	require.NoError(t, f.End())
}

func TestRotateFailureLeavesLogUntouched(t *testing.T) {
	l, path := newTestLog(t)
	writeFrames(t, l, 2)

	original, err := os.ReadFile(path)
	require.NoError(t, err)

	// Make the snapshot write fail by occupying its temp path with a
	// directory.
	tmp := SnapshotPath(path) + ".tmp"
	require.NoError(t, os.Mkdir(tmp, 0o755))

	_, err = l.Rotate(1)
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(after), "failed rotation must not touch the log")

	// And the log still accepts appends.
	require.NoError(t, os.Remove(tmp))
	writeFrames(t, l, 1)
}

func TestArchiveNamesDoNotCollide(t *testing.T) {
	l, path := newTestLog(t)

	var archives []string
	for i := 0; i < 3; i++ {
		writeFrames(t, l, 1)
		res, err := l.Rotate(1)
		require.NoError(t, err)
		require.True(t, res.Rotated)
		archives = append(archives, res.ArchivePath)
	}

	seen := map[string]bool{}
	for _, a := range archives {
		assert.False(t, seen[a], "duplicate archive path %s", a)
		seen[a] = true
		assert.True(t, strings.HasPrefix(a, path+"."))
	}
}

// snapshotWorld round-trips the world through a snapshot to get an
// independent copy for comparison.
func snapshotWorld(t *testing.T, w *world.World) *world.World {
	t.Helper()
	doc, err := snapshot.Export(w, 0)
	require.NoError(t, err)
	copied, _, err := snapshot.Import(doc)
	require.NoError(t, err)
	return copied
}

func TestSnapshotPathNaming(t *testing.T) {
	assert.Equal(t, "/tmp/world.log.snapshot", SnapshotPath("/tmp/world.log"))
}
