package provenance

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	x, err := Open(filepath.Join(t.TempDir(), "marks.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { x.Close() })
	return x
}

const sampleLog = `BEGIN tick-1
SET rect1.x 50
MARK origin {"actor":"persona","tick":1}
END tick-1
BEGIN tick-2
MARK origin {"actor":"persona","tick":2}
MARK debug {"note":"resize"}
END tick-2
BEGIN tick-3
MARK origin {"actor":"persona","tick":3}
`

func TestIndexLogCommittedMarksOnly(t *testing.T) {
	x := openTestIndex(t)

	inserted, err := x.IndexLog(context.Background(), strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("IndexLog() failed: %v", err)
	}
	// tick-3 never ended, so its mark must not be indexed.
	if inserted != 3 {
		t.Fatalf("inserted = %d, want 3", inserted)
	}

	marks, err := x.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(marks) != 3 {
		t.Fatalf("len(marks) = %d, want 3", len(marks))
	}
	for _, m := range marks {
		if m.FrameLabel == "tick-3" {
			t.Errorf("mark from unterminated frame tick-3 was indexed")
		}
	}
}

func TestIndexLogIdempotent(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()

	if _, err := x.IndexLog(ctx, strings.NewReader(sampleLog)); err != nil {
		t.Fatalf("first IndexLog() failed: %v", err)
	}
	inserted, err := x.IndexLog(ctx, strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("second IndexLog() failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second ingest inserted = %d, want 0", inserted)
	}

	marks, err := x.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(marks) != 3 {
		t.Errorf("len(marks) = %d, want 3", len(marks))
	}
}

func TestQueryFilters(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()

	if _, err := x.IndexLog(ctx, strings.NewReader(sampleLog)); err != nil {
		t.Fatalf("IndexLog() failed: %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"by name", Filter{Name: "origin"}, 2},
		{"by frame", Filter{Frame: "tick-2"}, 2},
		{"name and frame", Filter{Name: "origin", Frame: "tick-2"}, 1},
		{"since seq", Filter{SinceSeq: 4}, 2},
		{"until seq", Filter{UntilSeq: 4}, 1},
		{"no match", Filter{Name: "absent"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marks, err := x.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if len(marks) != tt.want {
				t.Errorf("len(marks) = %d, want %d", len(marks), tt.want)
			}
		})
	}
}

func TestQueryOrderedBySeq(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()

	if _, err := x.IndexLog(ctx, strings.NewReader(sampleLog)); err != nil {
		t.Fatalf("IndexLog() failed: %v", err)
	}

	marks, err := x.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	for i := 1; i < len(marks); i++ {
		if marks[i].Seq <= marks[i-1].Seq {
			t.Errorf("marks out of order: seq %d after %d", marks[i].Seq, marks[i-1].Seq)
		}
	}
}

func TestQueryPayloadRoundTrip(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()

	if _, err := x.IndexLog(ctx, strings.NewReader(sampleLog)); err != nil {
		t.Fatalf("IndexLog() failed: %v", err)
	}

	marks, err := x.Query(ctx, Filter{Name: "debug"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(marks) != 1 {
		t.Fatalf("len(marks) = %d, want 1", len(marks))
	}

	want := value.Object{"note": value.String("resize")}
	if !value.Equal(want, marks[0].Payload) {
		t.Errorf("payload = %#v, want %#v", marks[0].Payload, want)
	}
}

func TestIndexLogWithSegmentPreamble(t *testing.T) {
	x := openTestIndex(t)
	ctx := context.Background()

	log := "LOG 10\nBEGIN f1\nMARK origin {\"tick\":1}\nEND f1\n"
	if _, err := x.IndexLog(ctx, strings.NewReader(log)); err != nil {
		t.Fatalf("IndexLog() failed: %v", err)
	}

	marks, err := x.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(marks) != 1 {
		t.Fatalf("len(marks) = %d, want 1", len(marks))
	}
	if marks[0].Seq != 12 {
		t.Errorf("seq = %d, want 12 (preamble base 10 + line 2)", marks[0].Seq)
	}
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.db")

	x1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	x1.Close()

	x2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	x2.Close()
}
