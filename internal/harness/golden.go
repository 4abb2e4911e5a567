package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/snapshot"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/wal"
)

// goldenDocument pins a scenario's full observable outcome: the replay
// report and the snapshot of the replayed world. Compact JSON, struct
// field order, canonical value encoding - byte-stable across runs.
type goldenDocument struct {
	ScenarioName string          `json:"scenario_name"`
	Report       wal.Report      `json:"report"`
	Snapshot     json.RawMessage `json:"snapshot"`
}

// RunWithGolden executes a scenario and compares its outcome against
// a golden file in testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Assertion failures from the scenario itself fail the test before the
// golden comparison runs.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario, t.TempDir())
	if err != nil {
		t.Fatalf("scenario %q: %v", scenario.Name, err)
	}
	for _, f := range result.Failures {
		t.Errorf("scenario %q: %s", scenario.Name, f)
	}

	doc, err := renderGolden(scenario.Name, result)
	if err != nil {
		t.Fatalf("scenario %q: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, doc)

	return result
}

// renderGolden serializes the golden document for a result.
func renderGolden(name string, result *Result) ([]byte, error) {
	snap, err := snapshot.Export(result.World, result.Report.Watermark)
	if err != nil {
		return nil, fmt.Errorf("render golden: %w", err)
	}

	doc := goldenDocument{
		ScenarioName: name,
		Report:       result.Report,
		Snapshot:     json.RawMessage(bytes.TrimSpace(snap)),
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render golden: %w", err)
	}
	return append(out, '\n'), nil
}
