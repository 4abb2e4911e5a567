package harness

import (
	"fmt"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

// evaluate checks every assertion and returns one message per failure.
// All assertions run even after a failure, so a broken scenario
// reports everything wrong at once.
func evaluate(scenario *Scenario, result *Result) []string {
	var failures []string

	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	for i, a := range scenario.Assertions {
		switch a.Type {
		case AssertFinalState:
			expected, err := value.FromAny(a.Value)
			if err != nil {
				fail("assertion %d: bad expected value: %v", i, err)
				continue
			}
			got, ok, err := lookupPath(result.World, a.Path)
			if err != nil {
				fail("assertion %d: %v", i, err)
				continue
			}
			if !ok {
				fail("final_state %s: attribute not present after replay", a.Path)
				continue
			}
			if !value.Equal(expected, got) {
				fail("final_state %s: got %s, want %s", a.Path, renderValue(got), renderValue(expected))
			}

		case AssertAbsent:
			_, ok, err := lookupPath(result.World, a.Path)
			if err != nil {
				fail("assertion %d: %v", i, err)
				continue
			}
			if ok {
				fail("absent %s: attribute unexpectedly present after replay", a.Path)
			}

		case AssertStateEmpty:
			if result.World.Len() != 0 {
				fail("state_empty: world has %d nodes after replay", result.World.Len())
			}

		case AssertReport:
			if a.FramesApplied != nil && result.Report.FramesApplied != *a.FramesApplied {
				fail("report: frames_applied = %d, want %d", result.Report.FramesApplied, *a.FramesApplied)
			}
			if a.RecordsSkipped != nil && result.Report.RecordsSkipped != *a.RecordsSkipped {
				fail("report: records_skipped = %d, want %d", result.Report.RecordsSkipped, *a.RecordsSkipped)
			}
			if a.IncompleteFrameDiscarded != nil && result.Report.IncompleteFrameDiscarded != *a.IncompleteFrameDiscarded {
				fail("report: incomplete_frame_discarded = %v, want %v",
					result.Report.IncompleteFrameDiscarded, *a.IncompleteFrameDiscarded)
			}
		}
	}

	return failures
}

// renderValue formats a value for failure messages.
func renderValue(v value.Value) string {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
