package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a scripted sequence of
// frames written through the real WAL path, an optional simulated
// crash, then replay into a fresh world and assertions on the result.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden
	// file when the scenario runs under RunWithGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Frames are executed in order through Begin/Set/Mark/End.
	Frames []FrameScript `yaml:"frames"`

	// TruncateAfter simulates a crash: after all frames are written,
	// the log file is cut down to its first N lines before replay.
	// Zero means no truncation.
	TruncateAfter int `yaml:"truncate_after,omitempty"`

	// CorruptLine simulates on-disk damage: the 1-based line number to
	// overwrite with garbage before replay. Zero means no corruption.
	CorruptLine int `yaml:"corrupt_line,omitempty"`

	// Assertions validate the replayed world and the replay report.
	Assertions []Assertion `yaml:"assertions"`
}

// FrameScript is one frame of the scenario flow.
type FrameScript struct {
	// Label names the frame. Required.
	Label string `yaml:"label"`

	// Steps run between Begin and End, in order.
	Steps []Step `yaml:"steps"`
}

// Step is a single operation inside a frame. Exactly one of Set or
// Mark must be present.
type Step struct {
	// Set is the "<node>.<attribute>" target path of a mutation.
	Set string `yaml:"set,omitempty"`

	// Value is the mutation value (used with Set).
	Value any `yaml:"value,omitempty"`

	// Mark is the name of a provenance mark.
	Mark string `yaml:"mark,omitempty"`

	// Payload is the mark payload (used with Mark).
	Payload any `yaml:"payload,omitempty"`
}

// Assertion types.
const (
	// AssertFinalState checks one attribute of the replayed world.
	AssertFinalState = "final_state"

	// AssertStateEmpty checks that the replayed world has no nodes.
	AssertStateEmpty = "state_empty"

	// AssertAbsent checks that a path is NOT present after replay.
	AssertAbsent = "absent"

	// AssertReport checks fields of the replay report.
	AssertReport = "report"
)

// Assertion validates the replayed world or the replay report.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is the "<node>.<attribute>" target (final_state, absent).
	Path string `yaml:"path,omitempty"`

	// Value is the expected attribute value (final_state).
	Value any `yaml:"value,omitempty"`

	// FramesApplied is the expected applied-frame count (report).
	FramesApplied *int `yaml:"frames_applied,omitempty"`

	// RecordsSkipped is the expected skipped-record count (report).
	RecordsSkipped *int `yaml:"records_skipped,omitempty"`

	// IncompleteFrameDiscarded is the expected trailing-discard flag
	// (report).
	IncompleteFrameDiscarded *bool `yaml:"incomplete_frame_discarded,omitempty"`
}

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks structural requirements before a scenario runs.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if len(s.Frames) == 0 {
		return fmt.Errorf("scenario %q has no frames", s.Name)
	}
	for i, f := range s.Frames {
		if f.Label == "" {
			return fmt.Errorf("frame %d has no label", i)
		}
		for j, step := range f.Steps {
			hasSet := step.Set != ""
			hasMark := step.Mark != ""
			if hasSet == hasMark {
				return fmt.Errorf("frame %q step %d: exactly one of set/mark required", f.Label, j)
			}
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertFinalState, AssertAbsent:
			if a.Path == "" {
				return fmt.Errorf("assertion %d (%s) has no path", i, a.Type)
			}
		case AssertStateEmpty, AssertReport:
		default:
			return fmt.Errorf("assertion %d has unknown type %q", i, a.Type)
		}
	}
	return nil
}
