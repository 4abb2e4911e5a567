// Package harness runs conformance scenarios against the real WAL
// path: frames are written through wal.Log into an actual log file,
// crash and corruption conditions are injected by editing that file,
// and the result is obtained by replaying it into a fresh world -
// exactly the restart path production takes.
//
// Scenarios live in YAML so the durability properties (atomicity under
// truncation, malformed tolerance, last-write-wins) read as data
// rather than test plumbing, and golden files pin the replay report
// and final state byte-for-byte.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/journal"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/wal"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/world"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Report is the replay report from the fresh-world replay.
	Report wal.Report

	// World is the world produced by replay (not the live one).
	World *world.World

	// LogPath is the journal file the scenario wrote (inside dir).
	LogPath string

	// Failures holds assertion failures. Empty means the scenario
	// passed.
	Failures []string
}

// Passed reports whether all assertions held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario in dir (a fresh temp directory in tests).
//
// Execution flow:
//  1. Write all frames through the real frame/log path
//  2. Inject crash (truncation) or corruption into the log file
//  3. Replay the log into a fresh world
//  4. Evaluate assertions against the world and the report
func Run(scenario *Scenario, dir string) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	logPath := filepath.Join(dir, "world.log")
	writer, err := wal.OpenWriter(logPath)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	log := wal.NewLog(writer, world.New())

	for _, fs := range scenario.Frames {
		if err := runFrame(log, fs); err != nil {
			writer.Close()
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	if scenario.TruncateAfter > 0 {
		if err := truncateLines(logPath, scenario.TruncateAfter); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
	}
	if scenario.CorruptLine > 0 {
		if err := corruptLine(logPath, scenario.CorruptLine); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
	}

	fresh := world.New()
	report, err := wal.ReplayFile(logPath, fresh, 0)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	result := &Result{
		Report:  report,
		World:   fresh,
		LogPath: logPath,
	}
	result.Failures = evaluate(scenario, result)
	return result, nil
}

// runFrame writes one scripted frame through the live path.
func runFrame(log *wal.Log, fs FrameScript) error {
	f, err := log.Begin(fs.Label)
	if err != nil {
		return err
	}

	for _, step := range fs.Steps {
		switch {
		case step.Set != "":
			v, err := value.FromAny(step.Value)
			if err != nil {
				return fmt.Errorf("frame %q set %s: %w", fs.Label, step.Set, err)
			}
			if _, err := f.SetPath(step.Set, v); err != nil {
				return fmt.Errorf("frame %q: %w", fs.Label, err)
			}
		case step.Mark != "":
			p, err := value.FromAny(step.Payload)
			if err != nil {
				return fmt.Errorf("frame %q mark %s: %w", fs.Label, step.Mark, err)
			}
			if _, err := f.Mark(step.Mark, p); err != nil {
				return fmt.Errorf("frame %q: %w", fs.Label, err)
			}
		}
	}

	return f.End()
}

// truncateLines cuts the file down to its first n lines, simulating a
// crash between appends.
func truncateLines(path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.SplitAfter(string(data), "\n")
	if n > len(lines) {
		n = len(lines)
	}
	return os.WriteFile(path, []byte(strings.Join(lines[:n], "")), 0o644)
}

// corruptLine overwrites line n (1-based) with bytes that decode as no
// journal record, simulating on-disk damage.
func corruptLine(path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if n > len(lines) {
		return fmt.Errorf("corrupt_line %d: log has only %d lines", n, len(lines))
	}
	lines[n-1] = "\x00corrupted\x00"
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// lookupPath resolves a "<node>.<attribute>" path in a world.
func lookupPath(w *world.World, path string) (value.Value, bool, error) {
	p, err := journal.ParsePath(path)
	if err != nil {
		return nil, false, err
	}
	v, ok := w.Get(p.Node, p.Attribute)
	return v, ok, nil
}
