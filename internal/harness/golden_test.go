package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// The scenarios under testdata/ exercise the full write-crash-replay
// path and pin the replay report plus the final world snapshot against
// golden files. Regenerate with -update after intentional format
// changes.
func TestGoldenScenarios(t *testing.T) {
	names := []string{
		"commit-two-frames",
		"crash-mid-frame",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)
			RunWithGolden(t, s)
		})
	}
}
