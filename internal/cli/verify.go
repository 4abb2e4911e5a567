package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/cobra"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/snapshot"
)

//go:embed schema.cue
var snapshotSchema string

// VerifyResult holds the verification outcome for output.
type VerifyResult struct {
	Path      string   `json:"path"`
	Valid     bool     `json:"valid"`
	Watermark int64    `json:"watermark,omitempty"`
	Nodes     int      `json:"nodes,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <snapshot-file>",
		Short: "Verify a snapshot document against its schema and checksum",
		Long: `Verify that a snapshot document is structurally valid and that its
content checksum matches. Both checks run; all problems are reported
at once.

Exit codes:
  0 - Snapshot is valid
  1 - Verification failed (schema violation or checksum mismatch)
  2 - Command error (file not found, etc.)

Examples:
  worldlog verify ./world.log.snapshot
  worldlog verify ./world.log.snapshot --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}

	result := VerifyResult{Path: path, Valid: true}
	result.Errors = append(result.Errors, validateSchema(data)...)

	// Import re-derives the checksum and rejects mismatches.
	w, watermark, err := snapshot.Import(data)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.Watermark = watermark
		result.Nodes = w.Len()
	}
	result.Valid = len(result.Errors) == 0

	if opts.Format == "json" {
		if !result.Valid {
			if err := formatter.Success(result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "snapshot verification failed")
		}
		return formatter.Success(result)
	}

	out := cmd.OutOrStdout()
	if result.Valid {
		fmt.Fprintf(out, "OK: %d node(s) at watermark %d\n", result.Nodes, result.Watermark)
		return nil
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(out, "invalid: %s\n", msg)
	}
	return NewExitError(ExitFailure, "snapshot verification failed")
}

// validateSchema checks the document against the embedded CUE schema.
// A JSON document is valid CUE, so it compiles directly.
func validateSchema(data []byte) []string {
	ctx := cuecontext.New()

	schema := ctx.CompileString(snapshotSchema).LookupPath(cue.ParsePath("#Snapshot"))
	if err := schema.Err(); err != nil {
		return []string{fmt.Sprintf("internal schema error: %v", err)}
	}

	doc := ctx.CompileBytes(data)
	if err := doc.Err(); err != nil {
		return []string{fmt.Sprintf("not a structured document: %v", err)}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var msgs []string
		for _, e := range cueerrors.Errors(err) {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return nil
}
