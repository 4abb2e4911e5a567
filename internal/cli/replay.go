package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/snapshot"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/wal"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/world"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Log      string
	Snapshot string // optional baseline snapshot
	From     int64  // skip records at or below this sequence
}

// ReplayResult holds the replay outcome for output.
type ReplayResult struct {
	Report wal.Report `json:"report"`
	Nodes  int        `json:"nodes"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a journal and report the recovered state",
		Long: `Replay a journal into a fresh world and print the replay report.

With --snapshot, the world is first restored from the snapshot document
and replay starts after its watermark, the same path a process restart
takes. Trailing incomplete frames are discarded, malformed lines are
skipped and counted; both show up in the report rather than aborting.

Exit codes:
  0 - Replay completed
  2 - Command error (log unreadable, snapshot corrupt, etc.)

Examples:
  worldlog replay --log ./world.log
  worldlog replay --log ./world.log --snapshot ./world.log.snapshot
  worldlog replay --log ./world.log --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Log, "log", "", "path to journal file (required)")
	_ = cmd.MarkFlagRequired("log")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "baseline snapshot to restore before replay")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "skip records at or below this sequence number")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	w, from, err := loadBaseline(opts.Snapshot, opts.From, formatter)
	if err != nil {
		return err
	}

	report, err := wal.ReplayFile(opts.Log, w, from)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{Report: report, Nodes: w.Len()}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// loadBaseline restores a world from an optional snapshot. Without a
// snapshot it returns a fresh world and the --from value unchanged.
func loadBaseline(path string, from int64, formatter *OutputFormatter) (*world.World, int64, error) {
	if path == "" {
		return world.New(), from, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}
	w, watermark, err := snapshot.Import(data)
	if err != nil {
		return nil, 0, WrapExitError(ExitCommandError, "failed to import snapshot", err)
	}
	formatter.VerboseLog("Restored %d node(s) from snapshot at watermark %d", w.Len(), watermark)

	if watermark > from {
		from = watermark
	}
	return w, from, nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()
	r := result.Report

	fmt.Fprintf(w, "Frames applied:   %d\n", r.FramesApplied)
	fmt.Fprintf(w, "Frames discarded: %d\n", r.FramesDiscarded)
	fmt.Fprintf(w, "Records skipped:  %d\n", r.RecordsSkipped)
	fmt.Fprintf(w, "Watermark:        %d\n", r.Watermark)
	fmt.Fprintf(w, "Nodes:            %d\n", result.Nodes)

	if r.IncompleteFrameDiscarded {
		fmt.Fprintf(w, "Incomplete trailing frame %q discarded\n", r.DiscardedFrameLabel)
	}
	if verbose {
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  skipped seq %d: %s\n", s.Seq, s.Reason)
		}
	}
	return nil
}
