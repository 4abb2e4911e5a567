package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/provenance"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

// MarksOptions holds flags shared by the marks subcommands.
type MarksOptions struct {
	*RootOptions
	Database string
}

// NewMarksCommand creates the marks command group.
func NewMarksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MarksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "marks",
		Short: "Index and query provenance marks",
		Long: `Provenance marks are annotations recorded inside frames. They carry no
world state, but committed marks are queryable once indexed into a
SQLite database.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite mark index (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newMarksIndexCommand(opts))
	cmd.AddCommand(newMarksListCommand(opts))

	return cmd
}

// IndexMarksResult holds the index outcome for output.
type IndexMarksResult struct {
	Indexed int `json:"indexed"`
}

func newMarksIndexCommand(opts *MarksOptions) *cobra.Command {
	var logPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index committed marks from a journal",
		Long: `Read a journal and add every committed mark to the index. Marks inside
uncommitted frames are ignored. Re-indexing the same journal is a no-op
for marks already present.

Examples:
  worldlog marks index --db ./marks.db --log ./world.log`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarksIndex(opts, logPath, cmd)
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "path to journal file (required)")
	_ = cmd.MarkFlagRequired("log")

	return cmd
}

func runMarksIndex(opts *MarksOptions, logPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	idx, err := provenance.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open mark index", err)
	}
	defer idx.Close()

	n, err := idx.IndexLogFile(cmd.Context(), logPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to index journal", err)
	}

	if opts.Format == "json" {
		return formatter.Success(IndexMarksResult{Indexed: n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d new mark(s)\n", n)
	return nil
}

func newMarksListCommand(opts *MarksOptions) *cobra.Command {
	var filter provenance.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed marks",
		Long: `List marks from the index in sequence order, optionally filtered by
name, frame label, or a sequence range.

Examples:
  worldlog marks list --db ./marks.db
  worldlog marks list --db ./marks.db --name checkpoint --since 100`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarksList(opts, filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter.Name, "name", "", "only marks with this name")
	cmd.Flags().StringVar(&filter.Frame, "frame", "", "only marks from this frame label")
	cmd.Flags().Int64Var(&filter.SinceSeq, "since", 0, "only marks with sequence > this")
	cmd.Flags().Int64Var(&filter.UntilSeq, "until", 0, "only marks with sequence <= this")

	return cmd
}

func runMarksList(opts *MarksOptions, filter provenance.Filter, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	idx, err := provenance.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open mark index", err)
	}
	defer idx.Close()

	marks, err := idx.Query(cmd.Context(), filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	views, err := renderMarks(marks)
	if err != nil {
		return WrapExitError(ExitCommandError, "render failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(views)
	}

	out := cmd.OutOrStdout()
	if len(views) == 0 {
		fmt.Fprintln(out, "No marks found.")
		return nil
	}
	for _, m := range views {
		fmt.Fprintf(out, "%6d  %-20s %-20s %s\n", m.Seq, m.Name, m.Frame, m.Payload)
	}
	return nil
}

// markView is a Mark with its payload rendered as canonical JSON.
type markView struct {
	Seq     int64           `json:"seq"`
	Frame   string          `json:"frame"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

func renderMarks(marks []provenance.Mark) ([]markView, error) {
	views := make([]markView, 0, len(marks))
	for _, m := range marks {
		payload, err := value.MarshalCanonical(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("mark seq %d: %w", m.Seq, err)
		}
		views = append(views, markView{
			Seq:     m.Seq,
			Frame:   m.FrameLabel,
			Name:    m.Name,
			Payload: payload,
		})
	}
	return views, nil
}
