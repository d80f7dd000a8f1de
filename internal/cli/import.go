package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildml/internal/interp"
)

// ImportResult is the outcome of ingesting one trace file.
type ImportResult struct {
	Trace string       `json:"trace"`
	Stats interp.Stats `json:"stats"`
	Error string       `json:"error,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <trace>...",
		Short: "Ingest build traces into the database",
		Long: `Ingest one or more binary build traces, raw or gzip-compressed.

Each trace is applied in order as its own session. If a trace is damaged
or the command is interrupted, everything up to the last complete record
is kept and the session is marked failed or cancelled.

Examples:
  buildml import build.trace.gz
  buildml --db out/build.db import a.trace b.trace --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, cmd *cobra.Command, args []string) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	in := a.interpreter()

	results := make([]ImportResult, 0, len(args))
	var failed error
	for _, path := range args {
		stats, err := in.IngestFile(ctx, path)
		res := ImportResult{Trace: path, Stats: stats}
		if err != nil {
			res.Error = err.Error()
			failed = WrapExitError(ExitFailure, fmt.Sprintf("import %s stopped early", path), err)
		}
		results = append(results, res)
		if failed != nil {
			break
		}
	}

	if err := a.out.Success(results, func(w io.Writer) error {
		for _, r := range results {
			writeImportResult(w, r)
		}
		return nil
	}); err != nil {
		return err
	}
	return failed
}

func writeImportResult(w io.Writer, r ImportResult) {
	s := r.Stats
	status := "imported"
	if r.Error != "" {
		status = "partially imported"
	}
	fmt.Fprintf(w, "%s %s: %d records, %d actions, %d paths, %d accesses\n",
		status, r.Trace, s.Records, s.Actions, s.Paths, s.Accesses)
	if s.UnknownProcesses > 0 || s.Skipped > 0 {
		fmt.Fprintf(w, "  %d unknown processes, %d records skipped\n", s.UnknownProcesses, s.Skipped)
	}
	fmt.Fprintf(w, "  session %s\n", s.SessionID)
}
