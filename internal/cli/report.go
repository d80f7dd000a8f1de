package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/treeset"
)

// ReportOptions holds flags shared by the report subcommands.
type ReportOptions struct {
	*RootOptions
	Select     fileSelector
	Transitive bool
	Access     string
	Limit      int
}

// PathCountResult is one row of the most-accessed report.
type PathCountResult struct {
	Path      string `json:"path"`
	Accessors int    `json:"accessors"`
}

// NewReportCommand creates the report command group.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Answer provenance questions about the recorded build",
		Long: `Answer provenance questions about the recorded build.

derived and inputs start from the files selected by --pattern, --under,
--component and --not-in (all files when none is given).

Examples:
  buildml report derived --pattern main.c --transitive
  buildml report inputs --under /work/out
  buildml report accessors --pattern '*.h' --access read
  buildml report most-accessed --limit 10`,
	}

	cmd.AddCommand(
		newFileFlowCommand(rootOpts, "derived", "Files written by actions that read the selection", true),
		newFileFlowCommand(rootOpts, "inputs", "Files read by actions that wrote the selection", false),
		newAccessorsCommand(rootOpts),
		newAccessedByCommand(rootOpts),
		newFileReportCommand(rootOpts, "never-accessed", "Files no action read or wrote", func(ctx context.Context, a *app) (*treeset.Set, error) {
			return a.engine().FilesNeverAccessed(ctx)
		}),
		newFileReportCommand(rootOpts, "write-only", "Files written and never read", func(ctx context.Context, a *app) (*treeset.Set, error) {
			return a.engine().WriteOnlyFiles(ctx)
		}),
		newMostAccessedCommand(rootOpts),
	)
	return cmd
}

func newFileFlowCommand(rootOpts *RootOptions, use, short string, derived bool) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFileReport(opts.RootOptions, cmd, func(ctx context.Context, a *app) (*treeset.Set, error) {
				in, err := opts.Select.resolve(ctx, a)
				if err != nil {
					return nil, err
				}
				if derived {
					return a.engine().DerivedFiles(ctx, in, opts.Transitive)
				}
				return a.engine().InputFiles(ctx, in, opts.Transitive)
			})
		},
	}
	opts.Select.bind(cmd.Flags())
	cmd.Flags().BoolVar(&opts.Transitive, "transitive", false, "follow the flow until nothing new appears")
	return cmd
}

func newFileReportCommand(rootOpts *RootOptions, use, short string, eval func(context.Context, *app) (*treeset.Set, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFileReport(rootOpts, cmd, eval)
		},
	}
}

func runFileReport(opts *RootOptions, cmd *cobra.Command, eval func(context.Context, *app) (*treeset.Set, error)) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	set, err := eval(ctx, a)
	if err != nil {
		return queryFailed(cmd.Name(), err)
	}
	paths, err := a.fullPaths(ctx, set)
	if err != nil {
		return queryFailed(cmd.Name(), err)
	}
	return a.out.Success(paths, func(w io.Writer) error {
		return writeLines(w, paths)
	})
}

func newAccessorsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "accessors",
		Short: "Actions that touched the selected files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ir.ParseAccessType(opts.Access)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --access", err)
			}
			a, err := openApp(opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := commandContext(cmd)
			files, err := opts.Select.resolve(ctx, a)
			if err != nil {
				return queryFailed("select files", err)
			}
			acts, err := a.engine().AccessorsOf(ctx, files, filter)
			if err != nil {
				return queryFailed("accessors", err)
			}
			summaries, err := a.actionSummaries(ctx, acts)
			if err != nil {
				return queryFailed("accessors", err)
			}
			return a.out.Success(summaries, func(w io.Writer) error {
				for _, s := range summaries {
					if _, err := fmt.Fprintf(w, "%d\t%s\n", s.ID, s.Command); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	opts.Select.bind(cmd.Flags())
	cmd.Flags().StringVar(&opts.Access, "access", "any", "access filter (read|write|any)")
	return cmd
}

func newAccessedByCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "accessed-by <action-id>...",
		Short: "Files the given actions touched",
		Long: `Files the given actions touched. Action IDs are those printed by
report accessors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ir.ParseAccessType(opts.Access)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --access", err)
			}
			return runFileReport(opts.RootOptions, cmd, func(ctx context.Context, a *app) (*treeset.Set, error) {
				acts, err := a.graph.NewActionSet(ctx)
				if err != nil {
					return nil, err
				}
				for _, arg := range args {
					id, err := strconv.Atoi(arg)
					if err != nil || !a.graph.IsValid(ctx, ir.ActionID(id)) {
						return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown action %q", arg))
					}
					acts.Add(id)
				}
				return a.engine().FilesAccessedBy(ctx, acts, filter)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Access, "access", "any", "access filter (read|write|any)")
	return cmd
}

func newMostAccessedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "most-accessed",
		Short: "Files touched by the most distinct actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			limit := opts.Limit
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Report.MostAccessedLimit
			}

			ctx := commandContext(cmd)
			counts, err := a.engine().MostAccessed(ctx, limit)
			if err != nil {
				return queryFailed("most accessed", err)
			}
			rows := make([]PathCountResult, 0, len(counts))
			for _, c := range counts {
				p, err := a.ns.FullPath(ctx, c.PathID)
				if err != nil {
					return queryFailed("most accessed", err)
				}
				rows = append(rows, PathCountResult{Path: p, Accessors: c.Count})
			}
			return a.out.Success(rows, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%s\n", r.Accessors, r.Path)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "number of files to list (default from config)")
	return cmd
}
