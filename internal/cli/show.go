package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/query"
)

// NewShowCommand creates the show command group.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show files and actions recorded in the database",
	}
	cmd.AddCommand(newShowFilesCommand(rootOpts), newShowActionsCommand(rootOpts))
	return cmd
}

func newShowFilesCommand(rootOpts *RootOptions) *cobra.Command {
	sel := &fileSelector{}
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List files, optionally filtered",
		Long: `List recorded files as absolute paths, sorted.

Filters of different kinds intersect; repeated --pattern or --under
values are unioned. With no filters every file is listed.

Examples:
  buildml show files --pattern '*.c'
  buildml show files --under /work/src --pattern '*.h'
  buildml show files --component libc --components components.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := commandContext(cmd)
			set, err := sel.resolve(ctx, a)
			if err != nil {
				return queryFailed("select files", err)
			}
			paths, err := a.fullPaths(ctx, set)
			if err != nil {
				return queryFailed("render files", err)
			}
			return a.out.Success(paths, func(w io.Writer) error {
				return writeLines(w, paths)
			})
		},
	}
	sel.bind(cmd.Flags())
	return cmd
}

// ActionNode is one action in the rendered action tree.
type ActionNode struct {
	ID       ir.ActionID  `json:"id"`
	Command  string       `json:"command"`
	Files    []FileAccess `json:"files,omitempty"`
	Children []ActionNode `json:"children,omitempty"`
}

// FileAccess is one file an action touched and how.
type FileAccess struct {
	Path   string `json:"path"`
	Access string `json:"access"`
}

func newShowActionsCommand(rootOpts *RootOptions) *cobra.Command {
	var withFiles bool
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Print the action tree",
		Long: `Print every recorded action below the root, indented by depth.

With --files each action is followed by the files it touched, marked
r (read), w (write) or rw.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			nodes, err := a.actionTree(commandContext(cmd), ir.RootAction, withFiles)
			if err != nil {
				return queryFailed("walk actions", err)
			}
			return a.out.Success(nodes, func(w io.Writer) error {
				return writeActionTree(w, nodes, 0)
			})
		},
	}
	cmd.Flags().BoolVar(&withFiles, "files", false, "list the files each action touched")
	return cmd
}

// actionTree builds the subtrees of id's children.
func (a *app) actionTree(ctx context.Context, id ir.ActionID, withFiles bool) ([]ActionNode, error) {
	children, err := a.graph.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes := make([]ActionNode, 0, len(children))
	for _, c := range children {
		cmd, err := a.graph.Command(ctx, c)
		if err != nil {
			return nil, err
		}
		node := ActionNode{ID: c, Command: cmd}
		if withFiles {
			if node.Files, err = a.fileAccesses(ctx, c); err != nil {
				return nil, err
			}
		}
		if node.Children, err = a.actionTree(ctx, c, withFiles); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// fileAccesses lists what one action touched, in first-access order.
func (a *app) fileAccesses(ctx context.Context, id ir.ActionID) ([]FileAccess, error) {
	all, err := a.graph.FilesAccessed(ctx, id, ir.AccessUnspecified)
	if err != nil {
		return nil, err
	}
	reads, err := a.graph.FilesAccessed(ctx, id, ir.AccessRead)
	if err != nil {
		return nil, err
	}
	writes, err := a.graph.FilesAccessed(ctx, id, ir.AccessWrite)
	if err != nil {
		return nil, err
	}
	mask := make(map[ir.PathID]ir.AccessType, len(all))
	for _, p := range reads {
		mask[p] |= ir.AccessRead
	}
	for _, p := range writes {
		mask[p] |= ir.AccessWrite
	}

	out := make([]FileAccess, 0, len(all))
	for _, p := range all {
		full, err := a.ns.FullPath(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, FileAccess{Path: full, Access: accessMark(mask[p])})
	}
	return out, nil
}

func accessMark(t ir.AccessType) string {
	switch t {
	case ir.AccessRead:
		return "r"
	case ir.AccessWrite:
		return "w"
	case ir.AccessRead | ir.AccessWrite:
		return "rw"
	}
	return "?"
}

func writeActionTree(w io.Writer, nodes []ActionNode, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, n.Command); err != nil {
			return err
		}
		for _, f := range n.Files {
			if _, err := fmt.Fprintf(w, "%s  %-2s %s\n", indent, f.Access, f.Path); err != nil {
				return err
			}
		}
		if err := writeActionTree(w, n.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// queryFailed maps a query error to an exit code. Bad user input is a
// command error; anything else is a failure.
func queryFailed(what string, err error) error {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return err
	case query.IsBadPath(err), query.IsInvalidName(err):
		return WrapExitError(ExitCommandError, what, err)
	}
	return WrapExitError(ExitFailure, what, err)
}
