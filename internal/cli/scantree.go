package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildml/internal/platform"
)

// NewScanTreeCommand creates the scan-tree command.
func NewScanTreeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan-tree <dir>",
		Short: "Register a local directory tree in the file namespace",
		Long: `Register every directory, file and symlink under dir, as if a trace
had REGISTER records for them. Useful for recording source files a build
never touched. Symlinks are recorded with their target and not followed.

Examples:
  buildml scan-tree ./src`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.interpreter().ScanTree(commandContext(cmd), args[0], platform.Local())
			res := ImportResult{Trace: args[0], Stats: stats}
			if err != nil {
				res.Error = err.Error()
			}
			if outErr := a.out.Success(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "scanned %s: %d dirs, %d files, %d symlinks, %d new paths\n",
					args[0], stats.PerTag["dir"], stats.PerTag["file"], stats.PerTag["symlink"], stats.Paths)
				return err
			}); outErr != nil {
				return outErr
			}
			if err != nil {
				return WrapExitError(ExitFailure, "scan stopped early", err)
			}
			return nil
		},
	}
}
