package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List ingestion sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := a.store.Sessions(commandContext(cmd))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list sessions", err)
			}

			return a.out.Success(sessions, func(w io.Writer) error {
				if len(sessions) == 0 {
					_, err := fmt.Fprintln(w, "no sessions")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tRECORDS\tSTARTED\tTRACE")
				for _, s := range sessions {
					started := time.Unix(s.StartedAt, 0).UTC().Format(time.RFC3339)
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.Status, s.Records, started, s.TraceName)
				}
				return tw.Flush()
			})
		},
	}
}
