package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/roach88/buildml/internal/tracefile"
)

// TraceOptions holds flags for the trace subcommands.
type TraceOptions struct {
	*RootOptions
	Gzip  bool
	Limit int
}

// DumpResult is the decoded content of a trace.
type DumpResult struct {
	Trace   string             `json:"trace"`
	Records []tracefile.Record `json:"records"`
	Bytes   int64              `json:"bytes"`
	Error   string             `json:"error,omitempty"`
}

// NewTraceCommand creates the trace command group.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Build and inspect binary trace files",
	}

	encode := &cobra.Command{
		Use:   "encode <events.yaml> <out>",
		Short: "Encode a YAML event script as a binary trace",
		Long: `Encode a YAML event script as a binary trace.

The script is a list of events:

  events:
    - op: program
      proc: 1
      argv: [cc, -c, main.c]
    - op: read
      proc: 1
      path: /work/main.c

Examples:
  buildml trace encode build.yaml build.trace
  buildml trace encode build.yaml build.trace.gz --gzip`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceEncode(opts, cmd, args[0], args[1])
		},
	}
	encode.Flags().BoolVar(&opts.Gzip, "gzip", false, "gzip-compress the output")

	dump := &cobra.Command{
		Use:   "dump <trace>",
		Short: "Decode a binary trace and print its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceDump(opts, cmd, args[0])
		},
	}
	dump.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many records (0 = all)")

	cmd.AddCommand(encode, dump)
	return cmd
}

func runTraceEncode(opts *TraceOptions, cmd *cobra.Command, in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open script", err)
	}
	defer f.Close()

	script, err := tracefile.ParseScript(f)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse script", err)
	}
	recs, err := script.Records()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid script", err)
	}

	if err := writeTrace(out, recs, opts.Gzip); err != nil {
		return WrapExitError(ExitFailure, "failed to write trace", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	data := map[string]any{"output": out, "records": len(recs), "gzip": opts.Gzip}
	return formatter.Success(data, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "wrote %d records to %s\n", len(recs), out)
		return err
	})
}

func writeTrace(path string, recs []tracefile.Record, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var dst io.Writer = f
	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(f)
		dst = zw
	}
	w := tracefile.NewWriter(dst)
	if err := w.WriteAll(recs); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if zw != nil {
		return zw.Close()
	}
	return nil
}

func runTraceDump(opts *TraceOptions, cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace", err)
	}
	defer f.Close()

	r, err := tracefile.Open(f)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read trace", err)
	}
	defer r.Close()

	result := DumpResult{Trace: path, Records: []tracefile.Record{}}
	var readErr error
	for opts.Limit <= 0 || len(result.Records) < opts.Limit {
		rec, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			result.Error = err.Error()
			break
		}
		result.Records = append(result.Records, rec)
	}
	result.Bytes = r.Offset()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := formatter.Success(result, func(w io.Writer) error {
		for i, rec := range result.Records {
			fmt.Fprintf(w, "%6d  %s\n", i+1, rec)
		}
		return nil
	}); err != nil {
		return err
	}
	if readErr != nil {
		return WrapExitError(ExitFailure, "trace is damaged", readErr)
	}
	return nil
}
