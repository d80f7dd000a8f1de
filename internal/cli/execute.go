package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/buildml/internal/components"
	"github.com/roach88/buildml/internal/interp"
	"github.com/roach88/buildml/internal/query"
)

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stdout as a CLIResponse with --format json, and on
// stderr otherwise.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if format == "json" {
		out := &OutputFormatter{Format: format, Writer: stdout}
		_ = out.Error(errorCode(err), err.Error(), nil)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return GetExitCode(err)
}

// errorCode classifies err for JSON responses.
func errorCode(err error) string {
	var de *components.DefinitionError
	var ie *interp.IngestError
	switch {
	case query.IsBadPath(err):
		return ErrCodeBadPath
	case query.IsInvalidName(err), errors.As(err, &de):
		return ErrCodeInvalidName
	case errors.As(err, &ie):
		return ErrCodeIngest
	}
	return ErrCodeGeneric
}
