package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tempus/internal/patch"
)

// RetimeResult is the payload of a successful retime.
type RetimeResult struct {
	Event string `json:"event"`
	Start string `json:"start"`
}

// NewRetimeCommand creates the retime command.
func NewRetimeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retime <event> <time>",
		Short: "Move an event to a new start time",
		Long: `Move an existing event to a new start time.

Every visible start is replaced in a single atomic patch, which also
resolves multiple-start conflicts on the event.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetime(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runRetime(opts *RootOptions, eventArg, timeArg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	newStart, err := parseTime(timeArg)
	if err != nil {
		_ = formatter.Error(ErrCodeBadArg, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid time", err)
	}

	r, done, err := openRepository(cmd.Context(), opts, formatter)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer done()

	event, err := resolveEvent(r, eventArg)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "resolve event", err)
	}

	if err := r.Retime(cmd.Context(), event, newStart); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "retime event", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RetimeResult{
			Event: string(event),
			Start: patch.NormalizeTime(newStart).Format(time.RFC3339),
		})
	}
	return formatter.Success(fmt.Sprintf("Moved event %s to %s", event,
		patch.NormalizeTime(newStart).Format(time.RFC3339)))
}
