package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// LogEntry is one row of the log output.
type LogEntry struct {
	Event string   `json:"event"`
	Start string   `json:"start"`
	Tags  []string `json:"tags,omitempty"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List events of the flattened timesheet",
		Long: `List events in start-time order.

Unresolved merge conflicts abort the listing; each conflict is reported
so a corrective patch can be authored (retime, untag).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(rootOpts, from, to, cmd)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "list events starting at or after this time")
	cmd.Flags().StringVar(&to, "to", "", "list events starting before this time")

	return cmd
}

func runLog(opts *RootOptions, from, to string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	r, done, err := openRepository(cmd.Context(), opts, formatter)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer done()

	ts, err := flattenOrFail(r, formatter)
	if err != nil {
		return err
	}

	entries := ts.Events()
	if from != "" || to != "" {
		fromT := time.Time{}
		toT := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
		if from != "" {
			if fromT, err = parseTime(from); err != nil {
				_ = formatter.Error(ErrCodeBadArg, err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid --from", err)
			}
		}
		if to != "" {
			if toT, err = parseTime(to); err != nil {
				_ = formatter.Error(ErrCodeBadArg, err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid --to", err)
			}
		}
		entries = ts.EventsBetween(fromT, toT)
	}

	rows := make([]LogEntry, len(entries))
	for i, e := range entries {
		tags := make([]string, len(e.Event.Tags))
		for j, t := range e.Event.Tags {
			tags[j] = string(t)
		}
		rows[i] = LogEntry{
			Event: string(e.Ref),
			Start: e.Event.Start.Format(time.RFC3339),
			Tags:  tags,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No events recorded.")
		return nil
	}
	for _, row := range rows {
		fmt.Fprintf(formatter.Writer, "%s  %s", row.Start, row.Event)
		for _, t := range row.Tags {
			fmt.Fprintf(formatter.Writer, "  %s", t)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}
