package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tempus/internal/patch"
)

// StartResult is the payload of a successful start.
type StartResult struct {
	Event string   `json:"event"`
	Start string   `json:"start"`
	Tags  []string `json:"tags,omitempty"`
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "start [tag...]",
		Short: "Start a new event",
		Long: `Start a new event, optionally tagged.

The event begins now unless --at gives an explicit time. Tags from the
config file's default_tags are always attached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(rootOpts, at, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&at, "at", "t", "", "start time (RFC3339, YYYY-MM-DD HH:MM, or HH:MM)")

	return cmd
}

func runStart(opts *RootOptions, at string, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	start := timeNow()
	if at != "" {
		var err error
		start, err = parseTime(at)
		if err != nil {
			_ = formatter.Error(ErrCodeBadArg, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --at", err)
		}
	}

	tags, err := defaultTags(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
	}
	for _, a := range args {
		tags = append(tags, patch.Tag(a))
	}

	r, done, err := openRepository(cmd.Context(), opts, formatter)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer done()

	ref, err := r.StartEvent(cmd.Context(), start, tags)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "start event", err)
	}

	tagStrs := make([]string, len(tags))
	for i, t := range tags {
		tagStrs[i] = string(t)
	}
	if formatter.Format == "json" {
		return formatter.Success(StartResult{
			Event: string(ref),
			Start: patch.NormalizeTime(start).Format(time.RFC3339),
			Tags:  tagStrs,
		})
	}
	return formatter.Success(fmt.Sprintf("Started event %s", ref))
}
