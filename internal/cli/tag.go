package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tempus/internal/patch"
)

// TagResult is the payload of a successful tag or untag.
type TagResult struct {
	Event string   `json:"event"`
	Tags  []string `json:"tags"`
}

// NewTagCommand creates the tag command.
func NewTagCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <event> <tag...>",
		Short: "Add tags to an event",
		Long: `Add one or more tags to an existing event.

The event is named by its ref, an unambiguous ref prefix, or the word
"last" for the most recently started event.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runTag(opts *RootOptions, eventArg string, tagArgs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

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

	tags := make([]patch.Tag, len(tagArgs))
	for i, a := range tagArgs {
		tags[i] = patch.Tag(a)
	}
	if err := r.AddTags(cmd.Context(), event, tags...); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "add tags", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(TagResult{Event: string(event), Tags: tagArgs})
	}
	return formatter.Success(fmt.Sprintf("Tagged event %s with %v", event, tagArgs))
}

// NewUntagCommand creates the untag command.
func NewUntagCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "untag <event> <tag>",
		Short: "Remove a tag from an event",
		Long: `Remove a tag from an existing event.

Removal tombstones every visible copy of the tag, so the tag stays gone
even when concurrent replicas re-added it before syncing.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntag(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runUntag(opts *RootOptions, eventArg, tag string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

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

	if err := r.RemoveTag(cmd.Context(), event, patch.Tag(tag)); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "remove tag", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(TagResult{Event: string(event), Tags: []string{tag}})
	}
	return formatter.Success(fmt.Sprintf("Removed tag %q from event %s", tag, event))
}
