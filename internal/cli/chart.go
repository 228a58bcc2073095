package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tempus/internal/patch"
	"github.com/roach88/tempus/internal/timesheet"
)

// NewChartCommand creates the chart command.
func NewChartCommand(rootOpts *RootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "chart [tag...]",
		Short: "Render a weekly activity heatmap",
		Long: `Render a terminal heatmap of tracked time, one row per day and one
cell per 20 minutes.

A cell is filled when the event active at that instant carries every
given tag (and at least one tag overall). Defaults to the last 7 days.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChart(rootOpts, start, end, args, cmd)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day to chart (YYYY-MM-DD, default 6 days ago)")
	cmd.Flags().StringVar(&end, "end", "", "last day to chart (YYYY-MM-DD, default today)")

	return cmd
}

func runChart(opts *RootOptions, startArg, endArg string, tagArgs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	now := timeNow()
	endDay := truncateToDay(now)
	if endArg != "" {
		d, err := parseDate(endArg)
		if err != nil {
			_ = formatter.Error(ErrCodeBadArg, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --end", err)
		}
		endDay = d
	}
	startDay := endDay.AddDate(0, 0, -6)
	if startArg != "" {
		d, err := parseDate(startArg)
		if err != nil {
			_ = formatter.Error(ErrCodeBadArg, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --start", err)
		}
		startDay = d
	}

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

	tags := make([]patch.Tag, len(tagArgs))
	for i, a := range tagArgs {
		tags[i] = patch.Tag(a)
	}
	renderChart(formatter.Writer, ts, tags, startDay, endDay, now)
	return nil
}

// renderChart writes one row per day between startDay and endDay
// inclusive, three cells per hour. A cell is filled when the active
// event's tags are a superset of the filter, the event has at least one
// tag, and the instant is not in the future.
func renderChart(w io.Writer, ts *timesheet.Timesheet, filter []patch.Tag, startDay, endDay, now time.Time) {
	fmt.Fprint(w, "Day ")
	for hour := 0; hour < 24; hour++ {
		fmt.Fprintf(w, "%-3d", hour)
	}
	fmt.Fprintln(w)

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		fmt.Fprintf(w, "%s ", day.Format("Mon"))
		for section := 0; section < 24*3; section++ {
			at := day.Add(time.Duration(section) * 20 * time.Minute)
			cur, ok := ts.TagsAtTime(at)
			active := ok && len(cur) > 0 && containsAll(cur, filter)
			if active && !at.After(now) {
				fmt.Fprint(w, "█")
			} else {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprintln(w)
	}
}

func containsAll(have, want []patch.Tag) bool {
	set := make(map[patch.Tag]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
