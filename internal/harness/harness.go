// Package harness runs scenario-driven convergence tests.
//
// A scenario file declares labeled patches and a set of apply orders. The
// harness replays every order into a fresh merge engine and requires all
// of them to converge to the byte-identical rendered timesheet. Conflict
// scenarios declare the conflicts they expect instead of a clean flatten.
package harness

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tempus/internal/engine"
	"github.com/roach88/tempus/internal/patch"
	"github.com/roach88/tempus/internal/store"
	"github.com/roach88/tempus/internal/timesheet"
)

// Result holds the outcome of one scenario run.
type Result struct {
	// Output is the rendered timesheet (or conflict report), identical
	// across every apply order.
	Output []byte

	// Conflicts are the flatten error strings, in batch order.
	Conflicts []string
}

// Run executes the scenario: build the patches, replay every order,
// check convergence and expected conflicts.
func Run(s *Scenario) (*Result, error) {
	patches, err := s.build()
	if err != nil {
		return nil, err
	}

	var first *Result
	var firstOrder []string
	for _, order := range s.orders() {
		res, err := runOrder(patches, order)
		if err != nil {
			return nil, fmt.Errorf("order %v: %w", order, err)
		}
		if first == nil {
			first, firstOrder = res, order
			continue
		}
		if !bytes.Equal(first.Output, res.Output) {
			return nil, fmt.Errorf("orders %v and %v diverge:\n%s\n-- vs --\n%s",
				firstOrder, order, first.Output, res.Output)
		}
	}

	if err := checkConflicts(s.WantConflicts, first.Conflicts); err != nil {
		return nil, err
	}
	return first, nil
}

// runOrder replays the patches in the given label order through the
// causal stager, then flattens and renders.
func runOrder(patches map[string]*patch.Patch, order []string) (*Result, error) {
	ts := engine.NewPatchedTimesheet()
	replayer := store.NewReplayer(ts)

	for _, label := range order {
		if errs := replayer.Apply(patches[label]); len(errs) > 0 {
			return nil, fmt.Errorf("apply %s: %v", label, errs)
		}
	}
	if err := replayer.Err(); err != nil {
		return nil, err
	}

	flat, conflicts := ts.Flatten()
	if len(conflicts) > 0 {
		msgs := make([]string, len(conflicts))
		for i, c := range conflicts {
			msgs[i] = c.Error()
		}
		return &Result{Output: renderConflicts(msgs), Conflicts: msgs}, nil
	}
	return &Result{Output: renderTimesheet(flat)}, nil
}

func checkConflicts(want, got []string) error {
	if len(want) == 0 {
		if len(got) > 0 {
			return fmt.Errorf("unexpected conflicts: %v", got)
		}
		return nil
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if strings.Contains(g, w) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("expected conflict %q, got %v", w, got)
		}
	}
	return nil
}

// renderTimesheet produces the canonical text form used for convergence
// comparison and golden files: one line per event in start order.
func renderTimesheet(ts *timesheet.Timesheet) []byte {
	var buf bytes.Buffer
	for _, e := range ts.Events() {
		fmt.Fprintf(&buf, "event %s start=%s tags=[%s]\n",
			e.Ref,
			e.Event.Start.Format(time.RFC3339),
			joinTags(e.Event.Tags))
	}
	return buf.Bytes()
}

func renderConflicts(msgs []string) []byte {
	var buf bytes.Buffer
	for _, m := range msgs {
		fmt.Fprintf(&buf, "conflict: %s\n", m)
	}
	return buf.Bytes()
}

func joinTags(tags []patch.Tag) string {
	strs := make([]string, len(tags))
	for i, t := range tags {
		strs[i] = string(t)
	}
	return strings.Join(strs, " ")
}
