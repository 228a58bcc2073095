package engine

import (
	"sort"
	"time"

	"github.com/roach88/tempus/internal/patch"
	"github.com/roach88/tempus/internal/timesheet"
)

// Start is a (patch, start-time) pair in a two-phase set.
type Start struct {
	Patch patch.Ref
	Time  time.Time
}

// TagPair is a (patch, tag) pair in a two-phase set.
type TagPair struct {
	Patch patch.Ref
	Tag   patch.Tag
}

// PatchedEvent is the full merged history of one event, independent of
// all others: two two-phase sets over (patch, value) pairs plus the
// causal frontier.
//
// A value is visible iff it is in the added set and not in the removed
// set. Removal matches by value, not by which patch added it; that is
// what keeps the merge convergent under concurrent edits.
//
// The frontier (latestPatches) holds exactly the patch refs with a
// net-visible, not-yet-superseded contribution to this event. It is
// driven entirely by the orchestrator; the event itself has no notion of
// causal order.
type PatchedEvent struct {
	startsAdded   map[Start]struct{}
	startsRemoved map[Start]struct{}
	tagsAdded     map[TagPair]struct{}
	tagsRemoved   map[TagPair]struct{}

	latestPatches patch.RefSet
}

// NewPatchedEvent returns an empty event history.
func NewPatchedEvent() *PatchedEvent {
	return &PatchedEvent{
		startsAdded:   make(map[Start]struct{}),
		startsRemoved: make(map[Start]struct{}),
		tagsAdded:     make(map[TagPair]struct{}),
		tagsRemoved:   make(map[TagPair]struct{}),
		latestPatches: make(patch.RefSet),
	}
}

// AddStart records that p proposed start time t. Idempotent.
func (e *PatchedEvent) AddStart(p patch.Ref, t time.Time) {
	e.startsAdded[Start{Patch: p, Time: patch.NormalizeTime(t)}] = struct{}{}
}

// RemoveStart tombstones the (p, t) start pair. Idempotent; tombstoning a
// pair that was never added simply keeps it invisible forever.
func (e *PatchedEvent) RemoveStart(p patch.Ref, t time.Time) {
	e.startsRemoved[Start{Patch: p, Time: patch.NormalizeTime(t)}] = struct{}{}
}

// AddTag records that p attached tag to the event. Idempotent.
func (e *PatchedEvent) AddTag(p patch.Ref, tag patch.Tag) {
	e.tagsAdded[TagPair{Patch: p, Tag: tag}] = struct{}{}
}

// RemoveTag tombstones the (p, tag) pair. Idempotent.
func (e *PatchedEvent) RemoveTag(p patch.Ref, tag patch.Tag) {
	e.tagsRemoved[TagPair{Patch: p, Tag: tag}] = struct{}{}
}

// Starts returns the visible start pairs (added minus removed), ordered
// by time then patch ref.
func (e *PatchedEvent) Starts() []Start {
	out := make([]Start, 0, len(e.startsAdded))
	for s := range e.startsAdded {
		if _, removed := e.startsRemoved[s]; !removed {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Patch.String() < out[j].Patch.String()
	})
	return out
}

// Tags returns the visible tag pairs (added minus removed), ordered by
// tag then patch ref.
func (e *PatchedEvent) Tags() []TagPair {
	out := make([]TagPair, 0, len(e.tagsAdded))
	for p := range e.tagsAdded {
		if _, removed := e.tagsRemoved[p]; !removed {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tag != out[j].Tag {
			return out[i].Tag < out[j].Tag
		}
		return out[i].Patch.String() < out[j].Patch.String()
	})
	return out
}

// AddPatchToLatest adds p to the frontier: it has just been applied to
// this event. Adding an already-present ref is a no-op, which keeps
// redelivery of an identical patch safe.
func (e *PatchedEvent) AddPatchToLatest(p patch.Ref) {
	e.latestPatches.Add(p)
}

// RemovePatchFromLatest drops p from the frontier: another patch has
// referenced it as a predecessor. Removing an absent ref is a no-op.
func (e *PatchedEvent) RemovePatchFromLatest(p patch.Ref) {
	delete(e.latestPatches, p)
}

// LatestPatches returns a copy of the causal frontier.
func (e *PatchedEvent) LatestPatches() patch.RefSet {
	return e.latestPatches.Clone()
}

// Flatten resolves the event to its canonical form. It fails with
// ErrMultipleStartTimes when concurrent edits left more than one visible
// start, and with ErrNoStartTimes when the last start was tombstoned and
// never replaced.
func (e *PatchedEvent) Flatten() (timesheet.Event, error) {
	starts := e.Starts()
	if len(starts) > 1 {
		return timesheet.Event{}, ErrMultipleStartTimes
	}
	if len(starts) == 0 {
		return timesheet.Event{}, ErrNoStartTimes
	}

	pairs := e.Tags()
	tags := make([]patch.Tag, 0, len(pairs))
	for _, p := range pairs {
		tags = append(tags, p.Tag)
	}
	return timesheet.NewEvent(starts[0].Time, tags), nil
}
