package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/tempus/internal/patch"
	"github.com/roach88/tempus/internal/timesheet"
)

// PatchedTimesheet is the orchestrator: it applies patches across all
// events, maintains each event's causal frontier, and flattens the merged
// history into a canonical timesheet.
//
// Causal ordering across patches is a caller obligation: a patch that
// references another patch's ref must be applied after it. The engine
// does not check this (internal/store's Replayer stages patches
// topologically for callers that want the guarantee).
type PatchedTimesheet struct {
	events map[patch.EventRef]*PatchedEvent
}

// NewPatchedTimesheet returns an empty timesheet.
func NewPatchedTimesheet() *PatchedTimesheet {
	return &PatchedTimesheet{
		events: make(map[patch.EventRef]*PatchedEvent),
	}
}

// Event returns the merged history for ref, if the event exists.
func (t *PatchedTimesheet) Event(ref patch.EventRef) (*PatchedEvent, bool) {
	e, ok := t.events[ref]
	return e, ok
}

// EventRefs returns every tracked event ref in sorted order.
func (t *PatchedTimesheet) EventRefs() []patch.EventRef {
	refs := make([]patch.EventRef, 0, len(t.events))
	for ref := range t.events {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

// Len returns the number of tracked events.
func (t *PatchedTimesheet) Len() int { return len(t.events) }

// ApplyPatch applies p in two phases, all-or-nothing: verification runs
// to completion first and collects every violation; only a fully valid
// patch mutates anything. Applying the same patch twice is a no-op at the
// state level, so at-least-once delivery is safe.
func (t *PatchedTimesheet) ApplyPatch(p *patch.Patch) []error {
	if errs := t.verifyPatch(p); len(errs) > 0 {
		return errs
	}
	// From here on the patch is known valid; a missing event is an
	// invariant violation, not a recoverable error.
	ref := p.ID()

	for _, added := range p.AddStarts() {
		event := t.mustEvent(added.Event, "add-start")
		event.AddStart(ref, added.Time)

		for parent := range added.Parents {
			event.RemovePatchFromLatest(parent)
		}
		event.AddPatchToLatest(ref)
	}
	for _, removed := range p.RemoveStarts() {
		event := t.mustEvent(removed.Event, "remove-start")
		event.RemoveStart(removed.Patch, removed.Time)

		event.RemovePatchFromLatest(removed.Patch)
		for parent := range removed.Parents {
			event.RemovePatchFromLatest(parent)
		}
		event.AddPatchToLatest(ref)
	}

	for _, added := range p.AddTags() {
		event := t.mustEvent(added.Event, "add-tag")
		event.AddTag(ref, added.Tag)

		for parent := range added.Parents {
			event.RemovePatchFromLatest(parent)
		}
		event.AddPatchToLatest(ref)
	}
	for _, removed := range p.RemoveTags() {
		event := t.mustEvent(removed.Event, "remove-tag")
		event.RemoveTag(removed.Patch, removed.Tag)

		event.RemovePatchFromLatest(removed.Patch)
		for parent := range removed.Parents {
			event.RemovePatchFromLatest(parent)
		}
		event.AddPatchToLatest(ref)
	}

	for _, created := range p.CreateEvents() {
		event := NewPatchedEvent()
		event.AddStart(ref, created.Start)
		for _, tag := range created.Tags {
			event.AddTag(ref, tag)
		}
		event.AddPatchToLatest(ref)

		if _, exists := t.events[created.Event]; exists {
			panic(fmt.Sprintf("engine: create-event %q past verification", created.Event))
		}
		t.events[created.Event] = event
	}

	return nil
}

// verifyPatch checks p against the current state without mutating it.
// Start instructions must reference existing events and create-event
// instructions non-existing ones; all violations found are returned
// together. A tag instruction naming an unknown event cannot be produced
// by correct callers and trips a defensive assertion instead.
func (t *PatchedTimesheet) verifyPatch(p *patch.Patch) []error {
	var errs []error
	ref := p.ID()

	for _, added := range p.AddStarts() {
		if _, ok := t.events[added.Event]; !ok {
			errs = append(errs, &UnknownEventError{Patch: ref, Event: added.Event})
		}
	}
	for _, removed := range p.RemoveStarts() {
		if _, ok := t.events[removed.Event]; !ok {
			errs = append(errs, &UnknownEventError{Patch: ref, Event: removed.Event})
		}
	}

	for _, added := range p.AddTags() {
		if _, ok := t.events[added.Event]; !ok {
			panic(fmt.Sprintf("engine: no event %q for add-tag in patch %s", added.Event, ref))
		}
	}
	for _, removed := range p.RemoveTags() {
		if _, ok := t.events[removed.Event]; !ok {
			panic(fmt.Sprintf("engine: no event %q for remove-tag in patch %s", removed.Event, ref))
		}
	}

	for _, created := range p.CreateEvents() {
		if _, ok := t.events[created.Event]; ok {
			errs = append(errs, &DuplicateEventIDError{Event: created.Event})
		}
	}

	return errs
}

func (t *PatchedTimesheet) mustEvent(ref patch.EventRef, kind string) *PatchedEvent {
	event, ok := t.events[ref]
	if !ok {
		panic(fmt.Sprintf("engine: no event %q for %s past verification", ref, kind))
	}
	return event
}

// Flatten collapses the merged history into a canonical timesheet. Every
// event is resolved in ref order; per-event conflicts are wrapped as
// FlattenEventError, and two distinct events resolving to the identical
// start instant produce a DuplicateEventTimeError naming both. The
// timesheet is returned only when zero errors accumulated; otherwise the
// complete error batch is.
//
// Flatten is ephemeral and side-effect-free; it can be recomputed at will.
func (t *PatchedTimesheet) Flatten() (*timesheet.Timesheet, []error) {
	var errs []error
	resolved := make(map[patch.EventRef]timesheet.Event, len(t.events))
	firstAt := make(map[time.Time]patch.EventRef, len(t.events))

	for _, ref := range t.EventRefs() {
		event, err := t.events[ref].Flatten()
		if err != nil {
			errs = append(errs, &FlattenEventError{Event: ref, Err: err})
			continue
		}
		if prev, taken := firstAt[event.Start]; taken {
			errs = append(errs, &DuplicateEventTimeError{EventA: prev, EventB: ref})
		} else {
			firstAt[event.Start] = ref
		}
		resolved[ref] = event
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return timesheet.New(resolved), nil
}
