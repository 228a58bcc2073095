// Package timesheet holds the canonical, flattened view of an event log.
//
// Where the merge engine tracks full multi-replica history, this package
// sees only the resolved present: every event has exactly one start time
// and a tag set. The view is derived and read-only; it is rebuilt by
// flattening the engine state whenever callers need a fresh snapshot.
// Point-in-time queries answer "what was active at T" without rescanning
// raw patches.
package timesheet

import (
	"sort"
	"time"

	"github.com/roach88/tempus/internal/patch"
)

// Event is one resolved event: a single start time and its tags.
// Tags are sorted and may legitimately be empty.
type Event struct {
	Start time.Time
	Tags  []patch.Tag
}

// NewEvent builds a resolved event with normalized time and sorted,
// de-duplicated tags.
func NewEvent(start time.Time, tags []patch.Tag) Event {
	seen := make(map[patch.Tag]struct{}, len(tags))
	out := make([]patch.Tag, 0, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Event{Start: patch.NormalizeTime(start), Tags: out}
}

// HasTags reports whether every tag in want is present on the event.
func (e Event) HasTags(want []patch.Tag) bool {
	have := make(map[patch.Tag]struct{}, len(e.Tags))
	for _, t := range e.Tags {
		have[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

// Entry pairs an event with its ref, for ordered iteration.
type Entry struct {
	Ref   patch.EventRef
	Event Event
}

// Timesheet is the aggregate of all resolved events, indexed by ref and
// ordered by start time. An event is considered active from its start
// until the next event's start; the last event remains active.
type Timesheet struct {
	events  map[patch.EventRef]Event
	order   []Entry
	byStart map[time.Time]patch.EventRef
}

// New builds a timesheet from resolved events. The caller (the merge
// engine's flatten) guarantees start times are unique; a duplicate here is
// a programming error and panics.
func New(events map[patch.EventRef]Event) *Timesheet {
	t := &Timesheet{
		events:  make(map[patch.EventRef]Event, len(events)),
		order:   make([]Entry, 0, len(events)),
		byStart: make(map[time.Time]patch.EventRef, len(events)),
	}
	for ref, ev := range events {
		t.events[ref] = ev
		t.order = append(t.order, Entry{Ref: ref, Event: ev})
		if _, dup := t.byStart[ev.Start]; dup {
			panic("timesheet: duplicate start time past flatten")
		}
		t.byStart[ev.Start] = ref
	}
	sort.Slice(t.order, func(i, j int) bool {
		return t.order[i].Event.Start.Before(t.order[j].Event.Start)
	})
	return t
}

// Len returns the number of events.
func (t *Timesheet) Len() int { return len(t.order) }

// Event looks up a resolved event by ref.
func (t *Timesheet) Event(ref patch.EventRef) (Event, bool) {
	ev, ok := t.events[ref]
	return ev, ok
}

// Events returns all entries ordered by start time.
func (t *Timesheet) Events() []Entry {
	out := make([]Entry, len(t.order))
	copy(out, t.order)
	return out
}

// EventAtTime returns the event whose start is exactly the given instant.
// Lets callers answer "is there already an event with this start" without
// touching raw patches.
func (t *Timesheet) EventAtTime(start time.Time) (patch.EventRef, bool) {
	ref, ok := t.byStart[patch.NormalizeTime(start)]
	return ref, ok
}

// TagsAtTime returns the tags of the event active at the given instant,
// or ok=false when no event had started yet.
func (t *Timesheet) TagsAtTime(at time.Time) ([]patch.Tag, bool) {
	at = patch.NormalizeTime(at)
	// First entry strictly after at; the active event is the one before it.
	i := sort.Search(len(t.order), func(i int) bool {
		return t.order[i].Event.Start.After(at)
	})
	if i == 0 {
		return nil, false
	}
	ev := t.order[i-1].Event
	tags := make([]patch.Tag, len(ev.Tags))
	copy(tags, ev.Tags)
	return tags, true
}

// EventsBetween returns entries with start in [from, to), ordered by
// start. A reversed or empty range yields no entries.
func (t *Timesheet) EventsBetween(from, to time.Time) []Entry {
	from = patch.NormalizeTime(from)
	to = patch.NormalizeTime(to)
	lo := sort.Search(len(t.order), func(i int) bool {
		return !t.order[i].Event.Start.Before(from)
	})
	hi := sort.Search(len(t.order), func(i int) bool {
		return !t.order[i].Event.Start.Before(to)
	})
	if hi < lo {
		hi = lo
	}
	out := make([]Entry, hi-lo)
	copy(out, t.order[lo:hi])
	return out
}
