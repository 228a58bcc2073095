package patch

import (
	"sort"
	"time"
)

// Patch is one immutable, atomic edit to the timesheet. Each instruction
// collection is a value-keyed set: inserting an exact duplicate is a no-op,
// and equality is full structural equality.
//
// Patches are built with the chained builder API and validated only when
// applied; construction never fails.
type Patch struct {
	id Ref

	addStarts    map[string]AddStart
	removeStarts map[string]RemoveStart
	addTags      map[string]AddTag
	removeTags   map[string]RemoveTag
	createEvents map[string]CreateEvent
}

// New creates an empty patch with a fresh random Ref.
func New() *Patch {
	return WithID(NewRef())
}

// WithID creates an empty patch with the given Ref.
func WithID(id Ref) *Patch {
	return &Patch{
		id:           id,
		addStarts:    make(map[string]AddStart),
		removeStarts: make(map[string]RemoveStart),
		addTags:      make(map[string]AddTag),
		removeTags:   make(map[string]RemoveTag),
		createEvents: make(map[string]CreateEvent),
	}
}

// ID returns the patch's Ref.
func (p *Patch) ID() Ref { return p.id }

// AddStart records a proposed start time for event, superseding parent.
func (p *Patch) AddStart(parent Ref, event EventRef, t time.Time) *Patch {
	p.InsertAddStart(AddStart{
		Parents: NewRefSet(parent),
		Event:   event,
		Time:    t,
	})
	return p
}

// RemoveStart tombstones the start (added by patch) with value t on event.
func (p *Patch) RemoveStart(patch Ref, event EventRef, t time.Time) *Patch {
	p.InsertRemoveStart(RemoveStart{
		Patch: patch,
		Event: event,
		Time:  t,
	})
	return p
}

// AddTag records a tag for event, superseding parent.
func (p *Patch) AddTag(parent Ref, event EventRef, tag Tag) *Patch {
	p.InsertAddTag(AddTag{
		Parents: NewRefSet(parent),
		Event:   event,
		Tag:     tag,
	})
	return p
}

// RemoveTag tombstones the tag (added by patch) on event.
func (p *Patch) RemoveTag(patch Ref, event EventRef, tag Tag) *Patch {
	p.InsertRemoveTag(RemoveTag{
		Patch: patch,
		Event: event,
		Tag:   tag,
	})
	return p
}

// CreateEvent records the creation of a new event with an initial start
// and tag set.
func (p *Patch) CreateEvent(event EventRef, start time.Time, tags []Tag) *Patch {
	p.InsertCreateEvent(CreateEvent{
		Event: event,
		Start: start,
		Tags:  tags,
	})
	return p
}

// InsertAddStart inserts a pre-built instruction. Used by the codec and by
// callers that need multi-parent instructions.
func (p *Patch) InsertAddStart(a AddStart) {
	a.Time = NormalizeTime(a.Time)
	p.addStarts[a.key()] = a
}

// InsertRemoveStart inserts a pre-built instruction.
func (p *Patch) InsertRemoveStart(r RemoveStart) {
	r.Time = NormalizeTime(r.Time)
	p.removeStarts[r.key()] = r
}

// InsertAddTag inserts a pre-built instruction.
func (p *Patch) InsertAddTag(a AddTag) {
	p.addTags[a.key()] = a
}

// InsertRemoveTag inserts a pre-built instruction.
func (p *Patch) InsertRemoveTag(r RemoveTag) {
	p.removeTags[r.key()] = r
}

// InsertCreateEvent inserts a pre-built instruction.
func (p *Patch) InsertCreateEvent(c CreateEvent) {
	c.Start = NormalizeTime(c.Start)
	p.createEvents[c.key()] = c
}

// AddStarts returns the add-start instructions in canonical-key order.
func (p *Patch) AddStarts() []AddStart {
	out := make([]AddStart, 0, len(p.addStarts))
	for _, k := range sortedKeys(p.addStarts) {
		out = append(out, p.addStarts[k])
	}
	return out
}

// RemoveStarts returns the remove-start instructions in canonical-key order.
func (p *Patch) RemoveStarts() []RemoveStart {
	out := make([]RemoveStart, 0, len(p.removeStarts))
	for _, k := range sortedKeys(p.removeStarts) {
		out = append(out, p.removeStarts[k])
	}
	return out
}

// AddTags returns the add-tag instructions in canonical-key order.
func (p *Patch) AddTags() []AddTag {
	out := make([]AddTag, 0, len(p.addTags))
	for _, k := range sortedKeys(p.addTags) {
		out = append(out, p.addTags[k])
	}
	return out
}

// RemoveTags returns the remove-tag instructions in canonical-key order.
func (p *Patch) RemoveTags() []RemoveTag {
	out := make([]RemoveTag, 0, len(p.removeTags))
	for _, k := range sortedKeys(p.removeTags) {
		out = append(out, p.removeTags[k])
	}
	return out
}

// CreateEvents returns the create-event instructions in canonical-key order.
func (p *Patch) CreateEvents() []CreateEvent {
	out := make([]CreateEvent, 0, len(p.createEvents))
	for _, k := range sortedKeys(p.createEvents) {
		out = append(out, p.createEvents[k])
	}
	return out
}

// Len returns the total number of instructions in the patch.
func (p *Patch) Len() int {
	return len(p.addStarts) + len(p.removeStarts) + len(p.addTags) +
		len(p.removeTags) + len(p.createEvents)
}

// Parents returns the union of every causal-predecessor ref cited anywhere
// in the patch: the Parents field of every instruction plus the Patch field
// of every removal. The result drives dependency ordering during replay.
func (p *Patch) Parents() RefSet {
	parents := make(RefSet)
	for _, a := range p.addStarts {
		for r := range a.Parents {
			parents.Add(r)
		}
	}
	for _, r := range p.removeStarts {
		parents.Add(r.Patch)
		for ref := range r.Parents {
			parents.Add(ref)
		}
	}
	for _, a := range p.addTags {
		for r := range a.Parents {
			parents.Add(r)
		}
	}
	for _, r := range p.removeTags {
		parents.Add(r.Patch)
		for ref := range r.Parents {
			parents.Add(ref)
		}
	}
	return parents
}

// Equal reports full structural equality: same id and the same instruction
// sets. Canonical keys are content-addressed, so comparing key sets
// compares values.
func (p *Patch) Equal(q *Patch) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.id == q.id &&
		sameKeys(p.addStarts, q.addStarts) &&
		sameKeys(p.removeStarts, q.removeStarts) &&
		sameKeys(p.addTags, q.addTags) &&
		sameKeys(p.removeTags, q.removeTags) &&
		sameKeys(p.createEvents, q.createEvents)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sameKeys[V any](a, b map[string]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
