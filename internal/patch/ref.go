// Package patch defines the immutable edit records that make up a
// timesheet's history.
//
// A Patch is an atomic bundle of instructions: start times and tags are
// added or removed, and new events are created. Patches are identified by
// a 128-bit Ref, never mutate once built, and may cite earlier patches as
// causal predecessors. The merge engine (internal/engine) applies them in
// any causally consistent order and converges to the same state.
package patch

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Ref is the globally unique identifier of a patch. It doubles as a
// causal-predecessor reference: instructions cite the Refs of the patches
// they supersede.
type Ref = uuid.UUID

// EventRef identifies one logical event (a task or activity instance).
type EventRef string

// Tag is a free-form label attached to an event.
type Tag string

// NewRef returns a fresh random Ref.
func NewRef() Ref {
	return uuid.New()
}

// ParseRef parses the canonical string form of a Ref.
func ParseRef(s string) (Ref, error) {
	return uuid.Parse(s)
}

// RefSet is a set of patch references.
type RefSet map[Ref]struct{}

// NewRefSet builds a set from the given refs.
func NewRefSet(refs ...Ref) RefSet {
	s := make(RefSet, len(refs))
	for _, r := range refs {
		s[r] = struct{}{}
	}
	return s
}

// Add inserts r. Inserting an already-present ref is a no-op.
func (s RefSet) Add(r Ref) {
	s[r] = struct{}{}
}

// Contains reports whether r is in the set.
func (s RefSet) Contains(r Ref) bool {
	_, ok := s[r]
	return ok
}

// Len returns the number of refs in the set. A nil set has length 0.
func (s RefSet) Len() int { return len(s) }

// Sorted returns the refs ordered by their string form. Deterministic
// iteration order matters for serialization and error reporting.
func (s RefSet) Sorted() []Ref {
	refs := make([]Ref, 0, len(s))
	for r := range s {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
	return refs
}

// Union returns a new set holding every ref from s and o.
func (s RefSet) Union(o RefSet) RefSet {
	u := make(RefSet, len(s)+len(o))
	for r := range s {
		u[r] = struct{}{}
	}
	for r := range o {
		u[r] = struct{}{}
	}
	return u
}

// Clone returns a copy of the set. A nil set clones to an empty set.
func (s RefSet) Clone() RefSet {
	c := make(RefSet, len(s))
	for r := range s {
		c[r] = struct{}{}
	}
	return c
}

// Equal reports whether s and o hold the same refs. A nil set equals an
// empty set.
func (s RefSet) Equal(o RefSet) bool {
	if len(s) != len(o) {
		return false
	}
	for r := range s {
		if !o.Contains(r) {
			return false
		}
	}
	return true
}

// NormalizeTime converts t to UTC and strips the monotonic clock reading.
// Every timestamp stored in a patch or a two-phase set goes through this,
// so time values compare with == and are usable as map-key components.
func NormalizeTime(t time.Time) time.Time {
	return t.Round(0).UTC()
}
