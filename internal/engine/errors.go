package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tempus/internal/patch"
)

// Two error families, matching when they can be detected:
//
//   - Verification errors (UnknownEventError, DuplicateEventIDError) are
//     found before any mutation. The offending patch can be discarded or
//     requeued; the timesheet is untouched.
//   - Flatten errors (ErrMultipleStartTimes, ErrNoStartTimes,
//     DuplicateEventTimeError) are genuine merge conflicts from concurrent
//     edits. Recovery is a corrective patch from the caller; the engine
//     never auto-resolves.
//
// Both phases collect every defect in one pass and return the complete
// batch, never just the first hit.

// UnknownEventError reports a start instruction naming an event that was
// never created.
type UnknownEventError struct {
	Patch patch.Ref
	Event patch.EventRef
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event %s in patch %s", e.Event, e.Patch)
}

// DuplicateEventIDError reports a create-event instruction for an event
// that already exists.
type DuplicateEventIDError struct {
	Event patch.EventRef
}

func (e *DuplicateEventIDError) Error() string {
	return fmt.Sprintf("two events were created with the same id %s", e.Event)
}

// ErrMultipleStartTimes and ErrNoStartTimes are the per-event flatten
// conflicts: the visible start set must have exactly one element.
var (
	ErrMultipleStartTimes = errors.New("event has multiple start times")
	ErrNoStartTimes       = errors.New("event has no start times")
)

// FlattenEventError wraps a per-event flatten conflict with the event it
// occurred on.
type FlattenEventError struct {
	Event patch.EventRef
	Err   error
}

func (e *FlattenEventError) Error() string {
	return fmt.Sprintf("could not flatten event %s: %v", e.Event, e.Err)
}

func (e *FlattenEventError) Unwrap() error { return e.Err }

// DuplicateEventTimeError reports two distinct events resolving to the
// identical start instant. EventA is the first one seen in ref order.
type DuplicateEventTimeError struct {
	EventA patch.EventRef
	EventB patch.EventRef
}

func (e *DuplicateEventTimeError) Error() string {
	return fmt.Sprintf("two events have the same start time (events %q and %q)", e.EventA, e.EventB)
}

// IsUnknownEvent reports whether err is an UnknownEventError.
// Uses errors.As to handle wrapped errors.
func IsUnknownEvent(err error) bool {
	var ue *UnknownEventError
	return errors.As(err, &ue)
}

// IsDuplicateEventID reports whether err is a DuplicateEventIDError.
func IsDuplicateEventID(err error) bool {
	var de *DuplicateEventIDError
	return errors.As(err, &de)
}

// IsConflict reports whether err is a flatten-time merge conflict.
func IsConflict(err error) bool {
	if errors.Is(err, ErrMultipleStartTimes) || errors.Is(err, ErrNoStartTimes) {
		return true
	}
	var dt *DuplicateEventTimeError
	return errors.As(err, &dt)
}
