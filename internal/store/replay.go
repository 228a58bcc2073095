package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/tempus/internal/engine"
	"github.com/roach88/tempus/internal/patch"
)

// The engine requires a patch to be applied after every patch it cites as
// a predecessor, but performs no check of its own. Replayer makes that
// contract real: patches whose predecessors have not been seen yet are
// buffered and applied automatically once they become ready, and patches
// already applied are skipped, so at-least-once delivery in any order is
// safe.

// Replayer stages patches topologically into a PatchedTimesheet.
type Replayer struct {
	ts      *engine.PatchedTimesheet
	applied patch.RefSet
	pending map[patch.Ref]*patch.Patch
}

// NewReplayer wraps an empty timesheet for staged application.
func NewReplayer(ts *engine.PatchedTimesheet) *Replayer {
	return &Replayer{
		ts:      ts,
		applied: make(patch.RefSet),
		pending: make(map[patch.Ref]*patch.Patch),
	}
}

// Apply stages p. If every predecessor has been applied, p is applied
// immediately, followed by any buffered patches it unblocked; otherwise p
// waits. Re-applying a seen patch is a no-op. Verification errors from
// the engine are returned as the complete batch; each error names the
// patch it belongs to.
func (r *Replayer) Apply(patches ...*patch.Patch) []error {
	var errs []error
	for _, p := range patches {
		if r.applied.Contains(p.ID()) {
			continue
		}
		if !r.ready(p) {
			r.pending[p.ID()] = p
			continue
		}
		errs = append(errs, r.applyNow(p)...)
	}
	return errs
}

func (r *Replayer) applyNow(p *patch.Patch) []error {
	if errs := r.ts.ApplyPatch(p); len(errs) > 0 {
		return errs
	}
	r.applied.Add(p.ID())

	// Applying p may unblock buffered patches, which in turn may unblock
	// more; drain until a full pass makes no progress.
	var errs []error
	for progress := true; progress; {
		progress = false
		for ref, pending := range r.pending {
			if !r.ready(pending) {
				continue
			}
			delete(r.pending, ref)
			progress = true
			if applyErrs := r.ts.ApplyPatch(pending); len(applyErrs) > 0 {
				errs = append(errs, applyErrs...)
				continue
			}
			r.applied.Add(ref)
		}
	}
	return errs
}

func (r *Replayer) ready(p *patch.Patch) bool {
	for parent := range p.Parents() {
		if !r.applied.Contains(parent) {
			return false
		}
	}
	return true
}

// Applied returns a copy of the refs applied so far.
func (r *Replayer) Applied() patch.RefSet {
	return r.applied.Clone()
}

// Pending returns the refs still blocked on unseen predecessors, sorted.
func (r *Replayer) Pending() []patch.Ref {
	refs := make([]patch.Ref, 0, len(r.pending))
	for ref := range r.pending {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs
}

// Err returns a BlockedPatchesError if any staged patch never became
// ready, nil otherwise. Call it after the last Apply.
func (r *Replayer) Err() error {
	if len(r.pending) == 0 {
		return nil
	}
	blocked := make(map[patch.Ref][]patch.Ref, len(r.pending))
	for ref, p := range r.pending {
		var missing []patch.Ref
		for parent := range p.Parents() {
			if !r.applied.Contains(parent) {
				missing = append(missing, parent)
			}
		}
		sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
		blocked[ref] = missing
	}
	return &BlockedPatchesError{Blocked: blocked}
}

// BlockedPatchesError reports patches that could not be applied because
// predecessors they cite were never supplied.
type BlockedPatchesError struct {
	// Blocked maps each unapplied patch ref to the missing predecessors.
	Blocked map[patch.Ref][]patch.Ref
}

func (e *BlockedPatchesError) Error() string {
	refs := make([]string, 0, len(e.Blocked))
	for ref := range e.Blocked {
		refs = append(refs, ref.String())
	}
	sort.Strings(refs)
	return fmt.Sprintf("%d patch(es) blocked on missing predecessors: %s",
		len(e.Blocked), strings.Join(refs, ", "))
}

// Replay loads every patch from patches into ts in a causally consistent
// order. It returns the engine's verification errors (if any) and a
// BlockedPatchesError when predecessors are missing from the log.
func Replay(ts *engine.PatchedTimesheet, patches []*patch.Patch) []error {
	r := NewReplayer(ts)
	errs := r.Apply(patches...)
	if err := r.Err(); err != nil {
		errs = append(errs, err)
	}
	return errs
}
