// Package repo orchestrates a patch store and the merge engine behind a
// single mutable view.
//
// Authoring operations build patches against the current causal frontier:
// every new patch cites the event's latest patches as predecessors, so
// histories from concurrent replicas merge instead of clobbering each
// other. Applied patches are persisted to the store in the same call.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tempus/internal/engine"
	"github.com/roach88/tempus/internal/patch"
	"github.com/roach88/tempus/internal/store"
	"github.com/roach88/tempus/internal/timesheet"
)

// Repository is single-writer: callers mutating it from several
// goroutines must serialize externally, same as the engine it wraps.
type Repository struct {
	store    store.Store
	ts       *engine.PatchedTimesheet
	replayer *store.Replayer
}

// New creates a repository over the given patch store. Call Load before
// reading or authoring.
func New(s store.Store) *Repository {
	ts := engine.NewPatchedTimesheet()
	return &Repository{
		store:    s,
		ts:       ts,
		replayer: store.NewReplayer(ts),
	}
}

// Load replays the full patch log into the in-memory timesheet.
func (r *Repository) Load(ctx context.Context) error {
	patches, err := r.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load patch log: %w", err)
	}
	var errs []error
	errs = append(errs, r.replayer.Apply(patches...)...)
	if err := r.replayer.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Timesheet flattens the current state into the canonical view. Conflicts
// come back as the complete error batch.
func (r *Repository) Timesheet() (*timesheet.Timesheet, []error) {
	return r.ts.Flatten()
}

// Patched exposes the underlying merged state for diagnostics.
func (r *Repository) Patched() *engine.PatchedTimesheet {
	return r.ts
}

// StartEvent creates a new event with a fresh ref, the given start and
// tags, and returns the ref.
func (r *Repository) StartEvent(ctx context.Context, start time.Time, tags []patch.Tag) (patch.EventRef, error) {
	ref := patch.EventRef(uuid.NewString())
	p := patch.New().CreateEvent(ref, start, tags)
	if err := r.commit(ctx, p); err != nil {
		return "", err
	}
	return ref, nil
}

// AddTags attaches tags to an existing event, superseding the event's
// current frontier.
func (r *Repository) AddTags(ctx context.Context, event patch.EventRef, tags ...patch.Tag) error {
	if len(tags) == 0 {
		return fmt.Errorf("no tags given for event %s", event)
	}
	pe, err := r.lookup(event)
	if err != nil {
		return err
	}
	latest := pe.LatestPatches()

	p := patch.New()
	for _, tag := range tags {
		p.InsertAddTag(patch.AddTag{Parents: latest, Event: event, Tag: tag})
	}
	return r.commit(ctx, p)
}

// RemoveTag tombstones every visible (patch, tag) pair carrying the tag.
// Removal matches by value, so concurrent re-adds on other replicas
// survive the merge.
func (r *Repository) RemoveTag(ctx context.Context, event patch.EventRef, tag patch.Tag) error {
	pe, err := r.lookup(event)
	if err != nil {
		return err
	}

	p := patch.New()
	for _, pair := range pe.Tags() {
		if pair.Tag == tag {
			p.InsertRemoveTag(patch.RemoveTag{Patch: pair.Patch, Event: event, Tag: tag})
		}
	}
	if p.Len() == 0 {
		return fmt.Errorf("tag %q not set on event %s", tag, event)
	}
	return r.commit(ctx, p)
}

// Retime replaces every visible start of the event with newStart in one
// atomic patch.
func (r *Repository) Retime(ctx context.Context, event patch.EventRef, newStart time.Time) error {
	pe, err := r.lookup(event)
	if err != nil {
		return err
	}
	latest := pe.LatestPatches()

	p := patch.New()
	for _, s := range pe.Starts() {
		p.InsertRemoveStart(patch.RemoveStart{Patch: s.Patch, Event: event, Time: s.Time})
	}
	p.InsertAddStart(patch.AddStart{Parents: latest, Event: event, Time: newStart})
	return r.commit(ctx, p)
}

func (r *Repository) lookup(event patch.EventRef) (*engine.PatchedEvent, error) {
	pe, ok := r.ts.Event(event)
	if !ok {
		return nil, fmt.Errorf("no such event %s", event)
	}
	return pe, nil
}

// commit applies the patch to the engine, then persists it. The engine
// verifies first, so an invalid patch never reaches the store.
func (r *Repository) commit(ctx context.Context, p *patch.Patch) error {
	if errs := r.replayer.Apply(p); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if err := r.store.AddPatch(ctx, p); err != nil {
		// The in-memory view is now ahead of the log; reloading from the
		// store is the recovery path.
		return fmt.Errorf("persist patch %s: %w", p.ID(), err)
	}
	return nil
}
