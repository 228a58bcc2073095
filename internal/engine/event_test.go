package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempus/internal/patch"
)

func refA(t *testing.T) patch.Ref {
	t.Helper()
	r, err := patch.ParseRef("81790c38-96dd-4577-8b85-9f7c8bd6802b")
	require.NoError(t, err)
	return r
}

func refB(t *testing.T) patch.Ref {
	t.Helper()
	r, err := patch.ParseRef("fa5de1d9-aa11-49fa-b064-8128281a7d91")
	require.NoError(t, err)
	return r
}

func TestRemoveStartFromEvent(t *testing.T) {
	dt0 := time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC)
	dt1 := time.Date(2019, 7, 23, 12, 30, 0, 0, time.UTC)
	a := refA(t)

	event := NewPatchedEvent()
	event.AddStart(a, dt0)
	event.AddStart(a, dt1)
	event.RemoveStart(a, dt0)

	assert.Equal(t, []Start{{Patch: a, Time: dt1}}, event.Starts())
}

func TestRemoveTagFromEvent(t *testing.T) {
	a := refA(t)

	event := NewPatchedEvent()
	event.AddTag(a, "hello")
	event.AddTag(a, "world")
	event.RemoveTag(a, "world")

	assert.Equal(t, []TagPair{{Patch: a, Tag: "hello"}}, event.Tags())
}

func TestRemoveMatchesByValueNotAddingPatch(t *testing.T) {
	dt := time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC)
	a, b := refA(t), refB(t)

	event := NewPatchedEvent()
	event.AddStart(a, dt)
	// Tombstone cites a different patch: the (a, dt) pair stays visible.
	event.RemoveStart(b, dt)

	assert.Equal(t, []Start{{Patch: a, Time: dt}}, event.Starts())

	// Tombstoning the exact pair hides it.
	event.RemoveStart(a, dt)
	assert.Empty(t, event.Starts())
}

func TestTwoPhaseSetIsIdempotent(t *testing.T) {
	dt := time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC)
	a := refA(t)

	event := NewPatchedEvent()
	event.AddStart(a, dt)
	event.AddStart(a, dt)
	event.AddTag(a, "work")
	event.AddTag(a, "work")
	event.RemoveTag(a, "work")
	event.RemoveTag(a, "work")

	assert.Len(t, event.Starts(), 1)
	assert.Empty(t, event.Tags())
}

func TestRemovalWinsRegardlessOfOrder(t *testing.T) {
	dt := time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC)
	a := refA(t)

	// Tombstone arrives before the add it hides.
	event := NewPatchedEvent()
	event.RemoveStart(a, dt)
	event.AddStart(a, dt)

	assert.Empty(t, event.Starts(), "added minus removed is order independent")
}

func TestFrontierMutatorsAreIdempotent(t *testing.T) {
	a, b := refA(t), refB(t)

	event := NewPatchedEvent()
	event.AddPatchToLatest(a)
	event.AddPatchToLatest(a)
	event.AddPatchToLatest(b)
	event.RemovePatchFromLatest(b)
	event.RemovePatchFromLatest(b)

	latest := event.LatestPatches()
	assert.Equal(t, 1, latest.Len())
	assert.True(t, latest.Contains(a))
}

func TestLatestPatchesReturnsACopy(t *testing.T) {
	a := refA(t)

	event := NewPatchedEvent()
	event.AddPatchToLatest(a)

	latest := event.LatestPatches()
	delete(latest, a)
	assert.True(t, event.LatestPatches().Contains(a), "callers must not mutate the frontier")
}

func TestFlattenSingleStart(t *testing.T) {
	dt := time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC)
	a := refA(t)

	event := NewPatchedEvent()
	event.AddStart(a, dt)
	event.AddTag(a, "work")

	flat, err := event.Flatten()
	require.NoError(t, err)
	assert.Equal(t, dt, flat.Start)
	assert.Equal(t, []patch.Tag{"work"}, flat.Tags)
}

func TestFlattenEmptyTagsIsLegitimate(t *testing.T) {
	dt := time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC)

	event := NewPatchedEvent()
	event.AddStart(refA(t), dt)

	flat, err := event.Flatten()
	require.NoError(t, err)
	assert.Empty(t, flat.Tags)
}

func TestFlattenMultipleStarts(t *testing.T) {
	event := NewPatchedEvent()
	event.AddStart(refA(t), time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC))
	event.AddStart(refB(t), time.Date(2019, 7, 23, 13, 0, 0, 0, time.UTC))

	_, err := event.Flatten()
	assert.ErrorIs(t, err, ErrMultipleStartTimes)
	assert.True(t, IsConflict(err))
}

func TestFlattenNoStarts(t *testing.T) {
	dt := time.Date(2019, 7, 23, 12, 0, 0, 0, time.UTC)
	a := refA(t)

	event := NewPatchedEvent()
	event.AddStart(a, dt)
	event.RemoveStart(a, dt)

	_, err := event.Flatten()
	assert.ErrorIs(t, err, ErrNoStartTimes)
	assert.True(t, IsConflict(err))
}
