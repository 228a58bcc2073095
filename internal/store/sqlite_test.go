package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempus/internal/patch"
)

func TestSQLiteAddAndGetPatch(t *testing.T) {
	s := createSQLiteStore(t)
	ctx := context.Background()

	p := createPatch("a", baseTime, "work", "coding")
	require.NoError(t, s.AddPatch(ctx, p))

	got, err := s.GetPatch(ctx, p.ID())
	require.NoError(t, err)
	assert.True(t, p.Equal(got))
}

func TestSQLiteGetMissingPatch(t *testing.T) {
	s := createSQLiteStore(t)

	_, err := s.GetPatch(context.Background(), patch.NewRef())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteAddPatchIsIdempotent(t *testing.T) {
	s := createSQLiteStore(t)
	ctx := context.Background()

	p := createPatch("a", baseTime)
	require.NoError(t, s.AddPatch(ctx, p))
	require.NoError(t, s.AddPatch(ctx, p))

	refs, err := s.ListRefs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []patch.Ref{p.ID()}, refs)
}

func TestSQLiteRejectsConflictingRecord(t *testing.T) {
	s := createSQLiteStore(t)
	ctx := context.Background()

	p := createPatch("a", baseTime)
	require.NoError(t, s.AddPatch(ctx, p))

	conflicting := patch.WithID(p.ID()).CreateEvent("b", baseTime, nil)
	require.Error(t, s.AddPatch(ctx, conflicting))
}

func TestSQLiteLoadAllPreservesLogOrder(t *testing.T) {
	s := createSQLiteStore(t)
	ctx := context.Background()

	var want []patch.Ref
	for i := 0; i < 5; i++ {
		p := createPatch(patch.EventRef(string(rune('a'+i))), baseTime.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.AddPatch(ctx, p))
		want = append(want, p.ID())
	}

	patches, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, patches, 5)
	for i, p := range patches {
		assert.Equal(t, want[i], p.ID())
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/log.db"

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	p := createPatch("a", baseTime)
	require.NoError(t, s.AddPatch(ctx, p))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	patches, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.True(t, p.Equal(patches[0]))
}
