package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tempus/internal/patch"
)

// createDirStore creates a directory-backed store under a temp dir.
func createDirStore(t *testing.T) *Dir {
	t.Helper()
	d, err := OpenDir(filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// createSQLiteStore creates a SQLite-backed store under a temp dir.
func createSQLiteStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createPatch builds a create-event patch for the given event.
func createPatch(event patch.EventRef, start time.Time, tags ...patch.Tag) *patch.Patch {
	return patch.New().CreateEvent(event, start, tags)
}

var baseTime = time.Date(2019, 7, 24, 14, 0, 0, 0, time.UTC)
