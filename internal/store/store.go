// Package store persists patch records and replays them into the merge
// engine.
//
// A store holds the patch log and nothing else: rows or files contain the
// verbatim TOML patch record, and the log can be replayed from scratch to
// rebuild the timesheet. Two backends share one interface: a directory of
// human-editable TOML files and a SQLite database for larger logs.
package store

import (
	"context"
	"errors"

	"github.com/roach88/tempus/internal/patch"
)

// ErrNotFound is returned when a requested patch is not in the store.
var ErrNotFound = errors.New("patch not found")

// Store is the patch log. Implementations are idempotent on AddPatch:
// re-adding an identical patch is a no-op, re-adding a different patch
// under the same ref is an error.
type Store interface {
	// AddPatch appends a patch to the log.
	AddPatch(ctx context.Context, p *patch.Patch) error

	// GetPatch retrieves one patch by ref. Returns ErrNotFound when absent.
	GetPatch(ctx context.Context, ref patch.Ref) (*patch.Patch, error)

	// ListRefs returns every stored patch ref in log order.
	ListRefs(ctx context.Context) ([]patch.Ref, error)

	// LoadAll returns every stored patch in log order.
	LoadAll(ctx context.Context) ([]*patch.Patch, error)

	// Close releases backend resources.
	Close() error
}

// Compile-time interface checks for both backends.
var (
	_ Store = (*Dir)(nil)
	_ Store = (*SQLite)(nil)
)
