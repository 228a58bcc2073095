package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/tempus/internal/patch"
)

const (
	metaFile   = "meta.toml"
	patchesDir = "patches"
)

// Dir stores each patch as one TOML record under patches/<ref>.toml, with
// a meta.toml listing refs in log order. The files are the source of
// truth and stay hand-editable; meta only fixes the append order.
type Dir struct {
	root string
}

type metaDoc struct {
	Patches []string `toml:"patches"`
}

// OpenDir opens (or initializes) a directory-backed store.
func OpenDir(root string) (*Dir, error) {
	if err := os.MkdirAll(filepath.Join(root, patchesDir), 0o755); err != nil {
		return nil, fmt.Errorf("init store dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Close is a no-op for the directory backend.
func (d *Dir) Close() error { return nil }

// AddPatch writes the patch record, then appends the ref to meta. Adding
// an identical patch again is a no-op; a different record under the same
// ref is rejected.
func (d *Dir) AddPatch(ctx context.Context, p *patch.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := patch.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal patch %s: %w", p.ID(), err)
	}

	path := d.patchPath(p.ID())
	if existing, err := os.ReadFile(path); err == nil {
		if !bytes.Equal(existing, record) {
			return fmt.Errorf("patch %s already stored with different content", p.ID())
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read patch %s: %w", p.ID(), err)
	}

	if err := os.WriteFile(path, record, 0o644); err != nil {
		return fmt.Errorf("write patch %s: %w", p.ID(), err)
	}
	return d.appendMeta(p.ID())
}

// GetPatch reads one patch record by ref.
func (d *Dir) GetPatch(ctx context.Context, ref patch.Ref) (*patch.Patch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.patchPath(ref))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("patch %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read patch %s: %w", ref, err)
	}
	return patch.Unmarshal(data)
}

// ListRefs returns the refs recorded in meta, in log order.
func (d *Dir) ListRefs(ctx context.Context) ([]patch.Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta, err := d.readMeta()
	if err != nil {
		return nil, err
	}
	refs := make([]patch.Ref, 0, len(meta.Patches))
	for _, raw := range meta.Patches {
		ref, err := patch.ParseRef(raw)
		if err != nil {
			return nil, fmt.Errorf("meta lists invalid ref %q: %w", raw, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// LoadAll reads every patch in log order.
func (d *Dir) LoadAll(ctx context.Context) ([]*patch.Patch, error) {
	refs, err := d.ListRefs(ctx)
	if err != nil {
		return nil, err
	}
	patches := make([]*patch.Patch, 0, len(refs))
	for _, ref := range refs {
		p, err := d.GetPatch(ctx, ref)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func (d *Dir) patchPath(ref patch.Ref) string {
	return filepath.Join(d.root, patchesDir, ref.String()+".toml")
}

func (d *Dir) metaPath() string {
	return filepath.Join(d.root, metaFile)
}

func (d *Dir) readMeta() (metaDoc, error) {
	var meta metaDoc
	data, err := os.ReadFile(d.metaPath())
	if os.IsNotExist(err) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("read meta: %w", err)
	}
	if err := toml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse meta: %w", err)
	}
	return meta, nil
}

func (d *Dir) appendMeta(ref patch.Ref) error {
	meta, err := d.readMeta()
	if err != nil {
		return err
	}
	for _, existing := range meta.Patches {
		if existing == ref.String() {
			return nil
		}
	}
	meta.Patches = append(meta.Patches, ref.String())

	data, err := toml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(d.metaPath(), data, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}
