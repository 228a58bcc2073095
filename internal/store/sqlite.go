package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tempus/internal/patch"
)

// Rows hold the verbatim TOML patch record; SQLite only contributes
// durability and log order, not a second serialization format.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS patches (
	id         TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLite is the database-backed patch log. WAL mode allows concurrent
// reads during writes; the connection pool is capped at a single writer.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens the patch log database at path.
// Idempotent: the schema is applied on every open.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a larger pool just trades
	// throughput for SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddPatch appends a patch to the log. ON CONFLICT DO NOTHING makes
// redelivery idempotent; a conflicting record under the same ref is
// detected and rejected.
func (s *SQLite) AddPatch(ctx context.Context, p *patch.Patch) error {
	record, err := patch.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal patch %s: %w", p.ID(), err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO patches (id, record, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.ID().String(), string(record), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write patch %s: %w", p.ID(), err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write patch %s: %w", p.ID(), err)
	}
	if inserted == 0 {
		var existing string
		row := s.db.QueryRowContext(ctx, `SELECT record FROM patches WHERE id = ?`, p.ID().String())
		if err := row.Scan(&existing); err != nil {
			return fmt.Errorf("reread patch %s: %w", p.ID(), err)
		}
		if existing != string(record) {
			return fmt.Errorf("patch %s already stored with different content", p.ID())
		}
	}
	return nil
}

// GetPatch retrieves one patch by ref.
func (s *SQLite) GetPatch(ctx context.Context, ref patch.Ref) (*patch.Patch, error) {
	var record string
	row := s.db.QueryRowContext(ctx, `SELECT record FROM patches WHERE id = ?`, ref.String())
	if err := row.Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patch %s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("read patch %s: %w", ref, err)
	}
	return patch.Unmarshal([]byte(record))
}

// ListRefs returns stored refs in insertion order.
func (s *SQLite) ListRefs(ctx context.Context) ([]patch.Ref, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM patches ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer rows.Close()

	var refs []patch.Ref
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list refs: %w", err)
		}
		ref, err := patch.ParseRef(raw)
		if err != nil {
			return nil, fmt.Errorf("stored invalid ref %q: %w", raw, err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// LoadAll returns every stored patch in insertion order.
func (s *SQLite) LoadAll(ctx context.Context) ([]*patch.Patch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM patches ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("load patches: %w", err)
	}
	defer rows.Close()

	var patches []*patch.Patch
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("load patches: %w", err)
		}
		p, err := patch.Unmarshal([]byte(record))
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	return patches, rows.Err()
}
