// Package sqlite stores run history in a local SQLite database.
//
// The pure-Go modernc.org/sqlite driver is used, so the CLI stays free of
// cgo. One row per run; the table is created on open.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/store"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	seed        TEXT NOT NULL,
	seeded      INTEGER NOT NULL,
	strategy    TEXT NOT NULL,
	config_hash TEXT NOT NULL,
	blocks      INTEGER NOT NULL,
	cells       INTEGER NOT NULL,
	entries     INTEGER NOT NULL,
	config      TEXT NOT NULL,
	layout      TEXT NOT NULL,
	created_at  INTEGER NOT NULL
)`

const index = `CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at DESC)`

const summaryColumns = `id, name, seed, seeded, strategy, config_hash, blocks, cells, entries, created_at`

// Store is a SQLite-backed run store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "fieldtrial.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !stderrors.Is(err, os.ErrExist) {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create dirs")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open sqlite")
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{schema, index} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create runs table")
		}
	}
	return &Store{db: db, path: path}, nil
}

// DefaultPath returns $XDG_DATA_HOME/fieldtrial/history.db, falling back to
// ~/.local/share/fieldtrial/history.db.
func DefaultPath() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "fieldtrial", "history.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "get home dir")
	}
	return filepath.Join(home, ".local", "share", "fieldtrial", "history.db"), nil
}

func (s *Store) SaveRun(ctx context.Context, r *store.Run) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(
		id, name, seed, seeded, strategy, config_hash, blocks, cells, entries, config, layout, created_at
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET
		name=excluded.name, seed=excluded.seed, seeded=excluded.seeded, strategy=excluded.strategy,
		config_hash=excluded.config_hash, blocks=excluded.blocks, cells=excluded.cells,
		entries=excluded.entries, config=excluded.config, layout=excluded.layout,
		created_at=excluded.created_at`,
		r.ID, r.Name, r.Seed, r.Seeded, r.Strategy, r.ConfigHash, r.Blocks, r.Cells, r.Entries,
		r.Config, r.Layout, r.CreatedAt.UnixNano())
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save run %s", r.ID)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*store.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+`, config, layout FROM runs WHERE id = ?`, id)
	var (
		r       store.Run
		created int64
	)
	err := row.Scan(&r.ID, &r.Name, &r.Seed, &r.Seeded, &r.Strategy, &r.ConfigHash,
		&r.Blocks, &r.Cells, &r.Entries, &created, &r.Config, &r.Layout)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "get run %s", id)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return &r, nil
}

func (s *Store) ListRuns(ctx context.Context, opts store.ListOptions) ([]*store.Run, error) {
	query := `SELECT ` + summaryColumns + ` FROM runs`
	var args []any
	if opts.Name != "" {
		query += ` WHERE name = ?`
		args = append(args, opts.Name)
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT ?`
	args = append(args, opts.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list runs")
	}
	defer func() { _ = rows.Close() }()

	var out []*store.Run
	for rows.Next() {
		var (
			r       store.Run
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Seed, &r.Seeded, &r.Strategy, &r.ConfigHash,
			&r.Blocks, &r.Cells, &r.Entries, &created); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "scan run")
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list runs")
	}
	return out, nil
}

func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete run %s", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound(id)
	}
	return nil
}

// FindByPrefix resolves a unique run ID prefix to the full ID. No match is
// NOT_FOUND; more than one is INVALID_INPUT.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, ?) = ? ORDER BY id LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "find run %s", prefix)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "scan run id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "find run %s", prefix)
	}
	switch len(ids) {
	case 0:
		return "", store.NotFound(prefix)
	case 1:
		return ids[0], nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "run prefix %q is ambiguous", prefix)
	}
}

func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

var _ store.Store = (*Store)(nil)
