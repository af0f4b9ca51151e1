package fragment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS fragments (
	id       TEXT PRIMARY KEY,
	slug     TEXT NOT NULL,
	title    TEXT NOT NULL,
	content  BLOB NOT NULL,
	modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS fragments_slug ON fragments(slug);
`

// SQLiteStore keeps fragments in SQLite database.
type SQLiteStore struct {
	pool *sqlitex.Pool
	path string
	log  *zap.Logger
}

// OpenSQLite opens (creating if necessary) fragments database at path.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteStore, error) {
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: 2,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout = 5000;", nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open fragments database %q: %w", path, err)
	}
	s := &SQLiteStore{pool: pool, path: path, log: log.Named("sqlite")}
	if err := s.prepareSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.log.Debug("Fragments database opened", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) prepareSchema(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("unable to access fragments database: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("unable to prepare fragments database schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Resolve(ctx context.Context, id ID) (*Fragment, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to access fragments database: %w", err)
	}
	defer s.pool.Put(conn)

	var f *Fragment
	err = sqlitex.Execute(conn, "SELECT id, title, content FROM fragments WHERE id = ?;", &sqlitex.ExecOptions{
		Args: []any{string(id)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			f, err = scanFragment(stmt)
			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to resolve fragment %q: %w", id, err)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return f, nil
}

func (s *SQLiteStore) Persist(ctx context.Context, f *Fragment) (id ID, err error) {
	if f == nil || f.Content == nil {
		return "", fmt.Errorf("nothing to persist")
	}
	data, err := encodeContent(f.Content)
	if err != nil {
		return "", err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to access fragments database: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return "", fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer endTransaction(&err)

	id = f.ID
	if err = sqlitex.Execute(conn, "UPDATE fragments SET slug = ?, title = ?, content = ?, modified = ? WHERE id = ?;", &sqlitex.ExecOptions{
		Args: []any{slug.Make(f.Title), f.Title, data, time.Now().UnixNano(), string(id)},
	}); err != nil {
		return "", fmt.Errorf("unable to update fragment %q: %w", id, err)
	}
	if conn.Changes() > 0 {
		s.log.Debug("Fragment updated", zap.Stringer("id", id))
		return id, nil
	}

	nid, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("unable to allocate fragment id: %w", err)
	}
	id = ID(nid.String())
	if err = sqlitex.Execute(conn, "INSERT INTO fragments (id, slug, title, content, modified) VALUES (?, ?, ?, ?, ?);", &sqlitex.ExecOptions{
		Args: []any{string(id), slug.Make(f.Title), f.Title, data, time.Now().UnixNano()},
	}); err != nil {
		return "", fmt.Errorf("unable to insert fragment: %w", err)
	}
	s.log.Debug("Fragment created", zap.Stringer("from", f.ID), zap.Stringer("id", id))
	return id, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Fragment, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to access fragments database: %w", err)
	}
	defer s.pool.Put(conn)

	var result []*Fragment
	err = sqlitex.Execute(conn, "SELECT id, title, content FROM fragments ORDER BY slug, id;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			f, err := scanFragment(stmt)
			if err != nil {
				return err
			}
			result = append(result, f)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list fragments: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("unable to close fragments database %q: %w", s.path, err)
	}
	return nil
}

// Columns: id(0), title(1), content(2)
func scanFragment(stmt *sqlite.Stmt) (*Fragment, error) {
	data := make([]byte, stmt.ColumnLen(2))
	stmt.ColumnBytes(2, data)
	content, err := decodeContent(data)
	if err != nil {
		return nil, err
	}
	return &Fragment{
		ID:      ID(stmt.ColumnText(0)),
		Title:   stmt.ColumnText(1),
		Content: content,
	}, nil
}
