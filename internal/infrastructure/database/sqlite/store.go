// Package sqlite provides a single-file task store for local and CLI use.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store keeps values in a kv table.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

var _ task.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.  ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, path string, log logging.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to create data dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to open sqlite").WithDetail("path=" + path)
	}
	// One writer; also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to ping sqlite").WithDetail("path=" + path)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to init schema")
	}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
			log.Warn("Could not enable WAL", logging.Err(err))
		}
	}
	log.Info("SQLite store opened", logging.String("path", path))
	return &Store{db: db, logger: log}, nil
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "sqlite load failed").WithDetail("key=" + key)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "sqlite save failed").WithDetail("key=" + key)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "sqlite clear failed").WithDetail("key=" + key)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
