// Package file keeps each key as a JSON file under a directory.
package file

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/spf13/afero"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

var safeKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store writes through an afero.Fs so tests can use afero.NewMemMapFs().
type Store struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

var _ task.Store = (*Store)(nil)

// NewStore returns a store rooted at dir.  A nil fs means the OS filesystem.
func NewStore(fs afero.Fs, dir string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, dir: dir}
}

func (s *Store) path(key string) (string, error) {
	if !safeKey.MatchString(key) || key == "." || key == ".." {
		return "", errors.New(errors.ErrCodeValidation, "invalid store key").WithDetail("key=" + key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := afero.ReadFile(s.fs, p)
	if os.IsNotExist(err) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "read failed").WithDetail("path=" + p)
	}
	return data, nil
}

// Save writes to a temp file and renames it over the target.
func (s *Store) Save(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "mkdir failed").WithDetail("dir=" + s.dir)
	}
	tmp := p + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "write failed").WithDetail("path=" + tmp)
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "rename failed").WithDetail("path=" + p)
	}
	return nil
}

func (s *Store) Clear(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "remove failed").WithDetail("path=" + p)
	}
	return nil
}
