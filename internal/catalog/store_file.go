package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the catalog as a pretty-printed JSON array on local disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (Catalog, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, readErr(err)
	}

	c, err := decodeCatalog(raw)
	if err != nil {
		return nil, readErr(fmt.Errorf("decode %s: %w", s.path, err))
	}
	return c, nil
}

// Save writes to a sibling temp file and renames it over the target, so a
// reader never sees a half-written document.
func (s *FileStore) Save(ctx context.Context, c Catalog) error {
	raw, err := encodeCatalog(c)
	if err != nil {
		return writeErr(err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return writeErr(err)
	}

	tmp, err := os.CreateTemp(dir, ".products-*.json")
	if err != nil {
		return writeErr(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return writeErr(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return writeErr(err)
	}
	if err := tmp.Close(); err != nil {
		return writeErr(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return writeErr(err)
	}
	return nil
}
