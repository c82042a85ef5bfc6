package blobstores

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Files implements [Store] with one file per key inside a directory.
type Files struct {
	dir string
}

var _ Store = (*Files)(nil)

func NewFiles(dir string) (*Files, error) {
	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return nil, unavailable("mkdir", err)
	}
	return &Files{dir: dir}, nil
}

func (s *Files) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("blobstore: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *Files) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, ErrNotExist
	default:
		return nil, unavailable("read", err)
	}
}

// Set writes to a temporary file then renames it over the previous value,
// so readers never observe a partial write.
func (s *Files) Set(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return unavailable("create", err)
	}
	defer os.Remove(tmp.Name()) //nolint: errcheck // already renamed on success

	_, err = tmp.Write(value)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return unavailable("write", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return unavailable("rename", err)
	}
	return nil
}

func (s *Files) Close() error { return nil }
