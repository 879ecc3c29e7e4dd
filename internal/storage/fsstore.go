package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-llm/internal/model"
)

// ObjectStore is the artifact bucket.
type ObjectStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// FSStore implements ObjectStore on a local directory tree. Object keys use
// forward slashes and map directly to files under the root.
type FSStore struct {
	root string
}

// NewFSStore opens (creating if needed) a bucket directory.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, eris.New("storage: empty bucket directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrapf(err, "storage: create bucket dir %s", root)
	}
	return &FSStore{root: root}, nil
}

// resolve maps an object key onto the filesystem, rejecting keys that would
// escape the root.
func (s *FSStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", eris.Errorf("storage: invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &model.StorageError{Op: "stat", Path: key, Err: err}
	}
	return true, nil
}

// Put writes an object atomically: content lands in a temp file first and is
// renamed into place.
func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &model.StorageError{Op: "mkdir", Path: key, Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return &model.StorageError{Op: "put", Path: key, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &model.StorageError{Op: "put", Path: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &model.StorageError{Op: "put", Path: key, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &model.StorageError{Op: "put", Path: key, Err: err}
	}
	zap.L().Debug("object stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.StorageError{Op: "get", Path: key, Err: err}
	}
	return data, nil
}

// List returns every object key under the prefix, sorted.
func (s *FSStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, &model.StorageError{Op: "list", Path: prefix, Err: err}
	}
	sort.Strings(keys)
	return keys, nil
}
