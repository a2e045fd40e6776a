// Package file implements the document store over a local directory.
// Keys are treated as relative paths under BaseDir. This backend is the
// default for single-node deployments and tests.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/elysia-ai/corrige/pkg/docstore"
)

type Store struct {
	baseDir string
}

var _ docstore.Store = (*Store)(nil)

type Config struct {
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_ = ctx
	_ = contentLength
	full, err := s.fullPath(key)
	if err != nil {
		return s.wrapError("Put", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return s.wrapError("Put", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "corrige-put-*")
	if err != nil {
		return s.wrapError("Put", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return s.wrapError("Put", key, err)
	}
	if err := tmp.Close(); err != nil {
		return s.wrapError("Put", key, err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		return s.wrapError("Put", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	full, err := s.fullPath(key)
	if err != nil {
		return nil, 0, s.wrapError("Get", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, &docstore.StoreError{Op: "Get", Provider: docstore.ProviderFile, Key: key, Err: docstore.ErrNotFound}
		}
		return nil, 0, s.wrapError("Get", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, s.wrapError("Get", key, err)
	}
	return f, st.Size(), nil
}

func (s *Store) Head(ctx context.Context, key string) (*docstore.ObjectMeta, error) {
	_ = ctx
	full, err := s.fullPath(key)
	if err != nil {
		return nil, s.wrapError("Head", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &docstore.StoreError{Op: "Head", Provider: docstore.ProviderFile, Key: key, Err: docstore.ErrNotFound}
		}
		return nil, s.wrapError("Head", key, err)
	}
	if st.IsDir() {
		return nil, &docstore.StoreError{Op: "Head", Provider: docstore.ProviderFile, Key: key, Err: docstore.ErrNotFound}
	}

	return &docstore.ObjectMeta{
		Key:          strings.TrimPrefix(key, "/"),
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}

func (s *Store) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("invalid key path")
	}
	// Reject traversal segments outright instead of cleaning them away:
	// a key with ".." is malformed, not a file named after its target.
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid key path")
		}
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(filepath.Clean(key))), nil
}

func (s *Store) wrapError(op, key string, err error) error {
	wrapped := &docstore.StoreError{Op: op, Provider: docstore.ProviderFile, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to store sentinels.
	if os.IsNotExist(err) {
		wrapped.Err = docstore.ErrNotFound
	}
	if os.IsPermission(err) {
		wrapped.Err = docstore.ErrAccessDenied
	}
	return wrapped
}
