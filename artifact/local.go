package artifact

import (
	"context"
	"errors"
	"filepipe/file_io"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("could not create artifact dir %s: %w", abs, err)
	}
	writable, err := file_io.IsWritable(abs)
	if err != nil || !writable {
		return nil, fmt.Errorf("artifact dir %s is not writable: %v", abs, err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) pathFor(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	_, err = file_io.WriteToFile(p, data, file_io.WRITE_OVERWRITE)
	if err != nil {
		return fmt.Errorf("could not write artifact %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := file_io.ReadFile(ctx, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalStore) Location(key string) string {
	p, err := s.pathFor(key)
	if err != nil {
		return key
	}
	return p
}
