package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalGateway serves objects from files under a root directory.
type LocalGateway struct {
	root string
}

func NewLocalGateway(root string) *LocalGateway {
	return &LocalGateway{root: root}
}

func (s *LocalGateway) path(key string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *LocalGateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(key)
		}
		return nil, unavailable(key, err)
	}
	return f, nil
}

// Put writes through a temp file and rename so readers never see partial data.
func (s *LocalGateway) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return unavailable(key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return unavailable(key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return unavailable(key, err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable(key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return unavailable(key, err)
	}
	return nil
}
