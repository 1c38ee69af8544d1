package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a key does not exist. It maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// ErrUnavailable wraps failures of the storage backend itself.
var ErrUnavailable = errors.New("storage unavailable")

type Gateway interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, data []byte) error
}

// ReadAll fetches a whole object.
func ReadAll(ctx context.Context, g Gateway, key string) ([]byte, error) {
	rc, err := g.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, unavailable(key, err)
	}
	return data, nil
}

func unavailable(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, key, err)
}

func notFound(key string) error {
	return fmt.Errorf("%s: %w", key, ErrNotFound)
}
