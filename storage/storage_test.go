package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGateway(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	_, err := g.Get(ctx, "iris/model.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	payload := []byte("weights")
	require.NoError(t, g.Put(ctx, "iris/model.bin", payload))
	payload[0] = 'X'

	data, err := ReadAll(ctx, g, "iris/model.bin")
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))
	assert.Equal(t, []string{"iris/model.bin"}, g.Keys("iris/"))
}

func TestMemoryGatewayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryGateway().Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalGateway(t *testing.T) {
	ctx := context.Background()
	g := NewLocalGateway(t.TempDir())

	_, err := g.Get(ctx, "iris/schema.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, g.Put(ctx, "iris/schema.json", []byte(`{}`)))
	rc, err := g.Get(ctx, "iris/schema.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestLocalGatewayRejectsEscapingKeys(t *testing.T) {
	g := NewLocalGateway(t.TempDir())
	_, err := g.Get(context.Background(), "../etc/passwd")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestClassifyMinio(t *testing.T) {
	err := classifyMinio("iris/model.bin", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = classifyMinio("iris/model.bin", minio.ErrorResponse{Code: "AccessDenied"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = classifyMinio("iris/model.bin", errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		in     string
		host   string
		secure bool
	}{
		{"localhost:9000", "localhost:9000", false},
		{"http://minio:9000", "minio:9000", false},
		{"https://s3.example.com", "s3.example.com", true},
	}
	for _, tc := range cases {
		host, secure, err := splitEndpoint(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.host, host)
		assert.Equal(t, tc.secure, secure)
	}

	_, _, err := splitEndpoint("")
	assert.Error(t, err)
}
