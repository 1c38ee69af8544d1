package serving

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"mlserve/storage"
)

const irisSchema = `{
  "model_type": "classifier",
  "framework": "tree",
  "features": [
    {"name": "sepal_length", "type": "double"},
    {"name": "sepal_width", "type": "double"},
    {"name": "petal_length", "type": "double"},
    {"name": "petal_width", "type": "double"}
  ],
  "label": {"name": "species", "type": "string", "classes": ["setosa", "versicolor", "virginica"]}
}`

const irisTree = `{"nodes": [
  {"feature_idx": 2, "threshold": 2.45, "left_child": 1, "right_child": 2},
  {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 0, "is_leaf": true},
  {"feature_idx": 3, "threshold": 1.75, "left_child": 3, "right_child": 4},
  {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 1, "is_leaf": true},
  {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 2, "is_leaf": true}
]}`

func setosa() map[string]any {
	return map[string]any{"sepal_length": 5.1, "sepal_width": 3.5, "petal_length": 1.4, "petal_width": 0.2}
}

func seedModel(t *testing.T, g storage.Gateway, id, schema, model string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, g.Put(ctx, id+"/"+SchemaArtifact, []byte(schema)))
	require.NoError(t, g.Put(ctx, id+"/"+ModelArtifact, []byte(model)))
}

// gatedGateway counts Gets per key and can hold them until released.
type gatedGateway struct {
	storage.Gateway

	mu     sync.Mutex
	gets   map[string]int
	gates  map[string]chan struct{}
	called chan string
}

func newGatedGateway(inner storage.Gateway) *gatedGateway {
	return &gatedGateway{
		Gateway: inner,
		gets:    make(map[string]int),
		gates:   make(map[string]chan struct{}),
		called:  make(chan string, 1024),
	}
}

// hold makes Gets for key block until release(key).
func (g *gatedGateway) hold(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[key] = make(chan struct{})
}

func (g *gatedGateway) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gate, ok := g.gates[key]; ok {
		close(gate)
		delete(g.gates, key)
	}
}

func (g *gatedGateway) count(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets[key]
}

func (g *gatedGateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	g.mu.Lock()
	g.gets[key]++
	gate := g.gates[key]
	g.mu.Unlock()

	g.called <- key
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.Gateway.Get(ctx, key)
}

type recordingRecorder struct {
	mu      sync.Mutex
	events  []LoadEvent
	ctxErrs []error
}

func (r *recordingRecorder) RecordLoad(ctx context.Context, event LoadEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}

func (r *recordingRecorder) snapshot() []LoadEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LoadEvent(nil), r.events...)
}
