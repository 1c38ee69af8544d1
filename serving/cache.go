package serving

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"mlserve/ml"
	"mlserve/storage"
)

const (
	ModelArtifact  = "model.bin"
	SchemaArtifact = "schema.json"

	DefaultLoadTimeout = 30 * time.Second

	recordTimeout = 5 * time.Second
)

var modelIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// LoadedModel pairs a predictor with the schema it was built from. Never mutated.
type LoadedModel struct {
	ID        string
	Predictor ml.Predictor
	Metadata  *ml.ModelMetadata
	LoadedAt  time.Time
}

// LoadEvent describes one load attempt.
type LoadEvent struct {
	ModelID   string
	Framework string
	Adapter   string
	Features  int
	Duration  time.Duration
	Err       error
	At        time.Time
}

// LoadRecorder receives every load attempt. Implementations must not block for long.
type LoadRecorder interface {
	RecordLoad(ctx context.Context, event LoadEvent) error
}

type CacheStats struct {
	Loaded   int   `json:"loaded"`
	Attempts int64 `json:"load_attempts"`
	Failures int64 `json:"load_failures"`
}

type CacheOption func(*ModelCache)

func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *ModelCache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) CacheOption {
	return func(c *ModelCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder adds a recorder; every load attempt is reported to each one.
func WithRecorder(recorder LoadRecorder) CacheOption {
	return func(c *ModelCache) {
		if recorder != nil {
			c.recorders = append(c.recorders, recorder)
		}
	}
}

// ModelCache loads each model at most once per successful attempt and serves
// it lock-free afterwards. Concurrent misses on one id share a single load;
// misses on different ids never wait on each other. Failures are not cached.
// Entries are never evicted.
type ModelCache struct {
	gateway   storage.Gateway
	registry  *ml.AdapterRegistry
	logger    *zap.Logger
	recorders []LoadRecorder

	loadTimeout time.Duration

	models   sync.Map // string -> *LoadedModel
	inflight singleflight.Group

	attempts atomic.Int64
	failures atomic.Int64
}

func NewModelCache(gateway storage.Gateway, registry *ml.AdapterRegistry, opts ...CacheOption) *ModelCache {
	c := &ModelCache{
		gateway:     gateway,
		registry:    registry,
		logger:      zap.NewNop(),
		loadTimeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached model or loads it. Failures are *ModelLoadFailure.
// If ctx ends first the caller stops waiting; the shared load keeps running
// under its own timeout so other waiters still get the result.
func (c *ModelCache) Get(ctx context.Context, modelID string) (*LoadedModel, error) {
	if lm, ok := c.lookup(modelID); ok {
		return lm, nil
	}
	if !validModelID(modelID) {
		return nil, &ModelLoadFailure{ModelID: modelID, Cause: ErrInvalidModelID}
	}

	ch := c.inflight.DoChan(modelID, func() (any, error) {
		// a flight that finished between lookup and DoChan already stored it
		if lm, ok := c.lookup(modelID); ok {
			return lm, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		lm, err := c.load(loadCtx, modelID)
		if err != nil {
			return nil, err
		}
		c.models.Store(modelID, lm)
		return lm, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LoadedModel), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ModelCache) lookup(modelID string) (*LoadedModel, bool) {
	v, ok := c.models.Load(modelID)
	if !ok {
		return nil, false
	}
	return v.(*LoadedModel), true
}

func (c *ModelCache) load(ctx context.Context, modelID string) (*LoadedModel, error) {
	start := time.Now()
	c.attempts.Add(1)
	c.logger.Info("loading model", zap.String("model_id", modelID))

	event := LoadEvent{ModelID: modelID, At: start}
	lm, err := c.build(ctx, modelID, &event)
	event.Duration = time.Since(start)

	if err != nil {
		c.failures.Add(1)
		event.Err = err
		c.logger.Error("model load failed",
			zap.String("model_id", modelID),
			zap.String("framework", event.Framework),
			zap.Duration("duration", event.Duration),
			zap.Error(err),
		)
		c.record(ctx, event)
		return nil, &ModelLoadFailure{ModelID: modelID, Cause: err}
	}

	c.logger.Info("model loaded",
		zap.String("model_id", modelID),
		zap.String("framework", event.Framework),
		zap.String("adapter", event.Adapter),
		zap.Int("features", event.Features),
		zap.Duration("duration", event.Duration),
	)
	c.record(ctx, event)
	return lm, nil
}

func (c *ModelCache) build(ctx context.Context, modelID string, event *LoadEvent) (lm *LoadedModel, err error) {
	// a panicking adapter inside a singleflight call would take the process down
	defer func() {
		if r := recover(); r != nil {
			lm, err = nil, fmt.Errorf("panic while loading: %v", r)
		}
	}()

	var rawModel, rawSchema []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawModel, err = storage.ReadAll(gctx, c.gateway, modelID+"/"+ModelArtifact)
		return err
	})
	g.Go(func() error {
		var err error
		rawSchema, err = storage.ReadAll(gctx, c.gateway, modelID+"/"+SchemaArtifact)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch artifacts: %w", err)
	}

	md, err := ml.ParseMetadata(rawSchema)
	if err != nil {
		return nil, err
	}
	event.Framework = md.Framework
	event.Features = len(md.Features)

	adapter, err := c.registry.Resolve(md)
	if err != nil {
		return nil, err
	}
	event.Adapter = adapter.Name()

	predictor, err := adapter.Load(rawModel, md)
	if err != nil {
		return nil, fmt.Errorf("%s adapter: %w", adapter.Name(), err)
	}
	return &LoadedModel{
		ID:        modelID,
		Predictor: predictor,
		Metadata:  md,
		LoadedAt:  time.Now(),
	}, nil
}

// record runs on its own deadline; ctx may already have expired with the load.
func (c *ModelCache) record(ctx context.Context, event LoadEvent) {
	if len(c.recorders) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	for _, recorder := range c.recorders {
		if err := recorder.RecordLoad(ctx, event); err != nil {
			c.logger.Warn("record load event", zap.String("model_id", event.ModelID), zap.Error(err))
		}
	}
}

// Loaded returns the cached models sorted by id.
func (c *ModelCache) Loaded() []*LoadedModel {
	var models []*LoadedModel
	c.models.Range(func(_, v any) bool {
		models = append(models, v.(*LoadedModel))
		return true
	})
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}

func (c *ModelCache) Stats() CacheStats {
	n := 0
	c.models.Range(func(_, _ any) bool {
		n++
		return true
	})
	return CacheStats{Loaded: n, Attempts: c.attempts.Load(), Failures: c.failures.Load()}
}

func validModelID(id string) bool {
	return id != "." && id != ".." && modelIDPattern.MatchString(id)
}

// IsLoadFailure reports whether err is a *ModelLoadFailure.
func IsLoadFailure(err error) bool {
	var lf *ModelLoadFailure
	return errors.As(err, &lf)
}
