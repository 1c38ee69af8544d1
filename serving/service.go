package serving

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mlserve/ml"
)

// PredictionService is the entry point for scoring a feature map against a model.
type PredictionService struct {
	cache  *ModelCache
	logger *zap.Logger
}

func NewPredictionService(cache *ModelCache, logger *zap.Logger) *PredictionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionService{cache: cache, logger: logger}
}

// Predict returns the decoded prediction. Errors are *ModelLoadFailure when the
// model cannot be loaded, or *ml.FeatureError for input not matching its schema.
func (s *PredictionService) Predict(ctx context.Context, modelID string, features map[string]any) (any, error) {
	lm, err := s.cache.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}
	raw, err := lm.Predictor.Predict(features)
	if err != nil {
		s.logger.Debug("prediction rejected", zap.String("model_id", modelID), zap.Error(err))
		return nil, err
	}
	return DecodeLabel(raw, lm.Metadata.Label), nil
}

type ModelSummary struct {
	ID        string    `json:"id"`
	Framework string    `json:"framework"`
	ModelType string    `json:"model_type,omitempty"`
	Features  []string  `json:"features"`
	Classes   []string  `json:"classes,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Models lists models currently held by the cache.
func (s *PredictionService) Models() []ModelSummary {
	loaded := s.cache.Loaded()
	out := make([]ModelSummary, len(loaded))
	for i, lm := range loaded {
		out[i] = ModelSummary{
			ID:        lm.ID,
			Framework: lm.Metadata.Framework,
			ModelType: lm.Metadata.ModelType,
			Features:  lm.Metadata.FeatureNames(),
			Classes:   lm.Metadata.Label.Classes,
			LoadedAt:  lm.LoadedAt,
		}
	}
	return out
}

func (s *PredictionService) Stats() CacheStats {
	return s.cache.Stats()
}

// DecodeLabel maps an integer class index to its class name. Non-integers,
// models without classes and out-of-range indexes pass through unchanged.
func DecodeLabel(raw any, label ml.LabelSpec) any {
	if len(label.Classes) == 0 {
		return raw
	}
	idx, ok := asIndex(raw)
	if !ok || idx < 0 || idx >= int64(len(label.Classes)) {
		return raw
	}
	return label.Classes[idx]
}

func asIndex(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > 1<<62 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > 1<<62 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
