package ml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LinearModel scores w.x + b per output row. Categorical features expand to one
// column per declared category; booleans accept true/false as well as 0/1.
type LinearModel struct {
	specs      []FeatureSpec
	weights    [][]float64
	intercepts []float64
	task       Task
}

type linearArtifact struct {
	Task       Task        `json:"task,omitempty"`
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts,omitempty"`
}

func NewLinearModel(specs []FeatureSpec, weights [][]float64, intercepts []float64, task Task) (*LinearModel, error) {
	task = task.orDefault()
	if len(weights) == 0 {
		return nil, errors.New("linear model has no weights")
	}
	if task == TaskRegression && len(weights) != 1 {
		return nil, fmt.Errorf("regression expects 1 weight row, got %d", len(weights))
	}
	if task != TaskRegression && task != TaskClassification {
		return nil, fmt.Errorf("unsupported task %q", task)
	}
	columns := columnCount(specs)
	for i, row := range weights {
		if len(row) != columns {
			return nil, fmt.Errorf("weight row %d has %d columns, want %d", i, len(row), columns)
		}
	}
	if intercepts == nil {
		intercepts = make([]float64, len(weights))
	}
	if len(intercepts) != len(weights) {
		return nil, fmt.Errorf("got %d intercepts for %d weight rows", len(intercepts), len(weights))
	}
	return &LinearModel{specs: specs, weights: weights, intercepts: intercepts, task: task}, nil
}

func (m *LinearModel) Predict(features map[string]any) (any, error) {
	x, err := m.encode(features)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(m.weights))
	for i, row := range m.weights {
		z := m.intercepts[i]
		for j, w := range row {
			z += w * x[j]
		}
		scores[i] = z
	}

	switch {
	case m.task == TaskRegression:
		return scores[0], nil
	case len(scores) == 1:
		// binary logistic
		if sigmoid(scores[0]) >= 0.5 {
			return 1, nil
		}
		return 0, nil
	default:
		best := 0
		for i, s := range scores {
			if s > scores[best] {
				best = i
			}
		}
		return best, nil
	}
}

func (m *LinearModel) encode(features map[string]any) ([]float64, error) {
	x := make([]float64, 0, columnCount(m.specs))
	for _, spec := range m.specs {
		v, err := encodeTyped(features, spec)
		if err != nil {
			return nil, err
		}
		if spec.Type != FeatureCategorical {
			x = append(x, v)
			continue
		}
		for i := range spec.Categories {
			if i == int(v) {
				x = append(x, 1)
			} else {
				x = append(x, 0)
			}
		}
	}
	return x, nil
}

// encodeTyped reads one feature honoring its declared type: categoricals become
// the index of their category, booleans 0 or 1, anything else a plain number.
func encodeTyped(features map[string]any, spec FeatureSpec) (float64, error) {
	switch spec.Type {
	case FeatureCategorical:
		raw, ok := features[spec.Name]
		if !ok || raw == nil {
			return 0, missingFeature(spec.Name)
		}
		idx := categoryIndex(spec.Categories, raw)
		if idx < 0 {
			return 0, invalidFeature(spec.Name, raw)
		}
		return float64(idx), nil
	case FeatureBoolean:
		raw, ok := features[spec.Name]
		if !ok || raw == nil {
			return 0, missingFeature(spec.Name)
		}
		switch v := raw.(type) {
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				if b {
					return 1, nil
				}
				return 0, nil
			}
		}
		f, ok := toFloat(raw)
		if !ok || (f != 0 && f != 1) {
			return 0, invalidFeature(spec.Name, raw)
		}
		return f, nil
	}
	return FeatureValue(features, spec.Name)
}

// categoryIndex returns the position of raw's text form in categories, or -1.
func categoryIndex(categories []string, raw any) int {
	value := fmt.Sprint(raw)
	for i, category := range categories {
		if category == value {
			return i
		}
	}
	return -1
}

func columnCount(specs []FeatureSpec) int {
	n := 0
	for _, spec := range specs {
		if spec.Type == FeatureCategorical {
			n += len(spec.Categories)
		} else {
			n++
		}
	}
	return n
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// LinearAdapter loads linear and logistic regression models.
type LinearAdapter struct{}

func (LinearAdapter) Name() string { return "linear" }

func (LinearAdapter) Supports(md *ModelMetadata) bool {
	return frameworkIs(md.Framework, "linear", "logistic")
}

func (LinearAdapter) Load(raw []byte, md *ModelMetadata) (Predictor, error) {
	var artifact linearArtifact
	if err := DecodeArtifact(raw, &artifact); err != nil {
		return nil, err
	}
	return NewLinearModel(md.Features, artifact.Weights, artifact.Intercepts, artifact.Task)
}
