package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingFeature      = errors.New("missing feature")
	ErrInvalidFeatureValue = errors.New("invalid feature value")
)

// FeatureError is a client-input error naming the offending feature.
type FeatureError struct {
	Kind  error
	Name  string
	Value any
}

func (e *FeatureError) Error() string {
	if e.Kind == ErrMissingFeature {
		return "Missing feature: " + e.Name
	}
	return "Invalid value for feature: " + e.Name
}

func (e *FeatureError) Unwrap() error { return e.Kind }

func missingFeature(name string) error {
	return &FeatureError{Kind: ErrMissingFeature, Name: name}
}

func invalidFeature(name string, value any) error {
	return &FeatureError{Kind: ErrInvalidFeatureValue, Name: name, Value: value}
}

// Vectorize builds the ordered numeric vector for specs from a named feature map.
// Keys not declared in specs are ignored. Every declared feature, whatever its
// type, must be a number or a string that parses as one.
func Vectorize(features map[string]any, specs []FeatureSpec) ([]float64, error) {
	vector := make([]float64, len(specs))
	for i, spec := range specs {
		v, err := FeatureValue(features, spec.Name)
		if err != nil {
			return nil, err
		}
		vector[i] = v
	}
	return vector, nil
}

// FeatureValue looks up one feature and coerces it to float64.
func FeatureValue(features map[string]any, name string) (float64, error) {
	raw, ok := features[name]
	if !ok || raw == nil {
		return 0, missingFeature(name)
	}
	v, ok := toFloat(raw)
	if !ok {
		return 0, invalidFeature(name, raw)
	}
	return v, nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, finite(v)
	case float32:
		return float64(v), finite(float64(v))
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		return parseFloat(v.String())
	case string:
		return parseFloat(v)
	default:
		return parseFloat(fmt.Sprint(v))
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
