package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type FeatureType string

const (
	FeatureDouble      FeatureType = "double"
	FeatureInteger     FeatureType = "integer"
	FeatureString      FeatureType = "string"
	FeatureBoolean     FeatureType = "boolean"
	FeatureCategorical FeatureType = "categorical"
)

func (t FeatureType) valid() bool {
	switch t {
	case FeatureDouble, FeatureInteger, FeatureString, FeatureBoolean, FeatureCategorical:
		return true
	}
	return false
}

// ModelMetadata is the decoded form of a model's schema.json. Features keeps the
// declared order; it is the column order the model was trained on.
type ModelMetadata struct {
	ModelType string        `json:"model_type,omitempty"`
	Framework string        `json:"framework"`
	Features  []FeatureSpec `json:"features"`
	Label     LabelSpec     `json:"label"`
}

type FeatureSpec struct {
	Name       string      `json:"name"`
	Type       FeatureType `json:"type"`
	Categories []string    `json:"categories,omitempty"`
}

type LabelSpec struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Classes []string `json:"classes,omitempty"`
}

// FeatureNames returns the declared feature names in order.
func (md *ModelMetadata) FeatureNames() []string {
	names := make([]string, len(md.Features))
	for i, f := range md.Features {
		names[i] = f.Name
	}
	return names
}

// ParseMetadata decodes and validates a schema document.
func ParseMetadata(payload []byte) (*ModelMetadata, error) {
	if len(payload) == 0 {
		return nil, errors.New("schema is empty")
	}
	var md ModelMetadata
	if err := json.Unmarshal(payload, &md); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := md.normalize(); err != nil {
		return nil, err
	}
	return &md, nil
}

func (md *ModelMetadata) normalize() error {
	md.Framework = strings.TrimSpace(md.Framework)
	if md.Framework == "" {
		return errors.New("schema: framework is required")
	}
	if len(md.Features) == 0 {
		return errors.New("schema: at least one feature is required")
	}

	seen := make(map[string]struct{}, len(md.Features))
	for i := range md.Features {
		f := &md.Features[i]
		if f.Name == "" {
			return fmt.Errorf("schema: feature %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema: duplicate feature %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		f.Type = FeatureType(strings.ToLower(strings.TrimSpace(string(f.Type))))
		if f.Type == "" {
			f.Type = FeatureDouble
		}
		if !f.Type.valid() {
			return fmt.Errorf("schema: unsupported feature type %q for %s", f.Type, f.Name)
		}
		if f.Type == FeatureCategorical && len(f.Categories) == 0 {
			return fmt.Errorf("schema: categorical feature %s declares no categories", f.Name)
		}
	}
	return nil
}
