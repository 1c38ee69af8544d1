package ml

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestVectorizeKeepsDeclaredOrder(t *testing.T) {
	features := map[string]any{
		"petal_width":  0.2,
		"sepal_length": 5.1,
		"petal_length": json.Number("1.4"),
		"sepal_width":  "3.5",
		"foo_bar":      123,
	}
	vector, err := Vectorize(features, irisSpecs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{5.1, 3.5, 1.4, 0.2}
	if !reflect.DeepEqual(vector, want) {
		t.Fatalf("expected %v, got %v", want, vector)
	}
}

func TestVectorizeMissingFeature(t *testing.T) {
	features := map[string]any{"sepal_length": 5.1, "sepal_width": 3.5, "petal_width": 0.2}
	_, err := Vectorize(features, irisSpecs())
	if !errors.Is(err, ErrMissingFeature) {
		t.Fatalf("expected missing feature, got %v", err)
	}
	if err.Error() != "Missing feature: petal_length" {
		t.Fatalf("unexpected message: %s", err)
	}

	_, err = Vectorize(map[string]any{}, irisSpecs())
	var fe *FeatureError
	if !errors.As(err, &fe) || fe.Name != "sepal_length" {
		t.Fatalf("expected first declared feature to be reported, got %v", err)
	}
}

func TestVectorizeNullIsMissing(t *testing.T) {
	_, err := Vectorize(map[string]any{"x": nil}, []FeatureSpec{{Name: "x", Type: FeatureDouble}})
	if !errors.Is(err, ErrMissingFeature) {
		t.Fatalf("expected missing feature, got %v", err)
	}
}

func TestVectorizeInvalidValue(t *testing.T) {
	specs := []FeatureSpec{{Name: "x", Type: FeatureDouble}}
	for _, value := range []any{"abc", "", true, "NaN", "Inf", []any{1.0}} {
		_, err := Vectorize(map[string]any{"x": value}, specs)
		if !errors.Is(err, ErrInvalidFeatureValue) {
			t.Fatalf("value %v: expected invalid value, got %v", value, err)
		}
		if err.Error() != "Invalid value for feature: x" {
			t.Fatalf("unexpected message: %s", err)
		}
	}
}

func TestVectorizeNumericKinds(t *testing.T) {
	specs := []FeatureSpec{{Name: "x", Type: FeatureInteger}}
	for _, value := range []any{int(3), int32(3), int64(3), uint8(3), float32(3), 3.0, " 3 ", json.Number("3")} {
		vector, err := Vectorize(map[string]any{"x": value}, specs)
		if err != nil {
			t.Fatalf("value %v (%T): unexpected error: %v", value, value, err)
		}
		if vector[0] != 3 {
			t.Fatalf("value %v (%T): expected 3, got %v", value, value, vector[0])
		}
	}
}

func TestVectorizeTypedFeaturesAreNumeric(t *testing.T) {
	specs := []FeatureSpec{
		{Name: "color", Type: FeatureCategorical, Categories: []string{"red", "green", "blue"}},
		{Name: "flag", Type: FeatureBoolean},
	}
	for _, tc := range []struct {
		features map[string]any
		want     []float64
	}{
		{map[string]any{"color": json.Number("2"), "flag": 1}, []float64{2, 1}},
		{map[string]any{"color": "1", "flag": json.Number("0.5")}, []float64{1, 0.5}},
	} {
		got, err := Vectorize(tc.features, specs)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tc.features, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%v: expected %v, got %v", tc.features, tc.want, got)
		}
	}

	for _, features := range []map[string]any{
		{"color": "red", "flag": 1},
		{"color": 0, "flag": true},
	} {
		if _, err := Vectorize(features, specs); !errors.Is(err, ErrInvalidFeatureValue) {
			t.Fatalf("%v: expected invalid value, got %v", features, err)
		}
	}
}
