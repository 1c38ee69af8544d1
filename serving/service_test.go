package serving

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlserve/ml"
	"mlserve/storage"
)

func newIrisService(t *testing.T) *PredictionService {
	mem := storage.NewMemoryGateway()
	seedModel(t, mem, "iris", irisSchema, irisTree)
	return NewPredictionService(newTestCache(t, mem), nil)
}

func TestPredictDecodesLabel(t *testing.T) {
	svc := newIrisService(t)
	got, err := svc.Predict(context.Background(), "iris", setosa())
	require.NoError(t, err)
	assert.Equal(t, "setosa", got)

	again, err := svc.Predict(context.Background(), "iris", setosa())
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestPredictIgnoresExtraKeys(t *testing.T) {
	svc := newIrisService(t)
	features := setosa()
	features["foo_bar"] = 123
	got, err := svc.Predict(context.Background(), "iris", features)
	require.NoError(t, err)
	assert.Equal(t, "setosa", got)
}

func TestPredictFeatureErrors(t *testing.T) {
	svc := newIrisService(t)

	features := setosa()
	delete(features, "petal_length")
	_, err := svc.Predict(context.Background(), "iris", features)
	require.ErrorIs(t, err, ml.ErrMissingFeature)
	assert.EqualError(t, err, "Missing feature: petal_length")

	_, err = svc.Predict(context.Background(), "iris", map[string]any{})
	assert.ErrorIs(t, err, ml.ErrMissingFeature)

	features = setosa()
	features["sepal_length"] = "abc"
	_, err = svc.Predict(context.Background(), "iris", features)
	require.ErrorIs(t, err, ml.ErrInvalidFeatureValue)
	assert.Contains(t, err.Error(), "Invalid value for feature")
	assert.False(t, IsLoadFailure(err))
}

func TestPredictUnknownModel(t *testing.T) {
	svc := newIrisService(t)
	for i := 0; i < 3; i++ {
		_, err := svc.Predict(context.Background(), "nonexistent-model", setosa())
		var lf *ModelLoadFailure
		require.ErrorAs(t, err, &lf)
		assert.Equal(t, "nonexistent-model", lf.ModelID)
	}
}

func TestPredictRegressionPassesThrough(t *testing.T) {
	mem := storage.NewMemoryGateway()
	seedModel(t, mem, "price",
		`{"framework":"linear","features":[{"name":"x"}],"label":{"name":"y","type":"double"}}`,
		`{"task":"regression","weights":[[2]],"intercepts":[1]}`)
	svc := NewPredictionService(newTestCache(t, mem), nil)

	got, err := svc.Predict(context.Background(), "price", map[string]any{"x": 4})
	require.NoError(t, err)
	assert.Equal(t, 9.0, got)
}

func TestModelsListing(t *testing.T) {
	svc := newIrisService(t)
	assert.Empty(t, svc.Models())

	_, err := svc.Predict(context.Background(), "iris", setosa())
	require.NoError(t, err)

	models := svc.Models()
	require.Len(t, models, 1)
	assert.Equal(t, "iris", models[0].ID)
	assert.Equal(t, "tree", models[0].Framework)
	assert.Equal(t, []string{"sepal_length", "sepal_width", "petal_length", "petal_width"}, models[0].Features)
	assert.Equal(t, 1, svc.Stats().Loaded)
}

func TestDecodeLabel(t *testing.T) {
	label := ml.LabelSpec{Classes: []string{"setosa", "versicolor", "virginica"}}
	cases := []struct {
		name  string
		raw   any
		label ml.LabelSpec
		want  any
	}{
		{"index", 1, label, "versicolor"},
		{"int64 index", int64(2), label, "virginica"},
		{"out of range", 7, label, 7},
		{"negative", -1, label, -1},
		{"float untouched", 1.0, label, 1.0},
		{"no classes", 1, ml.LabelSpec{}, 1},
		{"string untouched", "setosa", label, "setosa"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecodeLabel(tc.raw, tc.label))
		})
	}
}

func TestIsLoadFailure(t *testing.T) {
	assert.False(t, IsLoadFailure(errors.New("x")))
	assert.True(t, IsLoadFailure(&ModelLoadFailure{ModelID: "m", Cause: errors.New("x")}))
}
