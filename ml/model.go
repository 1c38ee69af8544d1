package ml

// Predictor is a loaded model ready to score one feature map.
// Classifiers return an int class index, regressors a float64.
type Predictor interface {
	Predict(features map[string]any) (any, error)
}

// ModelAdapter binds a raw model.bin artifact of one framework to a Predictor.
type ModelAdapter interface {
	Name() string
	Supports(md *ModelMetadata) bool
	Load(raw []byte, md *ModelMetadata) (Predictor, error)
}
