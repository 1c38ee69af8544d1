package ml

import (
	"testing"
)

func stump(threshold float64, left, right int) []TreeNode {
	return []TreeNode{
		{FeatureIdx: 0, Threshold: threshold, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, ClassLabel: left, Value: float64(left)},
		{IsLeaf: true, ClassLabel: right, Value: float64(right)},
	}
}

func TestRandomForestMajorityVote(t *testing.T) {
	rf, err := NewRandomForest([][]TreeNode{stump(1, 0, 1), stump(2, 0, 1), stump(3, 0, 1)}, "", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := rf.Predict([]float64{2.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 (two of three votes), got %v", got)
	}
}

func TestRandomForestTieBreaksLow(t *testing.T) {
	rf, err := NewRandomForest([][]TreeNode{stump(1, 2, 1), stump(1, 1, 2)}, "", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := rf.Predict([]float64{0})
	if got != 1 {
		t.Fatalf("expected tie to resolve to 1, got %v", got)
	}
}

func TestRandomForestRegressionMean(t *testing.T) {
	rf, err := NewRandomForest([][]TreeNode{stump(1, 2, 4), stump(5, 2, 8)}, TaskRegression, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := rf.Predict([]float64{3})
	if got != 3.0 {
		t.Fatalf("expected mean 3, got %v", got)
	}
}

func TestForestAdapterLoad(t *testing.T) {
	md := &ModelMetadata{Framework: "Forest", Features: irisSpecs()}
	raw, err := EncodeArtifact(forestArtifact{Trees: [][]TreeNode{irisNodes(), irisNodes()}}, false)
	if err != nil {
		t.Fatal(err)
	}
	predictor, err := ForestAdapter{}.Load(raw, md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := predictor.Predict(map[string]any{
		"sepal_length": 6.4, "sepal_width": 3.2, "petal_length": 4.5, "petal_width": 1.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected class 1, got %v", got)
	}

	if _, err := (ForestAdapter{}).Load([]byte(`{"trees":[]}`), md); err == nil {
		t.Fatal("expected error for empty forest")
	}
}
