package ml

import (
	"errors"
	"fmt"
)

// RandomForest combines trees by majority vote, or by mean for regression.
type RandomForest struct {
	trees []*DecisionTree
	task  Task
}

type forestArtifact struct {
	Task  Task         `json:"task,omitempty"`
	Trees [][]TreeNode `json:"trees"`
}

func NewRandomForest(trees [][]TreeNode, task Task, featureCount int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	task = task.orDefault()
	rf := &RandomForest{trees: make([]*DecisionTree, len(trees)), task: task}
	for i, nodes := range trees {
		tree, err := NewDecisionTree(nodes, task, featureCount)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		rf.trees[i] = tree
	}
	return rf, nil
}

func (rf *RandomForest) Predict(features []float64) (any, error) {
	if rf.task == TaskRegression {
		sum := 0.0
		for _, tree := range rf.trees {
			leaf, err := tree.Predict(features)
			if err != nil {
				return nil, err
			}
			sum += leaf.Value
		}
		return sum / float64(len(rf.trees)), nil
	}

	votes := make(map[int]int)
	for _, tree := range rf.trees {
		leaf, err := tree.Predict(features)
		if err != nil {
			return nil, err
		}
		votes[leaf.ClassLabel]++
	}
	return majorityVote(votes), nil
}

// majorityVote breaks ties toward the lowest class index.
func majorityVote(votes map[int]int) int {
	best, bestCount := 0, -1
	for label, count := range votes {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}
	return best
}

// ForestAdapter loads random forests.
type ForestAdapter struct{}

func (ForestAdapter) Name() string { return "forest" }

func (ForestAdapter) Supports(md *ModelMetadata) bool {
	return frameworkIs(md.Framework, "forest", "random_forest")
}

func (ForestAdapter) Load(raw []byte, md *ModelMetadata) (Predictor, error) {
	var artifact forestArtifact
	if err := DecodeArtifact(raw, &artifact); err != nil {
		return nil, err
	}
	rf, err := NewRandomForest(artifact.Trees, artifact.Task, len(md.Features))
	if err != nil {
		return nil, err
	}
	return &vectorPredictor{specs: md.Features, score: rf.Predict}, nil
}
