package ml

import (
	"bytes"
	"errors"
	"fmt"
)

type DecisionTree struct {
	nodes []TreeNode
	task  Task
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Value      float64 `json:"value,omitempty"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeArtifact struct {
	Task  Task       `json:"task,omitempty"`
	Nodes []TreeNode `json:"nodes"`
}

// NewDecisionTree validates nodes against the number of input columns.
func NewDecisionTree(nodes []TreeNode, task Task, featureCount int) (*DecisionTree, error) {
	dt := &DecisionTree{nodes: nodes, task: task.orDefault()}
	if err := dt.validate(featureCount); err != nil {
		return nil, err
	}
	return dt, nil
}

// Predict walks from the root to a leaf. Left when value <= threshold.
func (dt *DecisionTree) Predict(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	idx := 0
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
	return TreeNode{}, errors.New("invalid tree state")
}

func (dt *DecisionTree) output(features []float64) (any, error) {
	leaf, err := dt.Predict(features)
	if err != nil {
		return nil, err
	}
	if dt.task == TaskRegression {
		return leaf.Value, nil
	}
	return leaf.ClassLabel, nil
}

func (dt *DecisionTree) validate(featureCount int) error {
	if len(dt.nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	if dt.task != TaskClassification && dt.task != TaskRegression {
		return fmt.Errorf("unsupported task %q", dt.task)
	}
	visited := make([]bool, len(dt.nodes))
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[idx] {
			return fmt.Errorf("node %d is reachable twice", idx)
		}
		visited[idx] = true

		node := dt.nodes[idx]
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("node %d: feature index %d out of range", idx, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= 0 || child >= len(dt.nodes) {
				return fmt.Errorf("node %d: child %d out of range", idx, child)
			}
			stack = append(stack, child)
		}
	}
	return nil
}

// decodeTree accepts {"task": ..., "nodes": [...]} or a bare node array.
func decodeTree(raw []byte, featureCount int) (*DecisionTree, error) {
	payload, err := decompress(raw)
	if err != nil {
		return nil, err
	}
	var artifact treeArtifact
	if bytes.HasPrefix(bytes.TrimSpace(payload), []byte("[")) {
		err = DecodeArtifact(payload, &artifact.Nodes)
	} else {
		err = DecodeArtifact(payload, &artifact)
	}
	if err != nil {
		return nil, err
	}
	return NewDecisionTree(artifact.Nodes, artifact.Task, featureCount)
}

// TreeAdapter loads single decision trees.
type TreeAdapter struct{}

func (TreeAdapter) Name() string { return "tree" }

func (TreeAdapter) Supports(md *ModelMetadata) bool {
	return frameworkIs(md.Framework, "tree", "decision_tree")
}

func (TreeAdapter) Load(raw []byte, md *ModelMetadata) (Predictor, error) {
	tree, err := decodeTree(raw, len(md.Features))
	if err != nil {
		return nil, err
	}
	return &vectorPredictor{specs: md.Features, score: tree.output}, nil
}

// vectorPredictor runs the shared vectorizer before a numeric scoring function.
type vectorPredictor struct {
	specs []FeatureSpec
	score func([]float64) (any, error)
}

func (p *vectorPredictor) Predict(features map[string]any) (any, error) {
	vector, err := Vectorize(features, p.specs)
	if err != nil {
		return nil, err
	}
	return p.score(vector)
}
