package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact is the serialized model package: an ensemble of decision trees,
// the feature-scaling parameters fitted at training time, the ordered
// feature-name list, and training metadata.
type Artifact struct {
	Version      string             `json:"version"`
	TrainedAt    string             `json:"trained_at"`
	FeatureNames []string           `json:"feature_names"`
	Scaler       Scaler             `json:"scaler"`
	Trees        []Tree             `json:"trees"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Scaler holds element-wise normalization parameters: x' = (x - Mean) / Scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Tree is one decision tree stored as a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split or a leaf. Leaves have Left and Right set to -1 and carry
// the positive-class fraction in Value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// IsLeaf reports whether the node terminates traversal.
func (n Node) IsLeaf() bool {
	return n.Left < 0 && n.Right < 0
}

// LoadArtifact reads and validates a model artifact from disk. The expected
// feature order comes from the extractor and any mismatch fails here, not
// at predict time.
func LoadArtifact(path string, expectedFeatures []string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}

	if err := a.validate(expectedFeatures); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) validate(expectedFeatures []string) error {
	if len(a.FeatureNames) != len(expectedFeatures) {
		return fmt.Errorf("feature count mismatch: artifact has %d, extractor produces %d",
			len(a.FeatureNames), len(expectedFeatures))
	}
	for i, name := range expectedFeatures {
		if a.FeatureNames[i] != name {
			return fmt.Errorf("feature order mismatch at %d: artifact %q, extractor %q",
				i, a.FeatureNames[i], name)
		}
	}

	n := len(a.FeatureNames)
	if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
		return fmt.Errorf("scaler length mismatch: mean=%d scale=%d features=%d",
			len(a.Scaler.Mean), len(a.Scaler.Scale), n)
	}
	for i, s := range a.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("scaler.scale[%d] is zero", i)
		}
	}

	if len(a.Trees) == 0 {
		return fmt.Errorf("artifact contains no trees")
	}
	for ti, tree := range a.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, node := range tree.Nodes {
			if node.IsLeaf() {
				if node.Value < 0 || node.Value > 1 {
					return fmt.Errorf("tree %d node %d: leaf value %v outside [0,1]", ti, ni, node.Value)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= n {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, node.Feature)
			}
			if node.Left < 0 || node.Left >= len(tree.Nodes) ||
				node.Right < 0 || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
			if node.Left <= ni || node.Right <= ni {
				return fmt.Errorf("tree %d node %d: children must come after parent", ti, ni)
			}
		}
	}
	return nil
}

// scale applies the stored normalization to a raw vector.
func (a *Artifact) scale(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - a.Scaler.Mean[i]) / a.Scaler.Scale[i]
	}
	return out
}

// traverse walks one tree to its leaf for the scaled vector.
func (t Tree) traverse(scaled []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.IsLeaf() {
			return node.Value
		}
		if scaled[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}
