package model

import (
	"fmt"
	"sync"
	"sync/atomic"

	"CravePulse/internal/domain/models"
	"CravePulse/internal/services/features"
	"CravePulse/pkg/logger"
)

// Classifier wraps the pre-trained ensemble plus its scaler. The artifact is
// loaded lazily on first use and swapped atomically on reload, so in-flight
// predictions never observe a partially-updated model.
type Classifier struct {
	logger  *logger.Logger
	path    string
	current atomic.Pointer[Artifact]
	loadMu  sync.Mutex
}

// NewClassifier creates a classifier bound to an artifact path. The artifact
// is not read until the first Predict or Load call.
func NewClassifier(lgr *logger.Logger, path string) *Classifier {
	return &Classifier{logger: lgr, path: path}
}

// Load reads the artifact from disk if not already loaded.
func (c *Classifier) Load() (*Artifact, error) {
	if a := c.current.Load(); a != nil {
		return a, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if a := c.current.Load(); a != nil {
		return a, nil
	}

	a, err := LoadArtifact(c.path, features.FeatureNames)
	if err != nil {
		return nil, &models.ModelLoadError{Path: c.path, Err: err}
	}

	c.current.Store(a)
	c.logger.Info("model artifact loaded",
		logger.String("path", c.path),
		logger.String("version", a.Version),
		logger.Int("trees", len(a.Trees)))
	return a, nil
}

// Reload re-reads the artifact and swaps it in atomically.
func (c *Classifier) Reload() error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	a, err := LoadArtifact(c.path, features.FeatureNames)
	if err != nil {
		return &models.ModelLoadError{Path: c.path, Err: err}
	}

	prev := c.current.Swap(a)
	prevVersion := ""
	if prev != nil {
		prevVersion = prev.Version
	}
	c.logger.Info("model artifact reloaded",
		logger.String("path", c.path),
		logger.String("from", prevVersion),
		logger.String("to", a.Version))
	return nil
}

// Predict scales the vector and returns the ensemble's mean leaf value,
// a probability in [0,1]. Deterministic for a fixed artifact and input.
func (c *Classifier) Predict(vec models.FeatureVector) (float64, error) {
	a, err := c.Load()
	if err != nil {
		return 0, err
	}

	if len(vec.Values) != len(a.FeatureNames) {
		return 0, fmt.Errorf("vector length %d does not match model features %d",
			len(vec.Values), len(a.FeatureNames))
	}

	scaled := a.scale(vec.Values)
	sum := 0.0
	for _, tree := range a.Trees {
		sum += tree.traverse(scaled)
	}
	p := sum / float64(len(a.Trees))

	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p, nil
}

// Version returns the loaded artifact version, or empty if not loaded.
func (c *Classifier) Version() string {
	if a := c.current.Load(); a != nil {
		return a.Version
	}
	return ""
}

// Info returns the loaded artifact's metadata for API exposure.
func (c *Classifier) Info() (version, trainedAt string, metrics map[string]float64, loaded bool) {
	a := c.current.Load()
	if a == nil {
		return "", "", nil, false
	}
	return a.Version, a.TrainedAt, a.Metrics, true
}
