package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"CravePulse/internal/domain/models"
	"CravePulse/internal/services/features"
	"CravePulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func testVector(hrMean, hrStd float64) models.FeatureVector {
	values := make([]float64, len(features.FeatureNames))
	values[0] = hrMean
	values[1] = hrStd
	return models.FeatureVector{Names: features.FeatureNames, Values: values}
}

func TestPredictAveragesLeaves(t *testing.T) {
	c := NewClassifier(testLogger(t), "testdata/craving_forest.json")

	// hr_mean=87 > 80 -> 0.8; hr_std=6 > 5 -> 0.9; mean = 0.85
	p, err := c.Predict(testVector(87, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p-0.85) > 1e-9 {
		t.Fatalf("probability: got %v, want 0.85", p)
	}

	// hr_mean=70 <= 80 -> 0.2; hr_std=0 <= 5 -> 0.4; mean = 0.3
	p, err = c.Predict(testVector(70, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p-0.3) > 1e-9 {
		t.Fatalf("probability: got %v, want 0.3", p)
	}
}

func TestPredictDeterministic(t *testing.T) {
	c := NewClassifier(testLogger(t), "testdata/craving_forest.json")
	vec := testVector(84.2, 5.1)

	first, err := c.Predict(vec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		p, err := c.Predict(vec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != first {
			t.Fatalf("run %d: got %v, want %v", i, p, first)
		}
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	c := NewClassifier(testLogger(t), "testdata/does_not_exist.json")

	_, err := c.Predict(testVector(80, 3))
	if !models.IsModelLoad(err) {
		t.Fatalf("got %v, want ModelLoadError", err)
	}

	// failure is not cached as success: subsequent calls fail identically
	_, err2 := c.Predict(testVector(80, 3))
	if !models.IsModelLoad(err2) {
		t.Fatalf("second call: got %v, want ModelLoadError", err2)
	}
}

func TestLoadFeatureOrderMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	artifact := `{
		"version": "x",
		"feature_names": ["hr_std", "hr_mean", "hr_min", "hr_max", "hr_range",
			"accel_magnitude_mean", "accel_magnitude_std", "accel_energy",
			"gyro_magnitude_mean", "gyro_magnitude_std", "gyro_energy"],
		"scaler": {"mean": [0,0,0,0,0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1,1,1,1,1]},
		"trees": [{"nodes": [{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": 0.5}]}]
	}`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClassifier(testLogger(t), path)
	if _, err := c.Load(); !models.IsModelLoad(err) {
		t.Fatalf("got %v, want ModelLoadError on feature order mismatch", err)
	}
}

func TestLoadZeroScaleRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zero_scale.json")
	artifact := `{
		"version": "x",
		"feature_names": ["hr_mean", "hr_std", "hr_min", "hr_max", "hr_range",
			"accel_magnitude_mean", "accel_magnitude_std", "accel_energy",
			"gyro_magnitude_mean", "gyro_magnitude_std", "gyro_energy"],
		"scaler": {"mean": [0,0,0,0,0,0,0,0,0,0,0], "scale": [1,0,1,1,1,1,1,1,1,1,1]},
		"trees": [{"nodes": [{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": 0.5}]}]
	}`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClassifier(testLogger(t), path)
	if _, err := c.Load(); !models.IsModelLoad(err) {
		t.Fatalf("got %v, want ModelLoadError on zero scale", err)
	}
}

func TestReloadSwapsArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	src, err := os.ReadFile("testdata/craving_forest.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClassifier(testLogger(t), path)
	if _, err := c.Load(); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	if c.Version() != "2025.03.1" {
		t.Fatalf("version: got %q", c.Version())
	}

	updated := []byte(string(src))
	updated = []byte(replaceOnce(string(updated), "2025.03.1", "2025.04.0"))
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c.Version() != "2025.04.0" {
		t.Fatalf("version after reload: got %q", c.Version())
	}
}

func replaceOnce(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}

func TestScalerApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scaled.json")
	// Split on scaled hr_mean: (x - 80) / 10 <= 0.5 means raw x <= 85.
	artifact := `{
		"version": "scaled",
		"feature_names": ["hr_mean", "hr_std", "hr_min", "hr_max", "hr_range",
			"accel_magnitude_mean", "accel_magnitude_std", "accel_energy",
			"gyro_magnitude_mean", "gyro_magnitude_std", "gyro_energy"],
		"scaler": {"mean": [80,0,0,0,0,0,0,0,0,0,0], "scale": [10,1,1,1,1,1,1,1,1,1,1]},
		"trees": [{"nodes": [
			{"feature": 0, "threshold": 0.5, "left": 1, "right": 2, "value": 0},
			{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": 0.1},
			{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": 0.9}
		]}]
	}`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClassifier(testLogger(t), path)
	p, err := c.Predict(testVector(84, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 0.1 {
		t.Fatalf("raw 84 should scale below threshold: got %v, want 0.1", p)
	}
	p, err = c.Predict(testVector(90, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 0.9 {
		t.Fatalf("raw 90 should scale above threshold: got %v, want 0.9", p)
	}
}
