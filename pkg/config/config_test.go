package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
clickhouse:
  host: localhost
kafka:
  brokers: ["localhost:9092"]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesPipelineDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.Window != 5*time.Minute {
		t.Fatalf("window default = %v", cfg.Pipeline.Window)
	}
	if cfg.Pipeline.MinReadings != 10 {
		t.Fatalf("min_readings default = %d", cfg.Pipeline.MinReadings)
	}
	if cfg.Pipeline.ClassificationThreshold != 0.5 {
		t.Fatalf("classification_threshold default = %v", cfg.Pipeline.ClassificationThreshold)
	}
	if cfg.Pipeline.NotificationThreshold != 0.7 {
		t.Fatalf("notification_threshold default = %v", cfg.Pipeline.NotificationThreshold)
	}
	if cfg.Pipeline.DefaultHeartRate != 70 {
		t.Fatalf("default_heart_rate default = %v", cfg.Pipeline.DefaultHeartRate)
	}
	if cfg.Queue.RetryLimit != 3 {
		t.Fatalf("retry_limit default = %d", cfg.Queue.RetryLimit)
	}
	if cfg.Queue.RetryDelay != time.Minute {
		t.Fatalf("retry_delay default = %v", cfg.Queue.RetryDelay)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
pipeline:
  min_readings: 20
  notification_threshold: 0.85
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.MinReadings != 20 {
		t.Fatalf("min_readings = %d", cfg.Pipeline.MinReadings)
	}
	if cfg.Pipeline.NotificationThreshold != 0.85 {
		t.Fatalf("notification_threshold = %v", cfg.Pipeline.NotificationThreshold)
	}
	// untouched defaults remain
	if cfg.Pipeline.ClassificationThreshold != 0.5 {
		t.Fatalf("classification_threshold = %v", cfg.Pipeline.ClassificationThreshold)
	}
}

func TestValidateRejectsMissingHost(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
kafka:
  brokers: ["localhost:9092"]
`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
pipeline:
  notification_threshold: 1.5
`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
