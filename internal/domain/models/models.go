package models

import (
	"fmt"
	"time"
)

// Reading is one instant sensor sample from a wearable device.
// Any of the sensor fields may be absent when the device drops a channel,
// hence the pointer types. Immutable once recorded.
type Reading struct {
	SubjectID string
	Timestamp time.Time
	HeartRate *float64 // beats per minute
	AccelX    *float64 // g
	AccelY    *float64
	AccelZ    *float64
	GyroX     *float64 // degrees per second
	GyroY     *float64
	GyroZ     *float64
}

// HasAccel reports whether all three acceleration components are present.
func (r *Reading) HasAccel() bool {
	return r.AccelX != nil && r.AccelY != nil && r.AccelZ != nil
}

// HasGyro reports whether all three angular-velocity components are present.
func (r *Reading) HasGyro() bool {
	return r.GyroX != nil && r.GyroY != nil && r.GyroZ != nil
}

// Window is a bounded time interval [Start, End) for one subject.
// Boundaries are non-overlapping and monotonically increasing per subject.
type Window struct {
	SubjectID string
	Start     time.Time
	End       time.Time
}

// ID returns a stable identifier derived from subject and start boundary.
// Reprocessing the same window always yields the same ID.
func (w Window) ID() string {
	return fmt.Sprintf("%s:%d", w.SubjectID, w.Start.Unix())
}

// Contains reports whether ts falls inside [Start, End).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// FeatureVector is the ordered 11-feature summary of a window's readings.
// Order matches the classifier's training contract.
type FeatureVector struct {
	Names  []string
	Values []float64
}

// Get returns the value of a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// RiskLevel buckets a craving probability for display and alert routing.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevelFor maps a probability to a risk bucket.
// High matches the notification cutoff; medium starts at 0.4.
func RiskLevelFor(probability, notificationThreshold float64) RiskLevel {
	switch {
	case probability >= notificationThreshold:
		return RiskHigh
	case probability >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Analysis is the immutable output of one classification run on a window.
// A window may accumulate multiple analyses over time.
type Analysis struct {
	ID           string
	SubjectID    string
	WindowID     string
	WindowStart  time.Time
	WindowEnd    time.Time
	ModelVersion string
	Probability  float64
	Label        bool // probability > classification threshold
	Risk         RiskLevel
	Features     FeatureVector
	ReadingCount int
	CreatedAt    time.Time
}

// NotificationEvent is emitted when an analysis crosses the notification
// threshold. At most one per (subject, window) pair.
type NotificationEvent struct {
	SubjectID   string
	WindowID    string
	Probability float64
	Risk        RiskLevel
	ModelVer    string
	EmittedAt   time.Time
}

// CycleOutcome classifies how a prediction cycle ended.
type CycleOutcome string

const (
	CycleCompleted CycleOutcome = "completed"
	CycleSkipped   CycleOutcome = "skipped"
	CycleFailed    CycleOutcome = "failed"
)

// CycleResult summarizes one prediction cycle for one subject.
type CycleResult struct {
	SubjectID string
	WindowID  string
	Outcome   CycleOutcome
	Analysis  *Analysis // nil unless Outcome == CycleCompleted
	Notified  bool
	Reason    string // populated for skipped/failed outcomes
	Elapsed   time.Duration
}
