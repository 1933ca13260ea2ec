package repository

import (
	"context"
	"time"

	"CravePulse/internal/domain/models"
)

// ReadingStore provides readings grouped by (subject, window).
type ReadingStore interface {
	Store(ctx context.Context, r *models.Reading) error
	StoreBatch(ctx context.Context, readings []*models.Reading) error
	FetchWindow(ctx context.Context, w models.Window) ([]*models.Reading, error)
	Health(ctx context.Context) error
}

// WindowSource resolves windows for a subject. Boundaries are
// non-overlapping and monotonically increasing per subject.
type WindowSource interface {
	// Current returns the most recent closed window as of now.
	Current(ctx context.Context, subjectID string, now time.Time) (models.Window, error)
	// At returns the window containing ts.
	At(ctx context.Context, subjectID string, ts time.Time) (models.Window, error)
}

// AnalysisSink accepts completed analyses for durable storage.
// Multiple analyses per window are allowed.
type AnalysisSink interface {
	Store(ctx context.Context, a *models.Analysis) error
	Query(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]*models.Analysis, error)
	Latest(ctx context.Context, subjectID string) (*models.Analysis, error)
}

// Notifier delivers notification events downstream. The orchestrator only
// decides whether to call it.
type Notifier interface {
	Notify(ctx context.Context, ev *models.NotificationEvent) error
}

// RealtimePublisher pushes prediction results to live subscribers.
// Failures are best-effort and must not fail the cycle.
type RealtimePublisher interface {
	PublishResult(subjectID string, payload interface{})
}

// NotificationGuard deduplicates notification events per (subject, window).
type NotificationGuard interface {
	// FirstEmission returns true exactly once per (subject, window) pair
	// within the guard's retention.
	FirstEmission(ctx context.Context, subjectID, windowID string) (bool, error)
}

// SubjectRegistry tracks subjects with an active monitoring session.
type SubjectRegistry interface {
	Activate(ctx context.Context, subjectID string) error
	Deactivate(ctx context.Context, subjectID string) error
	Active(ctx context.Context) ([]string, error)
	IsActive(ctx context.Context, subjectID string) (bool, error)
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordCycle(outcome string)
	RecordError(kind string)
	RecordProbability(subjectID string, p float64)
	RecordNotification(subjectID string)
	RecordLatency(op string, seconds float64)
}
