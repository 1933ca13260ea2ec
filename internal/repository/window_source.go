package repository

import (
	"context"
	"time"

	"CravePulse/internal/domain/models"
	drepo "CravePulse/internal/domain/repository"
	"CravePulse/pkg/util"
)

// FixedWindowSource derives window boundaries from a fixed duration grid
// anchored at the epoch. No storage involved: boundaries per subject are
// non-overlapping and monotonically increasing by construction.
type FixedWindowSource struct {
	duration time.Duration
}

// NewFixedWindowSource creates a window source. Non-positive durations
// default to 5 minutes.
func NewFixedWindowSource(duration time.Duration) drepo.WindowSource {
	if duration <= 0 {
		duration = 5 * time.Minute
	}
	return &FixedWindowSource{duration: duration}
}

// Current returns the most recent closed window as of now. The window
// containing now is still collecting readings, so this is the one before it.
func (s *FixedWindowSource) Current(ctx context.Context, subjectID string, now time.Time) (models.Window, error) {
	start := util.WindowStart(now, s.duration).Add(-s.duration)
	return models.Window{
		SubjectID: subjectID,
		Start:     start,
		End:       start.Add(s.duration),
	}, nil
}

// At returns the window containing ts.
func (s *FixedWindowSource) At(ctx context.Context, subjectID string, ts time.Time) (models.Window, error) {
	start := util.WindowStart(ts, s.duration)
	return models.Window{
		SubjectID: subjectID,
		Start:     start,
		End:       start.Add(s.duration),
	}, nil
}
