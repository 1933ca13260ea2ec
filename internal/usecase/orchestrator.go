package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CravePulse/internal/domain/models"
	drepo "CravePulse/internal/domain/repository"
	"CravePulse/internal/services/features"
	"CravePulse/internal/services/model"
	"CravePulse/pkg/config"
	"CravePulse/pkg/logger"
)

// PredictionOrchestrator runs one end-to-end prediction cycle per subject:
// resolve window, fetch readings, extract features, classify, persist the
// analysis, then decide on notification. It raises typed errors and leaves
// retry/backoff to the queue layer.
type PredictionOrchestrator struct {
	logger     *logger.Logger
	extractor  *features.Extractor
	classifier *model.Classifier
	windows    drepo.WindowSource
	readings   drepo.ReadingStore
	analyses   drepo.AnalysisSink
	notifier   drepo.Notifier
	realtime   drepo.RealtimePublisher
	guard      drepo.NotificationGuard
	metrics    drepo.Metrics
	cfg        config.PipelineConfig
	now        func() time.Time
}

// NewPredictionOrchestrator creates an orchestrator instance.
func NewPredictionOrchestrator(
	lgr *logger.Logger,
	extractor *features.Extractor,
	classifier *model.Classifier,
	windows drepo.WindowSource,
	readings drepo.ReadingStore,
	analyses drepo.AnalysisSink,
	notifier drepo.Notifier,
	realtime drepo.RealtimePublisher,
	guard drepo.NotificationGuard,
	metrics drepo.Metrics,
	cfg config.PipelineConfig,
) *PredictionOrchestrator {
	return &PredictionOrchestrator{
		logger:     lgr,
		extractor:  extractor,
		classifier: classifier,
		windows:    windows,
		readings:   readings,
		analyses:   analyses,
		notifier:   notifier,
		realtime:   realtime,
		guard:      guard,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RunCycle executes one prediction cycle for a subject. A zero windowStart
// resolves the most recent closed window. Skipped cycles (sparse data)
// return a result with a nil error; everything else that fails returns a
// typed error for the retry layer to classify.
func (o *PredictionOrchestrator) RunCycle(ctx context.Context, subjectID string, windowStart time.Time) (*models.CycleResult, error) {
	start := o.now()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	window, err := o.resolveWindow(ctx, subjectID, windowStart)
	if err != nil {
		return nil, o.fail(subjectID, "", "resolve_window", start, err)
	}

	readings, err := o.readings.FetchWindow(ctx, window)
	if err != nil {
		return nil, o.fail(subjectID, window.ID(), "fetch_readings", start, err)
	}

	vec, err := o.extractor.Extract(readings)
	if err != nil {
		if models.IsInsufficientData(err) {
			o.metrics.RecordCycle(string(models.CycleSkipped))
			o.logger.Debug("cycle skipped, window too sparse",
				logger.String("subject", subjectID),
				logger.String("window", window.ID()),
				logger.Int("readings", len(readings)))
			return &models.CycleResult{
				SubjectID: subjectID,
				WindowID:  window.ID(),
				Outcome:   models.CycleSkipped,
				Reason:    err.Error(),
				Elapsed:   o.now().Sub(start),
			}, nil
		}
		return nil, o.fail(subjectID, window.ID(), "extract", start, err)
	}

	probability, err := o.classifier.Predict(vec)
	if err != nil {
		return nil, o.fail(subjectID, window.ID(), "predict", start, err)
	}

	analysis := &models.Analysis{
		ID:           fmt.Sprintf("%s:%d", window.ID(), start.UnixNano()),
		SubjectID:    subjectID,
		WindowID:     window.ID(),
		WindowStart:  window.Start,
		WindowEnd:    window.End,
		ModelVersion: o.classifier.Version(),
		Probability:  probability,
		Label:        Decide(probability, o.cfg.ClassificationThreshold),
		Risk:         models.RiskLevelFor(probability, o.cfg.NotificationThreshold),
		Features:     vec,
		ReadingCount: len(readings),
		CreatedAt:    start,
	}

	// Persist before acting on the probability: no prediction is consumed
	// downstream unless it is durably recorded.
	if err := o.analyses.Store(ctx, analysis); err != nil {
		return nil, o.fail(subjectID, window.ID(), "persist_analysis", start, err)
	}

	o.metrics.RecordProbability(subjectID, probability)

	notified := false
	if Decide(probability, o.cfg.NotificationThreshold) {
		notified = o.emitNotification(ctx, analysis)
	}

	o.publishRealtime(subjectID, analysis, notified)

	o.metrics.RecordCycle(string(models.CycleCompleted))
	o.metrics.RecordLatency("cycle", o.now().Sub(start).Seconds())
	o.logger.Info("cycle completed",
		logger.String("subject", subjectID),
		logger.String("window", window.ID()),
		logger.Float64("probability", probability),
		logger.Bool("notified", notified))

	return &models.CycleResult{
		SubjectID: subjectID,
		WindowID:  window.ID(),
		Outcome:   models.CycleCompleted,
		Analysis:  analysis,
		Notified:  notified,
		Elapsed:   o.now().Sub(start),
	}, nil
}

func (o *PredictionOrchestrator) resolveWindow(ctx context.Context, subjectID string, windowStart time.Time) (models.Window, error) {
	if windowStart.IsZero() {
		return o.windows.Current(ctx, subjectID, o.now())
	}
	return o.windows.At(ctx, subjectID, windowStart)
}

// emitNotification claims the (subject, window) dedup slot and calls the
// notifier. At most one event per window; a delivery failure after a
// persisted analysis is logged loudly but does not fail the cycle.
func (o *PredictionOrchestrator) emitNotification(ctx context.Context, a *models.Analysis) bool {
	first, err := o.guard.FirstEmission(ctx, a.SubjectID, a.WindowID)
	if err != nil {
		o.metrics.RecordError("notification_guard")
		o.logger.Error("notification dedup check failed, suppressing event",
			logger.String("subject", a.SubjectID),
			logger.String("window", a.WindowID),
			logger.Error(err))
		return false
	}
	if !first {
		o.logger.Debug("notification already emitted for window",
			logger.String("subject", a.SubjectID),
			logger.String("window", a.WindowID))
		return false
	}

	ev := &models.NotificationEvent{
		SubjectID:   a.SubjectID,
		WindowID:    a.WindowID,
		Probability: a.Probability,
		Risk:        a.Risk,
		ModelVer:    a.ModelVersion,
		EmittedAt:   o.now(),
	}
	if err := o.notifier.Notify(ctx, ev); err != nil {
		o.metrics.RecordError("notify")
		o.logger.Error("notification delivery failed",
			logger.String("subject", a.SubjectID),
			logger.String("window", a.WindowID),
			logger.Float64("probability", a.Probability),
			logger.Error(err))
		return false
	}

	o.metrics.RecordNotification(a.SubjectID)
	return true
}

// publishRealtime pushes the result to live subscribers. Best-effort: a
// failing publisher must not fail the cycle, so the contract is fire and
// forget.
func (o *PredictionOrchestrator) publishRealtime(subjectID string, a *models.Analysis, notified bool) {
	if o.realtime == nil {
		return
	}
	o.realtime.PublishResult(subjectID, map[string]interface{}{
		"subject_id":    a.SubjectID,
		"window_id":     a.WindowID,
		"window_start":  a.WindowStart.Unix(),
		"window_end":    a.WindowEnd.Unix(),
		"probability":   a.Probability,
		"label":         a.Label,
		"risk":          a.Risk,
		"model_version": a.ModelVersion,
		"notified":      notified,
	})
}

// fail converts a step error into the failure form the retry layer expects,
// mapping a deadline overrun to a timeout error.
func (o *PredictionOrchestrator) fail(subjectID, windowID, step string, start time.Time, err error) error {
	o.metrics.RecordCycle(string(models.CycleFailed))
	o.metrics.RecordError(step)
	o.logger.Error("cycle step failed",
		logger.String("subject", subjectID),
		logger.String("window", windowID),
		logger.String("step", step),
		logger.Error(err))

	if errors.Is(err, context.DeadlineExceeded) {
		return &models.PredictionTimeoutError{
			SubjectID: subjectID,
			Budget:    o.cfg.CycleTimeout.String(),
		}
	}
	return fmt.Errorf("%s: %w", step, err)
}
