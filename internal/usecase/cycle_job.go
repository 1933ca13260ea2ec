package usecase

import (
	"context"
	"time"

	"CravePulse/internal/domain/models"
	"CravePulse/pkg/logger"
	"CravePulse/pkg/queue"
)

// CyclePayload is the queued unit of work: one prediction cycle for one
// subject. A zero WindowStart means the most recent closed window.
type CyclePayload struct {
	SubjectID   string `json:"subject_id"`
	WindowStart int64  `json:"window_start,omitempty"`
}

// CycleJobType is the queue message type for prediction cycles.
const CycleJobType = "cycle.predict"

// CycleJob adapts the orchestrator to the queue's Job contract and maps
// cycle errors onto the queue's retry semantics: sparse windows are not
// errors, model artifact problems are terminal, everything else retries
// with backoff.
type CycleJob struct {
	logger       *logger.Logger
	orchestrator *PredictionOrchestrator
}

// NewCycleJob creates the prediction cycle job.
func NewCycleJob(lgr *logger.Logger, orchestrator *PredictionOrchestrator) *CycleJob {
	return &CycleJob{logger: lgr, orchestrator: orchestrator}
}

func (j *CycleJob) Name() string { return "prediction_cycle" }

func (j *CycleJob) Type() string { return CycleJobType }

func (j *CycleJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[CyclePayload](payload)
	if err != nil {
		// malformed payload will never parse on retry
		return queue.Terminal(err)
	}
	if p.SubjectID == "" {
		return queue.Terminal(errMissingSubject)
	}

	var windowStart time.Time
	if p.WindowStart > 0 {
		windowStart = time.Unix(p.WindowStart, 0).UTC()
	}

	result, err := j.orchestrator.RunCycle(ctx, p.SubjectID, windowStart)
	if err != nil {
		if models.IsModelLoad(err) {
			// artifact is broken for every cycle until an operator fixes it
			return queue.Terminal(err)
		}
		return err
	}

	if result.Outcome == models.CycleSkipped {
		j.logger.Debug("cycle skipped",
			logger.String("subject", p.SubjectID),
			logger.String("reason", result.Reason))
	}
	return nil
}
