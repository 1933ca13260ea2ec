package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	drepo "CravePulse/internal/domain/repository"
	"CravePulse/pkg/logger"
	"CravePulse/pkg/queue"
)

var errMissingSubject = errors.New("subject_id is required")

// Scheduler periodically enqueues one prediction cycle per active subject.
// Dispatch failures for one subject never prevent dispatch for the rest.
type Scheduler struct {
	logger   *logger.Logger
	registry drepo.SubjectRegistry
	queue    queue.QueueService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler ticking at the given interval.
func NewScheduler(lgr *logger.Logger, registry drepo.SubjectRegistry, q queue.QueueService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		logger:   lgr,
		registry: registry,
		queue:    q,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the dispatch loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("scheduler started", logger.Duration("interval", s.interval))
}

// Stop halts dispatch and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.dispatchAll()
		}
	}
}

// dispatchAll enqueues a cycle for every active subject. Errors are logged
// and counted; they never propagate into the ticker loop.
func (s *Scheduler) dispatchAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subjects, err := s.registry.Active(ctx)
	if err != nil {
		s.logger.Error("list active subjects", logger.Error(err))
		return
	}
	if len(subjects) == 0 {
		return
	}

	dispatched := 0
	for _, subjectID := range subjects {
		if err := s.queue.PublishMessage(ctx, CycleJobType, CyclePayload{SubjectID: subjectID}); err != nil {
			s.logger.Error("enqueue cycle",
				logger.String("subject", subjectID),
				logger.Error(err))
			continue
		}
		dispatched++
	}

	s.logger.Info("cycles dispatched",
		logger.Int("subjects", len(subjects)),
		logger.Int("dispatched", dispatched))
}
