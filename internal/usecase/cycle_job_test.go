package usecase

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"CravePulse/internal/services/features"
	"CravePulse/internal/services/model"
	"CravePulse/pkg/queue"
)

func TestCycleJobSkippedIsNotAnError(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	o := newTestOrchestrator(t, 0.85, &stubReadings{rs: testReadings(5)}, sink, notifier, &memGuard{}, &recordRealtime{})
	job := NewCycleJob(testLogger(t), o)

	payload, _ := json.Marshal(CyclePayload{SubjectID: "s1"})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); err != nil {
		t.Fatalf("sparse window should not error: %v", err)
	}
}

func TestCycleJobModelLoadErrorIsTerminal(t *testing.T) {
	lgr := testLogger(t)
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	o := newBrokenModelOrchestrator(t, sink, notifier)
	job := NewCycleJob(lgr, o)

	payload, _ := json.Marshal(CyclePayload{SubjectID: "s1"})
	err := job.Handle(context.Background(), json.RawMessage(payload))
	if err == nil {
		t.Fatal("expected error for missing model artifact")
	}
	if !queue.IsTerminal(err) {
		t.Fatalf("model load failure must be terminal, got %v", err)
	}

	// every subsequent cycle fails the same way until the artifact is fixed
	err2 := job.Handle(context.Background(), json.RawMessage(payload))
	if !queue.IsTerminal(err2) {
		t.Fatalf("second attempt must fail identically, got %v", err2)
	}
}

func TestCycleJobTransientErrorIsRetryable(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	readings := &stubReadings{err: context.DeadlineExceeded}
	o := newTestOrchestrator(t, 0.85, readings, sink, notifier, &memGuard{}, &recordRealtime{})
	job := NewCycleJob(testLogger(t), o)

	payload, _ := json.Marshal(CyclePayload{SubjectID: "s1"})
	err := job.Handle(context.Background(), json.RawMessage(payload))
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if queue.IsTerminal(err) {
		t.Fatalf("storage failure must stay retryable, got %v", err)
	}
}

func TestCycleJobRejectsMalformedPayload(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	o := newTestOrchestrator(t, 0.85, &stubReadings{rs: testReadings(30)}, sink, notifier, &memGuard{}, &recordRealtime{})
	job := NewCycleJob(testLogger(t), o)

	err := job.Handle(context.Background(), json.RawMessage(`{"subject_id": ""}`))
	if !queue.IsTerminal(err) {
		t.Fatalf("missing subject must be terminal, got %v", err)
	}
}

// newBrokenModelOrchestrator points the classifier at a nonexistent artifact.
func newBrokenModelOrchestrator(t *testing.T, sink *recordSink, notifier *recordNotifier) *PredictionOrchestrator {
	t.Helper()
	lgr := testLogger(t)
	classifier := model.NewClassifier(lgr, filepath.Join(t.TempDir(), "missing.json"))
	return NewPredictionOrchestrator(
		lgr,
		features.NewExtractor(10, 70),
		classifier,
		stubWindows{w: testWindow()},
		&stubReadings{rs: testReadings(30)},
		sink,
		notifier,
		&recordRealtime{},
		&memGuard{},
		nopMetrics{},
		testPipelineConfig(),
	)
}
