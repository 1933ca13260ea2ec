package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"CravePulse/internal/domain/models"
	"CravePulse/internal/services/features"
	"CravePulse/internal/services/model"
	"CravePulse/pkg/config"
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

// writeArtifact writes a single-tree artifact whose every prediction is leaf.
func writeArtifact(t *testing.T, leaf float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	artifact := fmt.Sprintf(`{
		"version": "test-1",
		"feature_names": ["hr_mean", "hr_std", "hr_min", "hr_max", "hr_range",
			"accel_magnitude_mean", "accel_magnitude_std", "accel_energy",
			"gyro_magnitude_mean", "gyro_magnitude_std", "gyro_energy"],
		"scaler": {"mean": [0,0,0,0,0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1,1,1,1,1]},
		"trees": [{"nodes": [{"feature": 0, "threshold": 0, "left": -1, "right": -1, "value": %v}]}]
	}`, leaf)
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Window:                  5 * time.Minute,
		MinReadings:             10,
		ClassificationThreshold: 0.5,
		NotificationThreshold:   0.7,
		CycleTimeout:            10 * time.Second,
		DefaultHeartRate:        70,
		SchedulerInterval:       5 * time.Minute,
	}
}

func testWindow() models.Window {
	start := time.Date(2025, 3, 10, 10, 10, 0, 0, time.UTC)
	return models.Window{SubjectID: "s1", Start: start, End: start.Add(5 * time.Minute)}
}

func testReadings(n int) []*models.Reading {
	w := testWindow()
	out := make([]*models.Reading, n)
	for i := range out {
		hr := 87.0
		ax, ay, az := 0.45, 0.0, 0.0
		gx, gy, gz := 0.31, 0.0, 0.0
		out[i] = &models.Reading{
			SubjectID: "s1",
			Timestamp: w.Start.Add(time.Duration(i) * time.Second),
			HeartRate: &hr,
			AccelX:    &ax, AccelY: &ay, AccelZ: &az,
			GyroX: &gx, GyroY: &gy, GyroZ: &gz,
		}
	}
	return out
}

// --- fakes ---

type stubWindows struct{ w models.Window }

func (s stubWindows) Current(ctx context.Context, subjectID string, now time.Time) (models.Window, error) {
	return s.w, nil
}

func (s stubWindows) At(ctx context.Context, subjectID string, ts time.Time) (models.Window, error) {
	return s.w, nil
}

type stubReadings struct {
	rs  []*models.Reading
	err error
}

func (s *stubReadings) Store(ctx context.Context, r *models.Reading) error { return nil }
func (s *stubReadings) StoreBatch(ctx context.Context, rs []*models.Reading) error {
	return nil
}
func (s *stubReadings) FetchWindow(ctx context.Context, w models.Window) ([]*models.Reading, error) {
	return s.rs, s.err
}
func (s *stubReadings) Health(ctx context.Context) error { return nil }

type recordSink struct {
	stored []*models.Analysis
	err    error
}

func (s *recordSink) Store(ctx context.Context, a *models.Analysis) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, a)
	return nil
}

func (s *recordSink) Query(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]*models.Analysis, error) {
	return s.stored, nil
}

func (s *recordSink) Latest(ctx context.Context, subjectID string) (*models.Analysis, error) {
	if len(s.stored) == 0 {
		return nil, nil
	}
	return s.stored[len(s.stored)-1], nil
}

// recordNotifier also checks that the analysis was persisted before the
// notifier is invoked.
type recordNotifier struct {
	sink   *recordSink
	events []*models.NotificationEvent
	err    error
	t      *testing.T
}

func (n *recordNotifier) Notify(ctx context.Context, ev *models.NotificationEvent) error {
	if n.err != nil {
		return n.err
	}
	if n.sink != nil && len(n.sink.stored) == 0 {
		n.t.Fatal("notifier invoked before analysis was persisted")
	}
	n.events = append(n.events, ev)
	return nil
}

type memGuard struct {
	seen map[string]bool
	err  error
}

func (g *memGuard) FirstEmission(ctx context.Context, subjectID, windowID string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	key := subjectID + "/" + windowID
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

type recordRealtime struct {
	payloads []interface{}
}

func (r *recordRealtime) PublishResult(subjectID string, payload interface{}) {
	r.payloads = append(r.payloads, payload)
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(outcome string)                    {}
func (nopMetrics) RecordError(kind string)                       {}
func (nopMetrics) RecordProbability(subjectID string, p float64) {}
func (nopMetrics) RecordNotification(subjectID string)           {}
func (nopMetrics) RecordLatency(op string, seconds float64)      {}

func newTestOrchestrator(t *testing.T, leaf float64, readings *stubReadings, sink *recordSink, notifier *recordNotifier, guard *memGuard, realtime *recordRealtime) *PredictionOrchestrator {
	t.Helper()
	lgr := testLogger(t)
	classifier := model.NewClassifier(lgr, writeArtifact(t, leaf))
	return NewPredictionOrchestrator(
		lgr,
		features.NewExtractor(10, 70),
		classifier,
		stubWindows{w: testWindow()},
		readings,
		sink,
		notifier,
		realtime,
		guard,
		nopMetrics{},
		testPipelineConfig(),
	)
}

// --- tests ---

func TestRunCycleCompletesAndNotifies(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	realtime := &recordRealtime{}
	o := newTestOrchestrator(t, 0.85, &stubReadings{rs: testReadings(30)}, sink, notifier, &memGuard{}, realtime)

	result, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != models.CycleCompleted {
		t.Fatalf("outcome: got %s", result.Outcome)
	}
	if len(sink.stored) != 1 {
		t.Fatalf("analyses persisted: got %d, want 1", len(sink.stored))
	}
	a := sink.stored[0]
	if a.Probability != 0.85 {
		t.Fatalf("probability: got %v, want 0.85", a.Probability)
	}
	if !a.Label {
		t.Fatal("0.85 > 0.5 should be labeled positive")
	}
	if a.Risk != models.RiskHigh {
		t.Fatalf("risk: got %s, want high", a.Risk)
	}
	if !result.Notified || len(notifier.events) != 1 {
		t.Fatalf("notified=%v events=%d, want one notification", result.Notified, len(notifier.events))
	}
	if len(realtime.payloads) != 1 {
		t.Fatalf("realtime payloads: got %d, want 1", len(realtime.payloads))
	}
}

func TestRunCyclePositiveLabelWithoutNotification(t *testing.T) {
	// 0.6 crosses the classification threshold but not the notification one
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	o := newTestOrchestrator(t, 0.6, &stubReadings{rs: testReadings(30)}, sink, notifier, &memGuard{}, &recordRealtime{})

	result, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sink.stored[0].Label {
		t.Fatal("0.6 should be labeled positive")
	}
	if result.Notified || len(notifier.events) != 0 {
		t.Fatal("0.6 must not notify at threshold 0.7")
	}
}

func TestRunCycleThresholdBoundaryDoesNotNotify(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	o := newTestOrchestrator(t, 0.7, &stubReadings{rs: testReadings(30)}, sink, notifier, &memGuard{}, &recordRealtime{})

	result, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Notified || len(notifier.events) != 0 {
		t.Fatal("probability exactly at threshold must not notify")
	}
}

func TestRunCycleSkipsSparseWindow(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	o := newTestOrchestrator(t, 0.85, &stubReadings{rs: testReadings(5)}, sink, notifier, &memGuard{}, &recordRealtime{})

	result, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("skipped cycle must not error: %v", err)
	}
	if result.Outcome != models.CycleSkipped {
		t.Fatalf("outcome: got %s, want skipped", result.Outcome)
	}
	if len(sink.stored) != 0 {
		t.Fatal("skipped cycle must not persist an analysis")
	}
	if len(notifier.events) != 0 {
		t.Fatal("skipped cycle must not notify")
	}
}

func TestRunCycleRerunDeduplicatesNotification(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	guard := &memGuard{}
	o := newTestOrchestrator(t, 0.9, &stubReadings{rs: testReadings(30)}, sink, notifier, guard, &recordRealtime{})

	first, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	// reruns may add analyses but never a second notification
	if len(sink.stored) != 2 {
		t.Fatalf("analyses: got %d, want 2", len(sink.stored))
	}
	if sink.stored[0].Probability != sink.stored[1].Probability {
		t.Fatalf("rerun probability differs: %v vs %v",
			sink.stored[0].Probability, sink.stored[1].Probability)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifier.events))
	}
	if !first.Notified || second.Notified {
		t.Fatalf("notified flags: first=%v second=%v", first.Notified, second.Notified)
	}
}

func TestRunCycleStorageFailurePropagates(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t}
	readings := &stubReadings{err: &models.StorageError{Op: "fetch", Err: context.DeadlineExceeded}}
	o := newTestOrchestrator(t, 0.85, readings, sink, notifier, &memGuard{}, &recordRealtime{})

	_, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err == nil {
		t.Fatal("expected error from failing reading store")
	}
	if len(sink.stored) != 0 {
		t.Fatal("no analysis should be persisted on fetch failure")
	}
}

func TestRunCycleNotifierFailureKeepsAnalysis(t *testing.T) {
	sink := &recordSink{}
	notifier := &recordNotifier{sink: sink, t: t, err: context.DeadlineExceeded}
	o := newTestOrchestrator(t, 0.9, &stubReadings{rs: testReadings(30)}, sink, notifier, &memGuard{}, &recordRealtime{})

	result, err := o.RunCycle(context.Background(), "s1", time.Time{})
	if err != nil {
		t.Fatalf("delivery failure must not fail the cycle: %v", err)
	}
	if result.Outcome != models.CycleCompleted {
		t.Fatalf("outcome: got %s, want completed", result.Outcome)
	}
	if result.Notified {
		t.Fatal("failed delivery must not report notified")
	}
	if len(sink.stored) != 1 {
		t.Fatal("analysis must remain persisted")
	}
}
