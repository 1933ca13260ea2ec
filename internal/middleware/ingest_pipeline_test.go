package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"CravePulse/internal/domain/models"
)

type captureSink struct {
	stored []*models.Reading
	err    error
}

func (s *captureSink) Store(ctx context.Context, r *models.Reading) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, r)
	return nil
}

type countMetrics struct {
	errors map[string]int
}

func (m *countMetrics) RecordCycle(outcome string)                    {}
func (m *countMetrics) RecordProbability(subjectID string, p float64) {}
func (m *countMetrics) RecordNotification(subjectID string)           {}
func (m *countMetrics) RecordLatency(op string, seconds float64)      {}
func (m *countMetrics) RecordError(kind string) {
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func validSample(subjectID string, ts time.Time) *models.Reading {
	hr := 72.0
	return &models.Reading{SubjectID: subjectID, Timestamp: ts, HeartRate: &hr}
}

func TestPipelineForwardsValidReading(t *testing.T) {
	sink := &captureSink{}
	p := NewIngestPipeline(sink, &countMetrics{})

	if err := p.Process(context.Background(), validSample("s1", time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.stored) != 1 {
		t.Fatalf("stored: got %d, want 1", len(sink.stored))
	}
}

func TestPipelineRejectsInvalidReading(t *testing.T) {
	sink := &captureSink{}
	m := &countMetrics{}
	p := NewIngestPipeline(sink, m)

	if err := p.Process(context.Background(), &models.Reading{Timestamp: time.Now()}); err == nil {
		t.Fatal("empty subject must be rejected")
	}
	hr := 900.0
	bad := &models.Reading{SubjectID: "s1", Timestamp: time.Now(), HeartRate: &hr}
	if err := p.Process(context.Background(), bad); err == nil {
		t.Fatal("implausible heart rate must be rejected")
	}
	if len(sink.stored) != 0 {
		t.Fatal("invalid readings must not reach the sink")
	}
	if m.errors["pipeline_validate"] != 2 {
		t.Fatalf("validate errors: got %d, want 2", m.errors["pipeline_validate"])
	}
}

func TestPipelineBuffersOnSinkFailure(t *testing.T) {
	sink := &captureSink{err: errors.New("down")}
	m := &countMetrics{}
	p := NewIngestPipeline(sink, m, WithBufferSize(4))

	err := p.Process(context.Background(), validSample("s1", time.Now()))
	if err == nil {
		t.Fatal("expected downstream error")
	}
	if m.errors["pipeline_store"] != 1 {
		t.Fatalf("store errors: got %d", m.errors["pipeline_store"])
	}

	// buffered reading is flushed once the sink recovers
	sink.err = nil
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for len(sink.stored) == 0 {
		select {
		case <-deadline:
			t.Fatal("buffered reading never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineThrottlesPerSubject(t *testing.T) {
	sink := &captureSink{}
	m := &countMetrics{}
	p := NewIngestPipeline(sink, m, WithMaxRPS(1))

	now := time.Now()
	if err := p.Process(context.Background(), validSample("s1", now)); err != nil {
		t.Fatalf("first reading: %v", err)
	}
	// immediate second sample from same subject is throttled, silently dropped
	if err := p.Process(context.Background(), validSample("s1", now)); err != nil {
		t.Fatalf("throttled reading should not error: %v", err)
	}
	if len(sink.stored) != 1 {
		t.Fatalf("stored: got %d, want 1", len(sink.stored))
	}
	if m.errors["pipeline_throttle"] != 1 {
		t.Fatalf("throttle count: got %d", m.errors["pipeline_throttle"])
	}

	// a different subject is not affected
	if err := p.Process(context.Background(), validSample("s2", now)); err != nil {
		t.Fatalf("other subject: %v", err)
	}
	if len(sink.stored) != 2 {
		t.Fatalf("stored: got %d, want 2", len(sink.stored))
	}
}
