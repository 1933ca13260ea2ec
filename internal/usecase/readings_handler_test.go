package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"CravePulse/internal/domain/models"
)

func timeStr(v int64) string { return strconv.FormatInt(v, 10) }

type captureStore struct {
	mu   sync.Mutex
	got  []*models.Reading
	fail error
}

func (s *captureStore) Store(ctx context.Context, r *models.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.got = append(s.got, r)
	return nil
}

func (s *captureStore) StoreBatch(ctx context.Context, rs []*models.Reading) error {
	for _, r := range rs {
		if err := s.Store(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *captureStore) FetchWindow(ctx context.Context, w models.Window) ([]*models.Reading, error) {
	return nil, nil
}

func (s *captureStore) Health(ctx context.Context) error { return nil }

type countMetrics struct {
	nopMetrics
	mu     sync.Mutex
	errors map[string]int
}

func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func (m *countMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func TestReadingsHandlerStoresValidPayload(t *testing.T) {
	store := &captureStore{}
	h := NewReadingsHandler("wearable.readings", store, &countMetrics{})

	ts := time.Date(2025, 3, 10, 10, 12, 30, 0, time.UTC).Unix()
	payload := []byte(`{"subject_id":"subj-1","ts":` + timeStr(ts) + `,"heart_rate":88.5,"accel_x":0.2,"accel_y":0.1,"accel_z":0.4}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(store.got) != 1 {
		t.Fatalf("stored %d readings, want 1", len(store.got))
	}
	r := store.got[0]
	if r.SubjectID != "subj-1" {
		t.Fatalf("subject = %q", r.SubjectID)
	}
	if !r.Timestamp.Equal(time.Unix(ts, 0).UTC()) {
		t.Fatalf("timestamp = %v, want %v", r.Timestamp, time.Unix(ts, 0).UTC())
	}
	if r.HeartRate == nil || *r.HeartRate != 88.5 {
		t.Fatalf("heart rate = %v", r.HeartRate)
	}
	if r.GyroX != nil {
		t.Fatalf("gyro_x should stay nil when absent")
	}
}

func TestReadingsHandlerInvalidJSONReturnsError(t *testing.T) {
	store := &captureStore{}
	m := &countMetrics{}
	h := NewReadingsHandler("wearable.readings", store, m)

	// Undecodable bytes go back to the consumer's retry/DLQ path; the
	// handler itself must not panic or store anything.
	if err := h.Handle(context.Background(), []byte(`{"subject_id": "subj-1",`)); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if len(store.got) != 0 {
		t.Fatalf("stored %d readings, want 0", len(store.got))
	}
	if m.errorCount("consumer_unmarshal") != 1 {
		t.Fatalf("consumer_unmarshal count = %d, want 1", m.errorCount("consumer_unmarshal"))
	}
}

func TestReadingsHandlerDropsUnfixablePayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"missing subject", `{"ts": 1741601550, "heart_rate": 80}`},
		{"zero timestamp", `{"subject_id": "subj-1", "ts": 0}`},
		{"negative timestamp", `{"subject_id": "subj-1", "ts": -5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &captureStore{}
			m := &countMetrics{}
			h := NewReadingsHandler("wearable.readings", store, m)

			// nil error: retrying cannot fix these, the message is dropped
			if err := h.Handle(context.Background(), []byte(tc.payload)); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(store.got) != 0 {
				t.Fatalf("stored %d readings, want 0", len(store.got))
			}
			if m.errorCount("consumer_invalid") != 1 {
				t.Fatalf("consumer_invalid count = %d, want 1", m.errorCount("consumer_invalid"))
			}
		})
	}
}

func TestReadingsHandlerNormalizesMillisecondTimestamps(t *testing.T) {
	store := &captureStore{}
	h := NewReadingsHandler("wearable.readings", store, &countMetrics{})

	sec := time.Date(2025, 3, 10, 10, 12, 30, 0, time.UTC).Unix()
	ms := sec * 1000
	payload := []byte(`{"subject_id":"subj-1","ts":` + timeStr(ms) + `}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(store.got) != 1 {
		t.Fatalf("stored %d readings, want 1", len(store.got))
	}
	if got, want := store.got[0].Timestamp, time.Unix(sec, 0).UTC(); !got.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", got, want)
	}
}

func TestReadingsHandlerStoreFailurePropagates(t *testing.T) {
	store := &captureStore{fail: errors.New("insert refused")}
	m := &countMetrics{}
	h := NewReadingsHandler("wearable.readings", store, m)

	payload := []byte(`{"subject_id":"subj-1","ts":1741601550}`)
	if err := h.Handle(context.Background(), payload); err == nil {
		t.Fatal("expected store error to propagate for retry")
	}
	if m.errorCount("consumer_store") != 1 {
		t.Fatalf("consumer_store count = %d, want 1", m.errorCount("consumer_store"))
	}
}