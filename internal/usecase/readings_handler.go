package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CravePulse/internal/domain/models"
	domrepo "CravePulse/internal/domain/repository"
	pkgkafka "CravePulse/pkg/kafka"
)

// ReadingsHandler consumes wearable readings from Kafka and writes them to
// the reading store.
type ReadingsHandler struct {
	topic   string
	store   domrepo.ReadingStore
	metrics domrepo.Metrics
}

func NewReadingsHandler(topic string, store domrepo.ReadingStore, metrics domrepo.Metrics) *ReadingsHandler {
	return &ReadingsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *ReadingsHandler) Topic() string { return h.topic }

// incoming message schema: {subject_id, ts, heart_rate?, accel_x..z?, gyro_x..z?}
func (h *ReadingsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		SubjectID string   `json:"subject_id"`
		TS        int64    `json:"ts"`
		HeartRate *float64 `json:"heart_rate"`
		AccelX    *float64 `json:"accel_x"`
		AccelY    *float64 `json:"accel_y"`
		AccelZ    *float64 `json:"accel_z"`
		GyroX     *float64 `json:"gyro_x"`
		GyroY     *float64 `json:"gyro_y"`
		GyroZ     *float64 `json:"gyro_z"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.SubjectID == "" || m.TS <= 0 {
		h.metrics.RecordError("consumer_invalid")
		// unfixable payload, dropping is safer than a retry loop
		return nil
	}
	if m.TS > 1e11 { // ms
		m.TS = m.TS / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.TS, 0)).Seconds())

	start := time.Now()
	err := h.store.Store(ctx, &models.Reading{
		SubjectID: m.SubjectID,
		Timestamp: time.Unix(m.TS, 0).UTC(),
		HeartRate: m.HeartRate,
		AccelX:    m.AccelX,
		AccelY:    m.AccelY,
		AccelZ:    m.AccelZ,
		GyroX:     m.GyroX,
		GyroY:     m.GyroY,
		GyroZ:     m.GyroZ,
	})
	h.metrics.RecordLatency("reading_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*ReadingsHandler)(nil)
