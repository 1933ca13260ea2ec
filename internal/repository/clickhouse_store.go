package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CravePulse/internal/domain/models"
	drepo "CravePulse/internal/domain/repository"
	"CravePulse/internal/services/features"
)

// ClickHouseReadingStore implements ReadingStore on ClickHouse. The table's
// ReplacingMergeTree key (subject_id, ts) makes batch re-ingestion idempotent.
type ClickHouseReadingStore struct {
	db *sql.DB
}

// NewClickHouseReadingStore creates the reading store.
func NewClickHouseReadingStore(db *sql.DB) drepo.ReadingStore {
	return &ClickHouseReadingStore{db: db}
}

func (s *ClickHouseReadingStore) Store(ctx context.Context, r *models.Reading) error {
	q := `INSERT INTO readings (subject_id, ts, heart_rate, accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		r.SubjectID, r.Timestamp,
		r.HeartRate,
		r.AccelX, r.AccelY, r.AccelZ,
		r.GyroX, r.GyroY, r.GyroZ,
	)
	if err != nil {
		return &models.StorageError{Op: "store_reading", Err: err}
	}
	return nil
}

func (s *ClickHouseReadingStore) StoreBatch(ctx context.Context, readings []*models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	const chunkSize = 2000
	for start := 0; start < len(readings); start += chunkSize {
		end := start + chunkSize
		if end > len(readings) {
			end = len(readings)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, r := range readings[start:end] {
			if r == nil || r.SubjectID == "" || r.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.SubjectID, r.Timestamp,
				r.HeartRate,
				r.AccelX, r.AccelY, r.AccelZ,
				r.GyroX, r.GyroY, r.GyroZ,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO readings (subject_id, ts, heart_rate, accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z) VALUES %s",
			strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return &models.StorageError{Op: "store_readings_batch", Err: err}
		}
	}
	return nil
}

func (s *ClickHouseReadingStore) FetchWindow(ctx context.Context, w models.Window) ([]*models.Reading, error) {
	q := `SELECT subject_id, ts, heart_rate, accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z
		FROM readings FINAL
		WHERE subject_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts`
	rows, err := s.db.QueryContext(ctx, q, w.SubjectID, w.Start, w.End)
	if err != nil {
		return nil, &models.StorageError{Op: "fetch_window", Err: err}
	}
	defer rows.Close()

	var readings []*models.Reading
	for rows.Next() {
		var r models.Reading
		var hr, ax, ay, az, gx, gy, gz sql.NullFloat64
		if err := rows.Scan(&r.SubjectID, &r.Timestamp, &hr, &ax, &ay, &az, &gx, &gy, &gz); err != nil {
			return nil, &models.StorageError{Op: "scan_reading", Err: err}
		}
		r.HeartRate = nullToPtr(hr)
		r.AccelX, r.AccelY, r.AccelZ = nullToPtr(ax), nullToPtr(ay), nullToPtr(az)
		r.GyroX, r.GyroY, r.GyroZ = nullToPtr(gx), nullToPtr(gy), nullToPtr(gz)
		readings = append(readings, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "fetch_window", Err: err}
	}
	return readings, nil
}

func (s *ClickHouseReadingStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullToPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// ClickHouseAnalysisSink implements AnalysisSink on ClickHouse. Append-only:
// reruns on the same window add rows rather than replacing them.
type ClickHouseAnalysisSink struct {
	db *sql.DB
}

// NewClickHouseAnalysisSink creates the analysis sink.
func NewClickHouseAnalysisSink(db *sql.DB) drepo.AnalysisSink {
	return &ClickHouseAnalysisSink{db: db}
}

func (s *ClickHouseAnalysisSink) Store(ctx context.Context, a *models.Analysis) error {
	featuresJSON, err := json.Marshal(featureMap(a.Features))
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	label := uint8(0)
	if a.Label {
		label = 1
	}

	q := `INSERT INTO analyses (id, subject_id, window_id, window_start, window_end, model_version, probability, label, risk, features, reading_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		a.ID, a.SubjectID, a.WindowID,
		a.WindowStart, a.WindowEnd,
		a.ModelVersion, a.Probability, label, string(a.Risk),
		string(featuresJSON), uint32(a.ReadingCount), a.CreatedAt,
	)
	if err != nil {
		return &models.StorageError{Op: "store_analysis", Err: err}
	}
	return nil
}

func (s *ClickHouseAnalysisSink) Query(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]*models.Analysis, error) {
	q := `SELECT id, subject_id, window_id, window_start, window_end, model_version, probability, label, risk, features, reading_count, created_at
		FROM analyses
		WHERE subject_id = ? AND window_start >= ? AND window_start <= ?
		ORDER BY created_at DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, subjectID, from, to, limit)
	if err != nil {
		return nil, &models.StorageError{Op: "query_analyses", Err: err}
	}
	defer rows.Close()

	var out []*models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *ClickHouseAnalysisSink) Latest(ctx context.Context, subjectID string) (*models.Analysis, error) {
	q := `SELECT id, subject_id, window_id, window_start, window_end, model_version, probability, label, risk, features, reading_count, created_at
		FROM analyses
		WHERE subject_id = ?
		ORDER BY created_at DESC
		LIMIT 1`
	rows, err := s.db.QueryContext(ctx, q, subjectID)
	if err != nil {
		return nil, &models.StorageError{Op: "latest_analysis", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanAnalysis(rows)
}

func scanAnalysis(rows *sql.Rows) (*models.Analysis, error) {
	var a models.Analysis
	var label uint8
	var risk, featuresJSON string
	var readingCount uint32
	if err := rows.Scan(&a.ID, &a.SubjectID, &a.WindowID, &a.WindowStart, &a.WindowEnd,
		&a.ModelVersion, &a.Probability, &label, &risk, &featuresJSON, &readingCount, &a.CreatedAt); err != nil {
		return nil, &models.StorageError{Op: "scan_analysis", Err: err}
	}
	a.Label = label == 1
	a.Risk = models.RiskLevel(risk)
	a.ReadingCount = int(readingCount)

	var fm map[string]float64
	if err := json.Unmarshal([]byte(featuresJSON), &fm); err == nil {
		a.Features = featureVectorFromMap(fm)
	}
	return &a, nil
}

func featureMap(v models.FeatureVector) map[string]float64 {
	m := make(map[string]float64, len(v.Names))
	for i, name := range v.Names {
		m[name] = v.Values[i]
	}
	return m
}

// featureVectorFromMap restores the extractor's canonical order when every
// expected feature is present, otherwise keeps whatever the row holds.
func featureVectorFromMap(m map[string]float64) models.FeatureVector {
	ordered := make([]float64, 0, len(features.FeatureNames))
	for _, name := range features.FeatureNames {
		v, ok := m[name]
		if !ok {
			ordered = nil
			break
		}
		ordered = append(ordered, v)
	}
	if ordered != nil {
		return models.FeatureVector{Names: features.FeatureNames, Values: ordered}
	}

	names := make([]string, 0, len(m))
	values := make([]float64, 0, len(m))
	for name, value := range m {
		names = append(names, name)
		values = append(values, value)
	}
	return models.FeatureVector{Names: names, Values: values}
}
