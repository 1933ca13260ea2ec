package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"CravePulse/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func makeReadings(n int, hr, accel, gyro float64) []*models.Reading {
	base := time.Date(2025, 3, 10, 10, 10, 0, 0, time.UTC)
	out := make([]*models.Reading, n)
	for i := range out {
		out[i] = &models.Reading{
			SubjectID: "s1",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			HeartRate: f(hr),
			AccelX:    f(accel),
			AccelY:    f(0),
			AccelZ:    f(0),
			GyroX:     f(gyro),
			GyroY:     f(0),
			GyroZ:     f(0),
		}
	}
	return out
}

func TestExtractOrderAndFiniteness(t *testing.T) {
	e := NewExtractor(10, 70)
	vec, err := e.Extract(makeReadings(30, 85, 0.45, 0.31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec.Names) != 11 || len(vec.Values) != 11 {
		t.Fatalf("got %d names, %d values, want 11 each", len(vec.Names), len(vec.Values))
	}
	for i, name := range FeatureNames {
		if vec.Names[i] != name {
			t.Fatalf("feature %d: got %q, want %q", i, vec.Names[i], name)
		}
	}
	for i, v := range vec.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("feature %s not finite: %v", vec.Names[i], v)
		}
	}
}

func TestExtractInsufficientData(t *testing.T) {
	e := NewExtractor(10, 70)
	_, err := e.Extract(makeReadings(5, 85, 0.45, 0.31))
	if !models.IsInsufficientData(err) {
		t.Fatalf("got %v, want InsufficientDataError", err)
	}
	var ie *models.InsufficientDataError
	if !errors.As(err, &ie) || ie.Have != 5 || ie.Need != 10 {
		t.Fatalf("got %v, want have=5 need=10", err)
	}
}

func TestExtractSingleHeartRateSample(t *testing.T) {
	readings := makeReadings(12, 80, 0.4, 0.3)
	for i := 1; i < len(readings); i++ {
		readings[i].HeartRate = nil
	}
	e := NewExtractor(10, 70)
	vec, err := e.Extract(readings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := vec.Get("hr_std"); v != 0 {
		t.Fatalf("hr_std for single sample: got %v, want 0", v)
	}
	if v, _ := vec.Get("hr_mean"); v != 80 {
		t.Fatalf("hr_mean: got %v, want 80", v)
	}
}

func TestExtractNoHeartRateUsesDefault(t *testing.T) {
	readings := makeReadings(15, 0, 0.4, 0.3)
	for _, r := range readings {
		r.HeartRate = nil
	}
	e := NewExtractor(10, 70)
	vec, err := e.Extract(readings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := vec.Get("hr_mean"); v != 70 {
		t.Fatalf("hr_mean: got %v, want default 70", v)
	}
	if v, _ := vec.Get("hr_std"); v != 0 {
		t.Fatalf("hr_std: got %v, want 0", v)
	}
	if v, _ := vec.Get("hr_range"); v != 0 {
		t.Fatalf("hr_range: got %v, want 0", v)
	}
}

func TestExtractStatisticsScenario(t *testing.T) {
	// 30 readings, hr alternating around 87 with spread ~6
	base := time.Date(2025, 3, 10, 10, 10, 0, 0, time.UTC)
	readings := make([]*models.Reading, 30)
	hrs := []float64{81, 93, 87, 81.3, 92.7, 87.3}
	for i := range readings {
		readings[i] = &models.Reading{
			SubjectID: "s1",
			Timestamp: base.Add(time.Duration(i) * 10 * time.Second),
			HeartRate: f(hrs[i%len(hrs)]),
			AccelX:    f(0.45),
			AccelY:    f(0),
			AccelZ:    f(0),
			GyroX:     f(0.31),
			GyroY:     f(0),
			GyroZ:     f(0),
		}
	}

	e := NewExtractor(10, 70)
	vec, err := e.Extract(readings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hrMean, _ := vec.Get("hr_mean")
	if math.Abs(hrMean-87.05) > 0.1 {
		t.Fatalf("hr_mean: got %v", hrMean)
	}
	hrStd, _ := vec.Get("hr_std")
	if hrStd < 4 || hrStd > 7 {
		t.Fatalf("hr_std: got %v, want ~5", hrStd)
	}
	hrRange, _ := vec.Get("hr_range")
	if hrRange != 12 {
		t.Fatalf("hr_range: got %v, want 12", hrRange)
	}
	accelMean, _ := vec.Get("accel_magnitude_mean")
	if math.Abs(accelMean-0.45) > 1e-9 {
		t.Fatalf("accel_magnitude_mean: got %v, want 0.45", accelMean)
	}
	accelEnergy, _ := vec.Get("accel_energy")
	if math.Abs(accelEnergy-30*0.45*0.45) > 1e-9 {
		t.Fatalf("accel_energy: got %v, want %v", accelEnergy, 30*0.45*0.45)
	}
}

func TestExtractDeterministic(t *testing.T) {
	readings := makeReadings(20, 91, 0.5, 0.2)
	e := NewExtractor(10, 70)
	a, err := e.Extract(readings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.Extract(readings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("feature %s differs across runs: %v vs %v", a.Names[i], a.Values[i], b.Values[i])
		}
	}
}
