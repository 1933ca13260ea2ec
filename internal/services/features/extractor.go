package features

import (
	"math"

	"CravePulse/internal/domain/models"
)

// FeatureNames is the fixed output order. It is part of the classifier
// contract: the model artifact's feature list must match it exactly.
var FeatureNames = []string{
	"hr_mean",
	"hr_std",
	"hr_min",
	"hr_max",
	"hr_range",
	"accel_magnitude_mean",
	"accel_magnitude_std",
	"accel_energy",
	"gyro_magnitude_mean",
	"gyro_magnitude_std",
	"gyro_energy",
}

// Extractor converts a window's readings into a fixed-size feature vector.
// Pure computation, safe for concurrent use across windows.
type Extractor struct {
	minReadings      int
	defaultHeartRate float64
}

// NewExtractor creates an extractor. Non-positive arguments fall back to
// 10 readings and 70 bpm.
func NewExtractor(minReadings int, defaultHeartRate float64) *Extractor {
	if minReadings <= 0 {
		minReadings = 10
	}
	if defaultHeartRate <= 0 {
		defaultHeartRate = 70
	}
	return &Extractor{minReadings: minReadings, defaultHeartRate: defaultHeartRate}
}

// MinReadings returns the minimum reading count required per window.
func (e *Extractor) MinReadings() int { return e.minReadings }

// Extract computes the 11 features over the window's readings.
// Readings missing a field are excluded from that field's aggregates; a
// field with zero valid samples gets the physiological default (heart rate)
// or zero (motion), with std pinned to 0.
func (e *Extractor) Extract(readings []*models.Reading) (models.FeatureVector, error) {
	if len(readings) < e.minReadings {
		return models.FeatureVector{}, &models.InsufficientDataError{
			Have: len(readings),
			Need: e.minReadings,
		}
	}

	var hr []float64
	var accelMag []float64
	var gyroMag []float64

	for _, r := range readings {
		if r == nil {
			continue
		}
		if r.HeartRate != nil {
			hr = append(hr, *r.HeartRate)
		}
		if r.HasAccel() {
			accelMag = append(accelMag, magnitude(*r.AccelX, *r.AccelY, *r.AccelZ))
		}
		if r.HasGyro() {
			gyroMag = append(gyroMag, magnitude(*r.GyroX, *r.GyroY, *r.GyroZ))
		}
	}

	var hrMean, hrStd, hrMin, hrMax float64
	if len(hr) == 0 {
		hrMean = e.defaultHeartRate
		hrMin = e.defaultHeartRate
		hrMax = e.defaultHeartRate
	} else {
		hrMean = mean(hr)
		hrStd = stdPop(hr, hrMean)
		hrMin, hrMax = minMax(hr)
	}

	accelMean := mean(accelMag)
	accelStd := stdPop(accelMag, accelMean)
	gyroMean := mean(gyroMag)
	gyroStd := stdPop(gyroMag, gyroMean)

	values := []float64{
		hrMean,
		hrStd,
		hrMin,
		hrMax,
		hrMax - hrMin,
		accelMean,
		accelStd,
		energy(accelMag),
		gyroMean,
		gyroStd,
		energy(gyroMag),
	}

	return models.FeatureVector{Names: FeatureNames, Values: values}, nil
}

func magnitude(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdPop computes the population standard deviation. A single-sample or
// empty subset yields exactly 0, never NaN.
func stdPop(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)))
}

func minMax(xs []float64) (float64, float64) {
	mn, mx := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < mn {
			mn = x
		}
		if x > mx {
			mx = x
		}
	}
	return mn, mx
}

// energy is the sum of squared magnitudes, not the mean.
func energy(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x * x
	}
	return sum
}
