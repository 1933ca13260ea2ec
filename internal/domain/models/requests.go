package models

// Requests for prediction HTTP endpoints. Defined in domain for consistency and reuse.

type AnalysesRequest struct {
	N    int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=1000"`
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
}

type IngestReading struct {
	Timestamp int64    `json:"ts" validate:"required,gt=0"`
	HeartRate *float64 `json:"heart_rate" validate:"omitempty,gte=0,lte=300"`
	AccelX    *float64 `json:"accel_x"`
	AccelY    *float64 `json:"accel_y"`
	AccelZ    *float64 `json:"accel_z"`
	GyroX     *float64 `json:"gyro_x"`
	GyroY     *float64 `json:"gyro_y"`
	GyroZ     *float64 `json:"gyro_z"`
}

type IngestRequest struct {
	Readings []IngestReading `json:"readings" validate:"required,min=1,max=1000,dive"`
}

type PredictRequest struct {
	// At zero the orchestrator resolves the most recent closed window.
	WindowStart int64 `query:"window_start" json:"window_start" validate:"gte=0"`
}
