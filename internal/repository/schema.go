package repository

// SchemaStatements creates the pipeline tables. Readings deduplicate on
// (subject_id, ts) so re-ingesting a window never duplicates rows; analyses
// are append-only since one window may accumulate several runs.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS readings (
		subject_id String,
		ts         DateTime,
		heart_rate Nullable(Float64),
		accel_x    Nullable(Float64),
		accel_y    Nullable(Float64),
		accel_z    Nullable(Float64),
		gyro_x     Nullable(Float64),
		gyro_y     Nullable(Float64),
		gyro_z     Nullable(Float64),
		ingested_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(ingested_at)
	PARTITION BY toYYYYMM(ts)
	ORDER BY (subject_id, ts)`,

	`CREATE TABLE IF NOT EXISTS analyses (
		id            String,
		subject_id    String,
		window_id     String,
		window_start  DateTime,
		window_end    DateTime,
		model_version String,
		probability   Float64,
		label         UInt8,
		risk          LowCardinality(String),
		features      String,
		reading_count UInt32,
		created_at    DateTime64(3)
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(window_start)
	ORDER BY (subject_id, window_start, created_at)`,
}
