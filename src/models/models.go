package models

import "time"

// AccelVector is an optional accelerometer reading attached to a sample.
type AccelVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// OrientationSample is one device-orientation reading streamed by a client.
// Angle fields are pointers because clients on degraded sensor stacks omit
// them; a missing angle is a capability gap, not a parse error.
type OrientationSample struct {
	Alpha *float64 `json:"alpha"` // yaw, 0..360
	Beta  *float64 `json:"beta"`  // pitch, -180..180
	Gamma *float64 `json:"gamma"` // roll, -90..90

	Absolute        *bool        `json:"absolute,omitempty"`
	Accel           *AccelVector `json:"accel,omitempty"`
	OrientationMode string       `json:"orientation_mode,omitempty"`
	DeviceID        string       `json:"device_id,omitempty"`

	// TimestampMs is the client-reported epoch-millis capture time.
	// Zero means "not reported"; the coordinator stamps server receipt time.
	TimestampMs int64 `json:"timestamp_ms,omitempty"`
}

// ChallengeConfig holds the flip-challenge parameters. It is copied from the
// active configuration at session start and immutable for the session's life.
type ChallengeConfig struct {
	ConfigID               string  `json:"config_id,omitempty"`
	RequiredDurationMs     int64   `json:"required_duration_ms"`
	BetaThresholdDeg       float64 `json:"beta_threshold_deg"`
	GammaStabilityDeg      float64 `json:"gamma_stability_deg"`
	StabilityThresholdDeg  float64 `json:"stability_threshold_deg"`
	RequireAbsoluteSensors bool    `json:"require_absolute_sensors"`
}

// AttemptRecord captures one finished flipped episode, successful or not.
// Emitted to persistence when the episode ends; never retained in memory.
type AttemptRecord struct {
	SessionID    string             `json:"session_id"`
	UserID       string             `json:"user_id"`
	EpisodeStart time.Time          `json:"episode_start"`
	DurationMs   int64              `json:"duration_ms"`
	Succeeded    bool               `json:"succeeded"`
	StartSample  *OrientationSample `json:"start_sample,omitempty"`
	EndSample    *OrientationSample `json:"end_sample,omitempty"`
}

// UnlockRecord is the durable record written once per completed session.
type UnlockRecord struct {
	UserID                 string             `json:"user_id"`
	SessionID              string             `json:"session_id"`
	TotalAttempts          int                `json:"total_attempts"`
	SessionDurationSeconds float64            `json:"session_duration_seconds"`
	CompletedAt            time.Time          `json:"completed_at"`
	Orientation            *OrientationSample `json:"orientation,omitempty"`
}

// CapabilityReport tells a client which sensor features its samples lack.
type CapabilityReport struct {
	HasRequiredSensors bool     `json:"has_required_sensors"`
	MissingFeatures    []string `json:"missing_features"`
}
