package schemas

import "capsule-service/src/models"

// StartSessionRequest represents the request body for starting a flip session
type StartSessionRequest struct {
	UserID     string         `json:"user_id" binding:"required"`
	DeviceInfo map[string]any `json:"device_info,omitempty"`
}

// StartSessionResponse represents the response for a started session
type StartSessionResponse struct {
	SessionID          string `json:"session_id"`
	RequiredDurationMs int64  `json:"required_duration_ms"`
}

// IngestSampleRequest represents the request body carrying one orientation
// sample. The sample itself is not validated here: missing angle fields are a
// capability gap the classifier handles fail-safe, not a request error.
type IngestSampleRequest struct {
	Sample models.OrientationSample `json:"sample"`
}

// SessionStatusResponse represents the session status returned after every
// sample and on status queries
type SessionStatusResponse struct {
	SessionID          string  `json:"session_id"`
	IsFlipped          bool    `json:"is_flipped"`
	ElapsedMs          int64   `json:"elapsed_ms"`
	RemainingMs        int64   `json:"remaining_ms"`
	RequiredDurationMs int64   `json:"required_duration_ms"`
	IsComplete         bool    `json:"is_complete"`
	Stability          float64 `json:"stability"`
}

// CapabilitiesRequest represents a probe sample for the capability check
type CapabilitiesRequest struct {
	Sample models.OrientationSample `json:"sample"`
}

// CapabilitiesResponse reports which sensor features the probe sample lacks
type CapabilitiesResponse struct {
	HasRequiredSensors bool     `json:"has_required_sensors"`
	MissingFeatures    []string `json:"missing_features"`
}
