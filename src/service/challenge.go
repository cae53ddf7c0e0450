package service

import (
	"context"
	"errors"
	"fmt"

	"capsule-service/src/capsule"
	"capsule-service/src/models"
	"capsule-service/src/schemas"
)

// ChallengeService is the HTTP-facing facade over the flip-challenge engine.
// It translates domain sentinel errors into the RFC 7807 responses the
// controllers return; "session not found" is an expected race with the idle
// sweep, never a fault.
type ChallengeService struct {
	coordinator *capsule.Coordinator
}

func NewChallengeService(coordinator *capsule.Coordinator) *ChallengeService {
	return &ChallengeService{
		coordinator: coordinator,
	}
}

// StartSession creates a new flip session for the user.
func (s *ChallengeService) StartSession(ctx context.Context, userID string, deviceInfo map[string]any) (capsule.StartResult, error) {
	result, err := s.coordinator.StartSession(ctx, userID, deviceInfo)
	if err != nil {
		if errors.Is(err, models.ErrNoActiveConfig) {
			return capsule.StartResult{}, schemas.NoActiveChallengeError(
				"no flip challenge configuration is currently active",
				"/flip/sessions",
			)
		}
		return capsule.StartResult{}, schemas.NewInternalError(
			fmt.Sprintf("failed to start session: %v", err),
			"/flip/sessions",
		)
	}
	return result, nil
}

// IngestSample applies one orientation sample to the session.
func (s *ChallengeService) IngestSample(ctx context.Context, sessionID string, sample *models.OrientationSample) (capsule.Status, error) {
	status, err := s.coordinator.IngestSample(ctx, sessionID, sample)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return capsule.Status{}, schemas.NewNotFoundError(
				fmt.Sprintf("session with ID %s not found or expired", sessionID),
				"/flip/sessions/"+sessionID+"/samples",
			)
		}
		return capsule.Status{}, schemas.NewInternalError(
			fmt.Sprintf("failed to ingest sample: %v", err),
			"/flip/sessions/"+sessionID+"/samples",
		)
	}
	return status, nil
}

// EndSession finalizes the session, crediting a still-flipped episode that
// already spans the required duration.
func (s *ChallengeService) EndSession(ctx context.Context, sessionID string) (capsule.Status, error) {
	status, err := s.coordinator.EndSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return capsule.Status{}, schemas.NewNotFoundError(
				fmt.Sprintf("session with ID %s not found or expired", sessionID),
				"/flip/sessions/"+sessionID,
			)
		}
		return capsule.Status{}, schemas.NewInternalError(
			fmt.Sprintf("failed to end session: %v", err),
			"/flip/sessions/"+sessionID,
		)
	}
	return status, nil
}

// GetStatus returns a read-only snapshot of the session.
func (s *ChallengeService) GetStatus(sessionID string) (capsule.Status, error) {
	status, err := s.coordinator.GetStatus(sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return capsule.Status{}, schemas.NewNotFoundError(
				fmt.Sprintf("session with ID %s not found or expired", sessionID),
				"/flip/sessions/"+sessionID,
			)
		}
		return capsule.Status{}, schemas.NewInternalError(
			fmt.Sprintf("failed to get status: %v", err),
			"/flip/sessions/"+sessionID,
		)
	}
	return status, nil
}

// CheckCapabilities reports which sensor features a sample lacks.
func (s *ChallengeService) CheckCapabilities(sample *models.OrientationSample) models.CapabilityReport {
	return s.coordinator.CheckCapabilities(sample)
}
