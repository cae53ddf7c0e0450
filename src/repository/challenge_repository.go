package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"capsule-service/src/db"
	"capsule-service/src/models"

	"github.com/google/uuid"
)

// ChallengeRepository handles all database operations for the flip challenge:
// attempt history, unlock records, and the active configuration.
type ChallengeRepository struct {
	db *db.DB
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(database *db.DB) *ChallengeRepository {
	return &ChallengeRepository{
		db: database,
	}
}

// ActiveConfig retrieves the currently-active challenge configuration.
// Returns models.ErrNoActiveConfig when no configuration row is active.
func (r *ChallengeRepository) ActiveConfig(ctx context.Context) (models.ChallengeConfig, error) {
	query := `
		SELECT config_id, required_duration_ms, beta_threshold_deg,
		       gamma_stability_deg, stability_threshold_deg, require_absolute_sensors
		FROM flip_challenge_configs
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`

	var cfg models.ChallengeConfig
	err := r.db.GetConnection().QueryRowContext(ctx, query).Scan(
		&cfg.ConfigID,
		&cfg.RequiredDurationMs,
		&cfg.BetaThresholdDeg,
		&cfg.GammaStabilityDeg,
		&cfg.StabilityThresholdDeg,
		&cfg.RequireAbsoluteSensors,
	)

	if err == sql.ErrNoRows {
		return models.ChallengeConfig{}, models.ErrNoActiveConfig
	}
	if err != nil {
		return models.ChallengeConfig{}, fmt.Errorf("failed to get active config: %w", err)
	}

	return cfg, nil
}

// RecordAttempt persists one finished flipped episode.
func (r *ChallengeRepository) RecordAttempt(ctx context.Context, record *models.AttemptRecord) error {
	startSample, err := marshalSample(record.StartSample)
	if err != nil {
		return err
	}
	endSample, err := marshalSample(record.EndSample)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO flip_attempts
		(attempt_id, session_id, user_id, episode_start, duration_ms, succeeded, start_sample, end_sample)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.GetConnection().ExecContext(
		ctx,
		query,
		uuid.New().String(),
		record.SessionID,
		record.UserID,
		record.EpisodeStart,
		record.DurationMs,
		record.Succeeded,
		startSample,
		endSample,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	slog.Info("Recorded flip attempt",
		"session_id", record.SessionID,
		"duration_ms", record.DurationMs,
		"succeeded", record.Succeeded)

	return nil
}

// RecordUnlock persists the unlock record for a completed session together
// with the opaque device info captured at session start.
func (r *ChallengeRepository) RecordUnlock(ctx context.Context, record *models.UnlockRecord, deviceInfo map[string]any) error {
	orientation, err := marshalSample(record.Orientation)
	if err != nil {
		return err
	}

	var device []byte
	if deviceInfo != nil {
		device, err = json.Marshal(deviceInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal device info: %w", err)
		}
	}

	query := `
		INSERT INTO capsule_unlocks
		(unlock_id, session_id, user_id, total_attempts, session_duration_seconds, completed_at, orientation, device_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING
	`

	result, err := r.db.GetConnection().ExecContext(
		ctx,
		query,
		uuid.New().String(),
		record.SessionID,
		record.UserID,
		record.TotalAttempts,
		record.SessionDurationSeconds,
		record.CompletedAt,
		orientation,
		device,
	)
	if err != nil {
		return fmt.Errorf("failed to record unlock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// The engine guarantees at-most-once emission; a conflict here means
		// a previous process already wrote this unlock.
		slog.Warn("Unlock record already exists", "session_id", record.SessionID)
		return nil
	}

	slog.Info("Recorded capsule unlock",
		"session_id", record.SessionID,
		"user_id", record.UserID,
		"total_attempts", record.TotalAttempts)

	return nil
}

// UnlockCount returns how many capsules the user has unlocked.
func (r *ChallengeRepository) UnlockCount(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM capsule_unlocks WHERE user_id = $1`

	var count int
	if err := r.db.GetConnection().QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unlocks: %w", err)
	}
	return count, nil
}

func marshalSample(sample *models.OrientationSample) ([]byte, error) {
	if sample == nil {
		return nil, nil
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal orientation sample: %w", err)
	}
	return data, nil
}
