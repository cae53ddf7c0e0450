package capsule

import (
	"context"
	"log/slog"
	"time"

	"capsule-service/src/models"
)

// ConfigProvider supplies the currently-active challenge configuration. The
// returned config is copied into the session and stays immutable for its
// lifetime even if the active configuration later changes.
type ConfigProvider interface {
	ActiveConfig(ctx context.Context) (models.ChallengeConfig, error)
}

// AttemptStore receives a record for every finished flipped episode, whether
// it succeeded or not. Fire-and-forget: the engine logs failures and moves on.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, record *models.AttemptRecord) error
}

// UnlockStore receives the durable unlock record once per completed session.
type UnlockStore interface {
	RecordUnlock(ctx context.Context, record *models.UnlockRecord, deviceInfo map[string]any) error
}

// Notifier delivers best-effort events to the user. Failures never affect
// session state.
type Notifier interface {
	NotifyUnlocked(ctx context.Context, record *models.UnlockRecord) error
	NotifyAttempt(ctx context.Context, record *models.AttemptRecord) error
}

// StartResult is returned to the client when a session begins.
type StartResult struct {
	SessionID          string `json:"session_id"`
	RequiredDurationMs int64  `json:"required_duration_ms"`
}

// Coordinator is the public surface of the flip-challenge engine. It bridges
// the registry and the per-session state machine and invokes the persistence
// and notification collaborators on episode and session boundaries.
//
// All collaborator calls happen after the per-session lock has been released,
// from a snapshot of the completed state, so a slow sink cannot stall sample
// traffic.
type Coordinator struct {
	registry *Registry
	configs  ConfigProvider
	attempts AttemptStore
	unlocks  UnlockStore
	notifier Notifier

	// now is swappable for tests.
	now func() time.Time
}

// NewCoordinator wires a coordinator over its collaborators.
func NewCoordinator(registry *Registry, configs ConfigProvider, attempts AttemptStore, unlocks UnlockStore, notifier Notifier) *Coordinator {
	return &Coordinator{
		registry: registry,
		configs:  configs,
		attempts: attempts,
		unlocks:  unlocks,
		notifier: notifier,
		now:      time.Now,
	}
}

// StartSession reads the active configuration, creates a registry entry and
// returns the new session id. No timers are scheduled: completion is detected
// on the sample that crosses the threshold, or on EndSession.
func (c *Coordinator) StartSession(ctx context.Context, userID string, deviceInfo map[string]any) (StartResult, error) {
	cfg, err := c.configs.ActiveConfig(ctx)
	if err != nil {
		return StartResult{}, err
	}

	session := c.registry.Create(userID, cfg, deviceInfo, c.now())

	slog.Info("Started flip session",
		"session_id", session.ID(),
		"user_id", userID,
		"required_duration_ms", cfg.RequiredDurationMs)

	return StartResult{
		SessionID:          session.ID(),
		RequiredDurationMs: cfg.RequiredDurationMs,
	}, nil
}

// IngestSample applies one orientation sample to the session. Returns
// models.ErrSessionNotFound if the id is unknown or already swept; callers
// should treat that as "session expired", not as a fault.
//
// The sample's client timestamp is trusted when present; otherwise server
// receipt time is used.
func (c *Coordinator) IngestSample(ctx context.Context, sessionID string, sample *models.OrientationSample) (Status, error) {
	session := c.registry.Get(sessionID)
	if session == nil {
		return Status{}, models.ErrSessionNotFound
	}

	tMs := sample.TimestampMs
	if tMs == 0 {
		tMs = c.now().UnixMilli()
	}

	status, attempt, unlock := session.Ingest(sample, tMs)

	// The session stays registered after completion so duplicate samples get
	// the frozen status back instead of re-triggering side effects.
	c.emit(ctx, session, attempt, unlock)

	return status, nil
}

// EndSession finalizes and removes the session. An in-progress flipped
// episode is closed as of now; if it already spans the required duration the
// session completes and unlocks even though no qualifying sample arrived
// after the threshold was crossed.
func (c *Coordinator) EndSession(ctx context.Context, sessionID string) (Status, error) {
	session := c.registry.Get(sessionID)
	if session == nil {
		return Status{}, models.ErrSessionNotFound
	}

	status, attempt, unlock := session.End(c.now().UnixMilli())
	c.registry.Remove(sessionID)

	slog.Info("Ended flip session",
		"session_id", sessionID,
		"user_id", session.UserID(),
		"completed", status.IsComplete)

	c.emit(ctx, session, attempt, unlock)

	return status, nil
}

// GetStatus returns a read-only snapshot of the session, or
// models.ErrSessionNotFound.
func (c *Coordinator) GetStatus(sessionID string) (Status, error) {
	session := c.registry.Get(sessionID)
	if session == nil {
		return Status{}, models.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// CheckCapabilities is a passthrough to the classifier's capability check.
func (c *Coordinator) CheckCapabilities(sample *models.OrientationSample) models.CapabilityReport {
	return CheckCapabilities(sample)
}

// NewSweeper returns an idle sweeper whose end path is this coordinator's
// EndSession, so reclamation and client-initiated termination share the same
// per-session exclusion.
func (c *Coordinator) NewSweeper(interval, threshold time.Duration) *Sweeper {
	return NewSweeper(c.registry, interval, threshold, func(ctx context.Context, sessionID string) {
		if _, err := c.EndSession(ctx, sessionID); err != nil {
			slog.Warn("Idle sweep could not end session",
				"session_id", sessionID,
				"error", err)
		}
	})
}

// Shutdown drains every remaining session through the end path so in-flight
// episodes are recorded before the process exits.
func (c *Coordinator) Shutdown(ctx context.Context) {
	for _, session := range c.registry.Snapshot() {
		if _, err := c.EndSession(ctx, session.ID()); err != nil {
			slog.Warn("Shutdown could not end session",
				"session_id", session.ID(),
				"error", err)
		}
	}
}

// emit forwards episode and completion records to the collaborators. Called
// with no session lock held. Errors are logged, never propagated: durability
// and delivery are the collaborators' concerns.
func (c *Coordinator) emit(ctx context.Context, session *Session, attempt *models.AttemptRecord, unlock *models.UnlockRecord) {
	if attempt != nil {
		if err := c.attempts.RecordAttempt(ctx, attempt); err != nil {
			slog.Error("Failed to persist attempt record",
				"session_id", attempt.SessionID,
				"error", err)
		}
		if err := c.notifier.NotifyAttempt(ctx, attempt); err != nil {
			slog.Warn("Failed to publish attempt event",
				"session_id", attempt.SessionID,
				"error", err)
		}
	}

	if unlock != nil {
		if err := c.unlocks.RecordUnlock(ctx, unlock, session.DeviceInfo()); err != nil {
			slog.Error("Failed to persist unlock record",
				"session_id", unlock.SessionID,
				"error", err)
		}
		if err := c.notifier.NotifyUnlocked(ctx, unlock); err != nil {
			slog.Warn("Failed to publish unlock event",
				"session_id", unlock.SessionID,
				"error", err)
		}
		slog.Info("Capsule unlocked",
			"session_id", unlock.SessionID,
			"user_id", unlock.UserID,
			"total_attempts", unlock.TotalAttempts)
	}
}
