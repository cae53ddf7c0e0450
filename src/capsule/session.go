package capsule

import (
	"sync"
	"time"

	"capsule-service/src/models"
)

// historySize bounds the per-session sample ring buffer.
const historySize = 10

// HistorySample is one entry of a session's bounded sample history.
type HistorySample struct {
	Sample      *models.OrientationSample `json:"sample"`
	TimestampMs int64                     `json:"timestamp_ms"`
	IsFlipped   bool                      `json:"is_flipped"`
}

// Status is the caller-facing snapshot returned by every state-machine step.
type Status struct {
	SessionID          string  `json:"session_id"`
	IsFlipped          bool    `json:"is_flipped"`
	ElapsedMs          int64   `json:"elapsed_ms"`
	RemainingMs        int64   `json:"remaining_ms"`
	RequiredDurationMs int64   `json:"required_duration_ms"`
	IsComplete         bool    `json:"is_complete"`
	Stability          float64 `json:"stability"`
}

// Session holds the mutable state of one flip-challenge session. All state is
// guarded by mu: Ingest, End and Snapshot serialize against each other, so the
// sweeper and live sample traffic can never interleave writes.
//
// Invariants: isFlipped is true exactly when flippedStartMs is meaningful;
// accumulatedFlippedMs measures only the current uninterrupted flipped
// episode and resets to 0 when an episode starts or ends; once isComplete is
// set the session is frozen and every further call is a read.
type Session struct {
	mu sync.Mutex

	id         string
	userID     string
	config     models.ChallengeConfig
	deviceInfo map[string]any

	startTime    time.Time
	lastUpdateMs int64

	isFlipped            bool
	flippedStartMs       int64
	accumulatedFlippedMs int64

	previousSample     *models.OrientationSample
	episodeStartSample *models.OrientationSample
	history            []HistorySample

	attempts      int
	isComplete    bool
	completedAt   time.Time
	lastStability float64
}

func newSession(id, userID string, cfg models.ChallengeConfig, deviceInfo map[string]any, now time.Time) *Session {
	return &Session{
		id:            id,
		userID:        userID,
		config:        cfg,
		deviceInfo:    deviceInfo,
		startTime:     now,
		lastUpdateMs:  now.UnixMilli(),
		lastStability: 1.0,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user's id.
func (s *Session) UserID() string { return s.userID }

// Config returns the immutable challenge configuration for this session.
func (s *Session) Config() models.ChallengeConfig { return s.config }

// DeviceInfo returns the opaque device blob captured at session start. The
// engine never inspects it, only forwards it to collaborators.
func (s *Session) DeviceInfo() map[string]any { return s.deviceInfo }

// LastUpdateMs returns the timestamp of the most recent state change, for
// idle-sweep eligibility checks.
func (s *Session) LastUpdateMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdateMs
}

// Ingest applies one orientation sample at time tMs and returns the resulting
// status plus any side-effect records the caller must forward to persistence
// and notification. The per-session lock is released before the caller invokes
// those collaborators, so a slow sink never stalls sample traffic.
//
// Timestamps are taken as given: an out-of-order tMs is applied as-is, the
// engine does not reorder.
func (s *Session) Ingest(sample *models.OrientationSample, tMs int64) (Status, *models.AttemptRecord, *models.UnlockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Terminal state is frozen: report it, change nothing, emit nothing.
	if s.isComplete {
		return s.statusLocked(), nil, nil
	}

	cls := Classify(sample, s.previousSample, s.config)
	s.lastStability = cls.Stability
	wasFlipped := s.isFlipped

	var attempt *models.AttemptRecord
	var unlock *models.UnlockRecord

	switch {
	case !wasFlipped && cls.IsFlipped:
		// A new flipped episode starts its own timer from zero.
		s.isFlipped = true
		s.flippedStartMs = tMs
		s.accumulatedFlippedMs = 0
		s.episodeStartSample = sample

	case wasFlipped && !cls.IsFlipped:
		attempt = s.endEpisodeLocked(tMs, sample)

	case wasFlipped && cls.IsFlipped:
		s.accumulatedFlippedMs = tMs - s.flippedStartMs
		if s.accumulatedFlippedMs >= s.config.RequiredDurationMs {
			attempt, unlock = s.completeLocked(tMs, sample)
		}
	}

	s.appendHistoryLocked(sample, tMs, cls.IsFlipped)
	s.lastUpdateMs = tMs
	s.previousSample = sample

	return s.statusLocked(), attempt, unlock
}

// End finalizes the session at time tMs. If a flipped episode is in progress
// it is closed as if a sample had arrived now: an episode that already spans
// the required duration still completes and unlocks, so a client that
// disconnects at the exact moment of success does not lose credit.
func (s *Session) End(tMs int64) (Status, *models.AttemptRecord, *models.UnlockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isComplete || !s.isFlipped {
		return s.statusLocked(), nil, nil
	}

	if tMs-s.flippedStartMs >= s.config.RequiredDurationMs {
		s.accumulatedFlippedMs = tMs - s.flippedStartMs
		attempt, unlock := s.completeLocked(tMs, s.previousSample)
		return s.statusLocked(), attempt, unlock
	}

	attempt := s.endEpisodeLocked(tMs, s.previousSample)
	return s.statusLocked(), attempt, nil
}

// Snapshot returns the current status without mutating anything.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// History returns a copy of the bounded sample history, oldest first.
func (s *Session) History() []HistorySample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistorySample, len(s.history))
	copy(out, s.history)
	return out
}

// endEpisodeLocked closes the current flipped episode without completing the
// session and returns its attempt record. Caller holds s.mu.
func (s *Session) endEpisodeLocked(tMs int64, endSample *models.OrientationSample) *models.AttemptRecord {
	duration := tMs - s.flippedStartMs
	s.attempts++

	record := &models.AttemptRecord{
		SessionID:    s.id,
		UserID:       s.userID,
		EpisodeStart: time.UnixMilli(s.flippedStartMs),
		DurationMs:   duration,
		Succeeded:    duration >= s.config.RequiredDurationMs,
		StartSample:  s.episodeStartSample,
		EndSample:    endSample,
	}

	s.isFlipped = false
	s.flippedStartMs = 0
	s.accumulatedFlippedMs = 0
	s.episodeStartSample = nil

	return record
}

// completeLocked transitions the session to its terminal state exactly once
// and builds the attempt and unlock records. Caller holds s.mu and has
// verified the session is flipped past the required duration.
func (s *Session) completeLocked(tMs int64, lastSample *models.OrientationSample) (*models.AttemptRecord, *models.UnlockRecord) {
	s.attempts++
	s.isComplete = true
	s.completedAt = time.UnixMilli(tMs)

	attempt := &models.AttemptRecord{
		SessionID:    s.id,
		UserID:       s.userID,
		EpisodeStart: time.UnixMilli(s.flippedStartMs),
		DurationMs:   s.accumulatedFlippedMs,
		Succeeded:    true,
		StartSample:  s.episodeStartSample,
		EndSample:    lastSample,
	}

	unlock := &models.UnlockRecord{
		UserID:                 s.userID,
		SessionID:              s.id,
		TotalAttempts:          s.attempts,
		SessionDurationSeconds: s.completedAt.Sub(s.startTime).Seconds(),
		CompletedAt:            s.completedAt,
		Orientation:            lastSample,
	}

	return attempt, unlock
}

func (s *Session) appendHistoryLocked(sample *models.OrientationSample, tMs int64, flipped bool) {
	s.history = append(s.history, HistorySample{
		Sample:      sample,
		TimestampMs: tMs,
		IsFlipped:   flipped,
	})
	if len(s.history) > historySize {
		s.history = s.history[1:]
	}
}

func (s *Session) statusLocked() Status {
	remaining := s.config.RequiredDurationMs - s.accumulatedFlippedMs
	if remaining < 0 || s.isComplete {
		remaining = 0
	}
	return Status{
		SessionID:          s.id,
		IsFlipped:          s.isFlipped,
		ElapsedMs:          s.accumulatedFlippedMs,
		RemainingMs:        remaining,
		RequiredDurationMs: s.config.RequiredDurationMs,
		IsComplete:         s.isComplete,
		Stability:          s.lastStability,
	}
}
