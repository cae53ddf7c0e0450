package capsule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"capsule-service/src/models"

	"github.com/google/uuid"
)

const (
	// DefaultSweepInterval is how often the idle sweeper scans the registry.
	DefaultSweepInterval = 60 * time.Second
	// DefaultIdleThreshold is how long a session may go without samples
	// before the sweeper force-ends it.
	DefaultIdleThreshold = 5 * time.Minute
)

// Registry owns the set of live sessions. The map is guarded by a single
// RWMutex; per-session mutation is serialized by each Session's own lock, so
// registry lookups never block sample processing on unrelated sessions.
//
// A Registry is explicitly constructed and empty at startup; shutdown drains
// it through the same end-session path the sweeper uses.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Create allocates a new session with a random id and registers it.
func (r *Registry) Create(userID string, cfg models.ChallengeConfig, deviceInfo map[string]any, now time.Time) *Session {
	session := newSession(uuid.New().String(), userID, cfg, deviceInfo, now)

	r.mu.Lock()
	r.sessions[session.id] = session
	r.mu.Unlock()

	return session
}

// Get returns the session for id, or nil if it does not exist. A nil result
// is routine: clients regularly outlive their server-side session.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove deletes the session for id. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the current set of sessions. Callers iterate outside the
// registry lock so per-session work cannot block inserts and lookups.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// IdleSessionIDs returns the ids of sessions whose last update is older than
// threshold at time now.
func (r *Registry) IdleSessionIDs(now time.Time, threshold time.Duration) []string {
	var idle []string
	for _, s := range r.Snapshot() {
		if now.UnixMilli()-s.LastUpdateMs() > threshold.Milliseconds() {
			idle = append(idle, s.ID())
		}
	}
	return idle
}

// Sweeper periodically reclaims idle sessions. It terminates them through the
// coordinator's end-session path, never by touching session state directly,
// so an in-flight flipped episode still gets its attempt record and an
// already-satisfied episode still unlocks.
type Sweeper struct {
	registry  *Registry
	interval  time.Duration
	threshold time.Duration
	endFn     func(ctx context.Context, sessionID string)
}

// NewSweeper builds a sweeper over registry. endFn is invoked once per idle
// session id and must route through the same per-session exclusion as live
// calls.
func NewSweeper(registry *Registry, interval, threshold time.Duration, endFn func(ctx context.Context, sessionID string)) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	return &Sweeper{
		registry:  registry,
		interval:  interval,
		threshold: threshold,
		endFn:     endFn,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Session sweeper started",
		"interval", w.interval,
		"idle_threshold", w.threshold)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Session sweeper stopped")
			return
		case now := <-ticker.C:
			w.sweep(ctx, now)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context, now time.Time) {
	idle := w.registry.IdleSessionIDs(now, w.threshold)
	if len(idle) == 0 {
		return
	}

	slog.Info("Sweeping idle sessions", "count", len(idle))
	for _, id := range idle {
		w.endFn(ctx, id)
	}
}
