package capsule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"capsule-service/src/models"
)

type fakeConfigs struct {
	cfg models.ChallengeConfig
	err error
}

func (f *fakeConfigs) ActiveConfig(context.Context) (models.ChallengeConfig, error) {
	return f.cfg, f.err
}

type recordingSink struct {
	mu       sync.Mutex
	attempts []*models.AttemptRecord
	unlocks  []*models.UnlockRecord
	failWith error
}

func (r *recordingSink) RecordAttempt(_ context.Context, rec *models.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, rec)
	return r.failWith
}

func (r *recordingSink) RecordUnlock(_ context.Context, rec *models.UnlockRecord, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlocks = append(r.unlocks, rec)
	return r.failWith
}

func (r *recordingSink) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts), len(r.unlocks)
}

type recordingNotifier struct {
	mu       sync.Mutex
	unlocked int
	attempts int
}

func (n *recordingNotifier) NotifyUnlocked(context.Context, *models.UnlockRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unlocked++
	return nil
}

func (n *recordingNotifier) NotifyAttempt(context.Context, *models.AttemptRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts++
	return nil
}

func (n *recordingNotifier) unlockedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unlocked
}

// newTestCoordinator wires a coordinator over recording fakes with a clock
// pinned to epoch; advance moves the clock.
func newTestCoordinator(t *testing.T) (*Coordinator, *recordingSink, *recordingNotifier, func(d time.Duration)) {
	t.Helper()

	sink := &recordingSink{}
	notifier := &recordingNotifier{}
	c := NewCoordinator(NewRegistry(), &fakeConfigs{cfg: testConfig()}, sink, sink, notifier)

	var mu sync.Mutex
	now := time.UnixMilli(0)
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	return c, sink, notifier, advance
}

func flippedAt(tMs int64) *models.OrientationSample {
	s := flippedSample()
	s.TimestampMs = tMs
	return s
}

func TestStartSessionReturnsConfig(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	res, err := c.StartSession(context.Background(), "user-1", map[string]any{"model": "pixel"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if res.SessionID == "" {
		t.Error("empty session id")
	}
	if res.RequiredDurationMs != testConfig().RequiredDurationMs {
		t.Errorf("required duration = %d, want %d", res.RequiredDurationMs, testConfig().RequiredDurationMs)
	}
}

func TestStartSessionWithoutActiveConfig(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)
	c.configs = &fakeConfigs{err: models.ErrNoActiveConfig}

	_, err := c.StartSession(context.Background(), "user-1", nil)
	if !errors.Is(err, models.ErrNoActiveConfig) {
		t.Fatalf("err = %v, want ErrNoActiveConfig", err)
	}
}

func TestIngestUnknownSession(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	_, err := c.IngestSample(context.Background(), "gone", flippedAt(100))
	if !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("ingest err = %v, want ErrSessionNotFound", err)
	}
	_, err = c.EndSession(context.Background(), "gone")
	if !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("end err = %v, want ErrSessionNotFound", err)
	}
	_, err = c.GetStatus("gone")
	if !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("status err = %v, want ErrSessionNotFound", err)
	}
}

func TestCoordinatorCompletionFlow(t *testing.T) {
	c, sink, notifier, _ := newTestCoordinator(t)
	ctx := context.Background()

	res, err := c.StartSession(ctx, "user-1", nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	status, err := c.IngestSample(ctx, res.SessionID, flippedAt(1))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !status.IsFlipped || status.IsComplete {
		t.Fatalf("after first sample: %+v", status)
	}

	status, err = c.IngestSample(ctx, res.SessionID, flippedAt(2101))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !status.IsComplete {
		t.Fatal("session did not complete")
	}

	attempts, unlocks := sink.counts()
	if attempts != 1 || unlocks != 1 {
		t.Errorf("persisted %d attempts / %d unlocks, want 1/1", attempts, unlocks)
	}
	if notifier.unlockedCount() != 1 {
		t.Errorf("unlock notified %d times, want 1", notifier.unlockedCount())
	}

	// Completed sessions stay registered and report the frozen status, so a
	// client retransmitting its last samples cannot re-trigger side effects.
	again, err := c.IngestSample(ctx, res.SessionID, flippedAt(3000))
	if err != nil {
		t.Fatalf("ingest after completion: %v", err)
	}
	if again != status {
		t.Errorf("terminal status changed: %+v vs %+v", again, status)
	}
	if _, unlocks := sink.counts(); unlocks != 1 {
		t.Errorf("unlock persisted %d times after duplicate samples", unlocks)
	}
	if notifier.unlockedCount() != 1 {
		t.Errorf("unlock notified %d times after duplicate samples", notifier.unlockedCount())
	}
}

func TestCoordinatorStampsServerTime(t *testing.T) {
	c, _, _, advance := newTestCoordinator(t)
	ctx := context.Background()

	res, _ := c.StartSession(ctx, "user-1", nil)

	// Samples without a client timestamp get server receipt time.
	advance(time.Second)
	status, err := c.IngestSample(ctx, res.SessionID, flippedSample())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !status.IsFlipped {
		t.Fatal("not flipped")
	}

	advance(2500 * time.Millisecond)
	status, err = c.IngestSample(ctx, res.SessionID, flippedSample())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !status.IsComplete {
		t.Errorf("session not complete after 2500ms of server time: %+v", status)
	}
}

func TestEndSessionCompletesSatisfiedEpisode(t *testing.T) {
	c, sink, notifier, advance := newTestCoordinator(t)
	ctx := context.Background()

	res, _ := c.StartSession(ctx, "user-1", nil)
	c.IngestSample(ctx, res.SessionID, flippedAt(1))

	// The client disconnects after holding the flip past the threshold
	// without a further sample. Credit must not be lost.
	advance(3 * time.Second)
	status, err := c.EndSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if !status.IsComplete {
		t.Fatal("EndSession did not complete a satisfied episode")
	}
	if _, unlocks := sink.counts(); unlocks != 1 {
		t.Errorf("unlock persisted %d times, want 1", unlocks)
	}
	if notifier.unlockedCount() != 1 {
		t.Errorf("unlock notified %d times, want 1", notifier.unlockedCount())
	}

	if _, err := c.GetStatus(res.SessionID); !errors.Is(err, models.ErrSessionNotFound) {
		t.Error("ended session still queryable")
	}
}

func TestSweepUsesEndSessionPath(t *testing.T) {
	c, sink, _, advance := newTestCoordinator(t)
	ctx := context.Background()

	res, _ := c.StartSession(ctx, "user-1", nil)
	c.IngestSample(ctx, res.SessionID, flippedAt(1))

	// Six minutes without samples: the sweeper force-ends the session, and
	// because the episode already spans the requirement, it still unlocks.
	advance(6 * time.Minute)
	w := c.NewSweeper(DefaultSweepInterval, DefaultIdleThreshold)
	w.sweep(ctx, c.now())

	if _, unlocks := sink.counts(); unlocks != 1 {
		t.Errorf("swept session persisted %d unlocks, want 1", unlocks)
	}
	if _, err := c.IngestSample(ctx, res.SessionID, flippedAt(1000)); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("ingest after sweep err = %v, want ErrSessionNotFound", err)
	}
}

func TestCollaboratorFailureDoesNotBlockCompletion(t *testing.T) {
	c, sink, _, _ := newTestCoordinator(t)
	sink.failWith = errors.New("database down")
	ctx := context.Background()

	res, _ := c.StartSession(ctx, "user-1", nil)
	c.IngestSample(ctx, res.SessionID, flippedAt(1))
	status, err := c.IngestSample(ctx, res.SessionID, flippedAt(2500))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !status.IsComplete {
		t.Error("persistence failure blocked completion")
	}
}

func TestConcurrentIngestSerializesPerSession(t *testing.T) {
	c, sink, notifier, _ := newTestCoordinator(t)
	ctx := context.Background()

	res, _ := c.StartSession(ctx, "user-1", nil)
	c.IngestSample(ctx, res.SessionID, flippedAt(1))

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.IngestSample(ctx, res.SessionID, flippedAt(2100+int64(i)))
		}(i)
	}
	wg.Wait()

	if _, unlocks := sink.counts(); unlocks != 1 {
		t.Errorf("concurrent ingest persisted %d unlocks, want exactly 1", unlocks)
	}
	if notifier.unlockedCount() != 1 {
		t.Errorf("concurrent ingest notified %d unlocks, want exactly 1", notifier.unlockedCount())
	}
}

func TestShutdownDrainsSessions(t *testing.T) {
	c, sink, _, advance := newTestCoordinator(t)
	ctx := context.Background()

	a, _ := c.StartSession(ctx, "user-1", nil)
	b, _ := c.StartSession(ctx, "user-2", nil)
	c.IngestSample(ctx, a.SessionID, flippedAt(1))

	advance(3 * time.Second)
	c.Shutdown(ctx)

	if c.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions after shutdown", c.registry.Len())
	}
	attempts, unlocks := sink.counts()
	if attempts != 1 || unlocks != 1 {
		t.Errorf("shutdown drained %d attempts / %d unlocks, want 1/1", attempts, unlocks)
	}
	_ = b
}
