package capsule

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("new registry has %d sessions", r.Len())
	}

	s := r.Create("user-1", testConfig(), map[string]any{"model": "test-device"}, time.Now())
	if s.ID() == "" {
		t.Fatal("created session has empty id")
	}
	if got := r.Get(s.ID()); got != s {
		t.Error("Get did not return the created session")
	}
	if r.Get("no-such-session") != nil {
		t.Error("Get of unknown id returned a session")
	}

	r.Remove(s.ID())
	if r.Get(s.ID()) != nil {
		t.Error("session still present after Remove")
	}
	// Removing twice is a no-op, not a fault.
	r.Remove(s.ID())
}

func TestRegistrySessionIDsAreUnique(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := r.Create("user-1", testConfig(), nil, time.Now())
		if seen[s.ID()] {
			t.Fatalf("duplicate session id %s", s.ID())
		}
		seen[s.ID()] = true
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := r.Create("user-1", testConfig(), nil, time.Now())
			r.Get(s.ID())
			r.Remove(s.ID())
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("registry holds %d sessions after concurrent create/remove", r.Len())
	}
}

func TestIdleSessionIDs(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	stale := r.Create("user-1", testConfig(), nil, now.Add(-6*time.Minute))
	fresh := r.Create("user-2", testConfig(), nil, now.Add(-30*time.Second))

	idle := r.IdleSessionIDs(now, DefaultIdleThreshold)
	if len(idle) != 1 || idle[0] != stale.ID() {
		t.Fatalf("idle ids = %v, want [%s]", idle, stale.ID())
	}

	// Activity on the stale session resets its idle clock.
	stale.Ingest(flatSample(), now.UnixMilli())
	if idle := r.IdleSessionIDs(now, DefaultIdleThreshold); len(idle) != 0 {
		t.Errorf("idle ids after activity = %v, want none", idle)
	}
	_ = fresh
}

func TestSweeperEndsOnlyIdleSessions(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	staleA := r.Create("user-1", testConfig(), nil, now.Add(-10*time.Minute))
	staleB := r.Create("user-2", testConfig(), nil, now.Add(-7*time.Minute))
	r.Create("user-3", testConfig(), nil, now)

	var mu sync.Mutex
	var ended []string
	w := NewSweeper(r, DefaultSweepInterval, DefaultIdleThreshold, func(_ context.Context, id string) {
		mu.Lock()
		ended = append(ended, id)
		mu.Unlock()
		r.Remove(id)
	})

	w.sweep(context.Background(), now)

	want := []string{staleA.ID(), staleB.ID()}
	sort.Strings(want)
	sort.Strings(ended)
	if len(ended) != 2 || ended[0] != want[0] || ended[1] != want[1] {
		t.Fatalf("swept %v, want %v", ended, want)
	}
	if r.Len() != 1 {
		t.Errorf("registry holds %d sessions after sweep, want 1", r.Len())
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	r := NewRegistry()
	w := NewSweeper(r, 5*time.Millisecond, time.Minute, func(context.Context, string) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
