package lkgm

import (
	"context"
	"os"
	"testing"
	"time"
)

func newStatusManager(store Store, timeout time.Duration) *Manager {
	m := newTestManager(store, &fakeSource{})
	m.opts.StatusTimeout = timeout
	m.opts.PollInterval = time.Millisecond
	return m
}

func TestGetBuildersStatusAllTerminalFirstPoll(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc1")
	cand := &Candidate{Version: v, ManifestPath: writeManifest(t, store, SubdirBinary, v)}

	writeMarker(t, store, SubdirBinary, "x86-generic", "pass", v)
	writeMarker(t, store, SubdirBinary, "arm-generic", "fail", v)
	writeMarker(t, store, SubdirBinary, "amd64-corp", "pass", v)

	m := newStatusManager(store, time.Minute)
	slept := 0
	m.sleep = func(time.Duration) { slept++ }

	statuses := m.GetBuildersStatus(context.Background(), cand, []string{"x86-generic", "arm-generic", "amd64-corp"})

	if slept != 0 {
		t.Errorf("slept %d times, want 0 when all builders are terminal on the first poll", slept)
	}
	want := map[string]Status{
		"x86-generic": StatusPass,
		"arm-generic": StatusFail,
		"amd64-corp":  StatusPass,
	}
	for builder, ws := range want {
		if statuses[builder] != ws {
			t.Errorf("status[%s] = %s, want %s", builder, statuses[builder], ws)
		}
	}
	if store.resyncCalls != 1 {
		t.Errorf("resynced %d times, want 1", store.resyncCalls)
	}
}

func TestGetBuildersStatusValuesAreWellFormed(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc1")
	cand := &Candidate{Version: v}

	writeMarker(t, store, SubdirBinary, "builder-b", "inflight", v)
	writeMarker(t, store, SubdirBinary, "builder-c", "pass", v)

	m := newStatusManager(store, 20*time.Millisecond)
	m.sleep = func(time.Duration) {}

	statuses := m.GetBuildersStatus(context.Background(), cand, []string{"builder-a", "builder-b", "builder-c"})

	for builder, s := range statuses {
		if err := s.Validate(); err != nil {
			t.Errorf("status[%s] invalid: %v", builder, err)
		}
	}
	if statuses["builder-a"] != StatusUnset {
		t.Errorf("status[builder-a] = %s, want unset", statuses["builder-a"])
	}
	if statuses["builder-b"] != StatusInflight {
		t.Errorf("status[builder-b] = %s, want inflight", statuses["builder-b"])
	}
}

// A terminal status must survive a stale inflight marker re-appearing.
func TestGetBuildersStatusMonotonic(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc1")
	cand := &Candidate{Version: v}

	passMarker := writeMarker(t, store, SubdirBinary, "builder-a", "pass", v)
	writeMarker(t, store, SubdirBinary, "builder-b", "inflight", v)

	m := newStatusManager(store, 30*time.Millisecond)
	polls := 0
	m.sleep = func(time.Duration) {
		polls++
		if polls == 1 {
			// Simulate the pass marker vanishing and a stale inflight
			// appearing; the terminal entry must not be re-examined.
			if err := os.Remove(passMarker); err != nil {
				t.Error(err)
			}
			writeMarker(t, store, SubdirBinary, "builder-a", "inflight", v)
		}
	}

	statuses := m.GetBuildersStatus(context.Background(), cand, []string{"builder-a", "builder-b"})

	if polls == 0 {
		t.Fatal("expected the poll loop to iterate more than once")
	}
	if statuses["builder-a"] != StatusPass {
		t.Errorf("status[builder-a] = %s, want pass (terminal entries are never downgraded)", statuses["builder-a"])
	}
	if statuses["builder-b"] != StatusInflight {
		t.Errorf("status[builder-b] = %s, want inflight", statuses["builder-b"])
	}
}

func TestGetBuildersStatusTimeoutReturnsPartialMap(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc1")
	cand := &Candidate{Version: v}

	writeMarker(t, store, SubdirBinary, "builder-a", "pass", v)

	m := newStatusManager(store, 15*time.Millisecond)
	m.sleep = func(time.Duration) {}

	statuses := m.GetBuildersStatus(context.Background(), cand, []string{"builder-a", "builder-b"})

	if statuses["builder-a"] != StatusPass {
		t.Errorf("status[builder-a] = %s, want pass", statuses["builder-a"])
	}
	if statuses["builder-b"] != StatusUnset {
		t.Errorf("status[builder-b] = %s, want unset after timeout", statuses["builder-b"])
	}
	if store.resyncCalls < 2 {
		t.Errorf("resynced %d times, want repeated resyncs until the timeout", store.resyncCalls)
	}
}

func TestGetBuildersStatusLateTerminal(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc1")
	cand := &Candidate{Version: v}

	writeMarker(t, store, SubdirBinary, "builder-a", "inflight", v)

	m := newStatusManager(store, time.Minute)
	m.sleep = func(time.Duration) {
		// The builder reports between polls.
		writeMarker(t, store, SubdirBinary, "builder-a", "fail", v)
	}

	statuses := m.GetBuildersStatus(context.Background(), cand, []string{"builder-a"})

	if statuses["builder-a"] != StatusFail {
		t.Errorf("status[builder-a] = %s, want fail", statuses["builder-a"])
	}
}

func TestGetBuildersStatusCancelledContext(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc1")
	cand := &Candidate{Version: v}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newStatusManager(store, time.Minute)
	statuses := m.GetBuildersStatus(ctx, cand, []string{"builder-a"})

	if statuses["builder-a"] != StatusUnset {
		t.Errorf("status[builder-a] = %s, want unset", statuses["builder-a"])
	}
}
