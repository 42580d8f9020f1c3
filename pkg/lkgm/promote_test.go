package lkgm

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromoteCandidateFirstAttempt(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc2")
	cand := &Candidate{Version: v, ManifestPath: writeManifest(t, store, SubdirBinary, v)}
	m := newTestManager(store, &fakeSource{})

	if err := m.PromoteCandidate(context.Background(), cand, DefaultPromoteRetries); err != nil {
		t.Fatalf("PromoteCandidate returned error: %v", err)
	}
	if store.pushCalls != 1 {
		t.Errorf("pushed %d times, want 1", store.pushCalls)
	}
	if store.pointerTarget != cand.ManifestPath {
		t.Errorf("pointer target = %s, want %s", store.pointerTarget, cand.ManifestPath)
	}
	if want := "Automatic: x86-generic promoting 1.2.3.4-rc2 to LKGM"; store.pushMsgs[0] != want {
		t.Errorf("push message = %q, want %q", store.pushMsgs[0], want)
	}
}

func TestPromoteCandidateSucceedsOnThirdAttempt(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc2")
	cand := &Candidate{Version: v, ManifestPath: writeManifest(t, store, SubdirBinary, v)}
	m := newTestManager(store, &fakeSource{})

	reject := NewConflictError("push rejected", errors.New("fetch first"))
	store.pushErrs = []error{reject, reject}

	if err := m.PromoteCandidate(context.Background(), cand, DefaultPromoteRetries); err != nil {
		t.Fatalf("PromoteCandidate returned error: %v", err)
	}
	if store.pushCalls != 3 {
		t.Errorf("pushed %d times, want 3", store.pushCalls)
	}
	// Every attempt restarts from the resync step.
	if store.resyncCalls != 3 {
		t.Errorf("resynced %d times, want 3", store.resyncCalls)
	}
	if store.pointerTarget != cand.ManifestPath {
		t.Errorf("pointer target = %s, want the candidate manifest %s", store.pointerTarget, cand.ManifestPath)
	}
}

func TestPromoteCandidateExhaustionRaisesPromoteError(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc2")
	cand := &Candidate{Version: v, ManifestPath: writeManifest(t, store, SubdirBinary, v)}
	m := newTestManager(store, &fakeSource{})

	retries := 2
	last := NewConflictError("push rejected", errors.New("remote moved to rc3"))
	for i := 0; i <= retries; i++ {
		store.pushErrs = append(store.pushErrs, last)
	}

	err := m.PromoteCandidate(context.Background(), cand, retries)
	var promoteErr *PromoteCandidateError
	if !errors.As(err, &promoteErr) {
		t.Fatalf("error = %v, want *PromoteCandidateError", err)
	}
	if promoteErr.Attempts != retries+1 {
		t.Errorf("attempts = %d, want %d", promoteErr.Attempts, retries+1)
	}
	if store.pushCalls != retries+1 {
		t.Errorf("pushed %d times, want exactly %d", store.pushCalls, retries+1)
	}
	if !strings.Contains(err.Error(), "remote moved to rc3") {
		t.Errorf("error does not carry the last underlying message: %v", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("error chain does not include the last failure: %v", err)
	}
}

func TestPromoteCandidateNilCandidateIsFatal(t *testing.T) {
	store := newFakeStore(t)
	m := newTestManager(store, &fakeSource{})

	err := m.PromoteCandidate(context.Background(), nil, DefaultPromoteRetries)
	if !IsPermanent(err) {
		t.Fatalf("error = %v, want a permanent precondition error", err)
	}
	if store.resyncCalls != 0 || store.pushCalls != 0 {
		t.Error("store was touched despite a precondition violation")
	}
}

func TestPromoteCandidateMissingManifestIsFatal(t *testing.T) {
	store := newFakeStore(t)
	v := mustVersion(t, "1.2.3.4-rc2")
	cand := &Candidate{
		Version:      v,
		ManifestPath: filepath.Join(store.Root(), SubdirBinary, "missing.xml"),
	}
	m := newTestManager(store, &fakeSource{})

	err := m.PromoteCandidate(context.Background(), cand, DefaultPromoteRetries)
	if !IsPermanent(err) {
		t.Fatalf("error = %v, want a permanent precondition error", err)
	}
	if store.resyncCalls != 0 {
		t.Error("promotion was attempted despite a missing local manifest")
	}
}

func TestIsRetryableClassification(t *testing.T) {
	if !IsRetryable(NewConflictError("push rejected", nil)) {
		t.Error("conflict errors must be retryable")
	}
	if !IsRetryable(NewTransientError("network blip", nil)) {
		t.Error("transient errors must be retryable")
	}
	if IsRetryable(NewPermanentError("bad version", nil)) {
		t.Error("permanent errors must not be retryable")
	}
	if IsRetryable(errors.New("unclassified")) {
		t.Error("unclassified errors must not be retryable")
	}
}
