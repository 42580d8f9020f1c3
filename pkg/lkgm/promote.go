package lkgm

import (
	"context"
	"fmt"
)

// PromoteCandidate advances the canonical LKGM pointer to the candidate's
// manifest. The caller must have independently determined that the candidate
// passed. A missing candidate or a manifest absent from the local checkout is
// a programmer error and fails immediately without retries.
//
// The full sequence (resync, replace pointer, stage, commit+push) is
// attempted up to retries+1 times; a rejected push means a concurrent writer
// won the race and the sequence restarts from the resync. Only exhausting
// every attempt produces *PromoteCandidateError.
func (m *Manager) PromoteCandidate(ctx context.Context, cand *Candidate, retries int) error {
	if cand == nil {
		return NewPermanentError("no current candidate to promote", nil).WithOperation("promote")
	}
	if !lexists(cand.ManifestPath) {
		return NewPermanentError(
			fmt.Sprintf("candidate manifest %s not found locally", cand.ManifestPath), nil,
		).WithOperation("promote")
	}

	message := fmt.Sprintf("Automatic: %s promoting %s to LKGM", m.opts.BuildName, cand)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if m.metrics != nil {
			m.metrics.RecordPromotionAttempt()
		}
		lastErr = m.promoteOnce(ctx, cand, message)
		if lastErr == nil {
			m.logger.Info().Str("candidate", cand.String()).Msg("candidate promoted to LKGM")
			if m.metrics != nil {
				m.metrics.RecordPromotion("success")
			}
			return nil
		}
		m.logger.Error().
			Err(lastErr).
			Int("attempt", attempt+1).
			Int("max_attempts", retries+1).
			Msg("failed to promote candidate, retrying")
	}

	if m.metrics != nil {
		m.metrics.RecordPromotion("failure")
	}
	return &PromoteCandidateError{
		Message:  fmt.Sprintf("failed to promote %s", cand),
		Attempts: retries + 1,
		Err:      lastErr,
	}
}

// promoteOnce runs one full promote sequence. Any step failing aborts the
// attempt; nothing is observably persisted remotely unless the push succeeds.
func (m *Manager) promoteOnce(ctx context.Context, cand *Candidate, message string) error {
	if err := m.store.Resync(ctx); err != nil {
		return err
	}
	if err := m.store.ReplaceCanonicalPointer(cand.ManifestPath); err != nil {
		return err
	}
	if err := m.store.StageCanonicalPointer(ctx); err != nil {
		return err
	}
	return m.store.PushChanges(ctx, message)
}
