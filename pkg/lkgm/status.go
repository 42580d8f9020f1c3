package lkgm

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// markerPaths returns the pass, fail and inflight marker paths for one
// builder and candidate. Each builder writes only inside its own
// build-name/<builder> namespace, so distinct builders never conflict.
func (m *Manager) markerPaths(cand *Candidate, builder string) (pass, fail, inflight string) {
	xmlName := cand.Version.String() + ".xml"
	dirPrefix := cand.Version.DirPrefix()
	builderDir := filepath.Join(m.store.Root(), m.opts.Subdir, "build-name", builder)

	pass = filepath.Join(builderDir, "pass", dirPrefix, xmlName)
	fail = filepath.Join(builderDir, "fail", dirPrefix, xmlName)
	inflight = filepath.Join(builderDir, "inflight", dirPrefix, xmlName)
	return pass, fail, inflight
}

// GetBuildersStatus polls the shared store until every builder has reported a
// terminal outcome for the candidate or the status timeout expires. Each
// iteration resyncs the whole checkout before checking markers; a builder
// already terminal is never re-examined, so a stale inflight marker cannot
// downgrade it. Timing out is not an error: the partial map is returned as-is.
func (m *Manager) GetBuildersStatus(ctx context.Context, cand *Candidate, builders []string) map[string]Status {
	statuses := make(map[string]Status, len(builders))
	for _, b := range builders {
		statuses[b] = StatusUnset
	}

	numComplete := 0
	deadline := time.Now().Add(m.opts.StatusTimeout)

	for time.Now().Before(deadline) {
		if m.metrics != nil {
			m.metrics.RecordPollIteration()
		}
		if err := m.store.Resync(ctx); err != nil {
			// The next iteration retries the sync; the timeout still bounds us.
			m.logger.Warn().Err(err).Msg("failed to resync manifest checkout")
		} else {
			for _, builder := range builders {
				if statuses[builder].IsTerminal() {
					continue
				}
				m.logger.Debug().Str("builder", builder).Msg("checking builder status")

				passFile, failFile, inflightFile := m.markerPaths(cand, builder)
				switch {
				case lexists(passFile):
					statuses[builder] = StatusPass
					numComplete++
					m.logger.Info().Str("builder", builder).Msg("builder completed with status passed")
				case lexists(failFile):
					statuses[builder] = StatusFail
					numComplete++
					m.logger.Info().Str("builder", builder).Msg("builder completed with status failed")
				case lexists(inflightFile):
					statuses[builder] = StatusInflight
				default:
					statuses[builder] = StatusUnset
					m.logger.Debug().Str("builder", builder).Msg("no status found for builder")
				}
			}
		}

		if numComplete >= len(builders) {
			break
		}

		m.logger.Info().
			Int("complete", numComplete).
			Int("total", len(builders)).
			Msg("waiting for other builds to complete")
		if !m.sleepCtx(ctx, m.opts.PollInterval) {
			m.logger.Warn().Msg("status poll cancelled")
			break
		}
	}

	if numComplete != len(builders) {
		m.logger.Error().
			Int("complete", numComplete).
			Int("total", len(builders)).
			Msg("not all builds finished before the status timeout")
	}

	if m.metrics != nil {
		m.metrics.ObserveBuilderStatuses(countStatuses(statuses))
	}
	return statuses
}

// sleepCtx sleeps for d unless the context is cancelled first. It returns
// false on cancellation.
func (m *Manager) sleepCtx(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	done := make(chan struct{})
	go func() {
		m.sleep(d)
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// lexists reports whether a path exists without following symlinks; builder
// markers and the canonical pointer may be symlinks.
func lexists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func countStatuses(statuses map[string]Status) map[string]int {
	counts := make(map[string]int, 4)
	for _, s := range statuses {
		counts[string(s)]++
	}
	return counts
}
