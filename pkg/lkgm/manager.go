package lkgm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openlkgm/openlkgm/pkg/telemetry"
	"github.com/openlkgm/openlkgm/pkg/version"
)

// Candidate subdirectories within the shared manifest repository.
const (
	SubdirBinary = "LKGM-candidates"
	SubdirChrome = "chrome-LKGM-candidates"
)

// Default bounds, matching the behaviour the builder fleet is tuned for.
const (
	DefaultCreateRetries  = 3
	DefaultLatestRetries  = 5
	DefaultPromoteRetries = 5
	DefaultPollInterval   = 30 * time.Second
	DefaultStatusTimeout  = 5 * time.Minute
)

// Options configures a Manager.
type Options struct {
	// BuildName identifies this build agent; it namespaces the agent's
	// marker files in the shared store.
	BuildName string

	// Subdir is the candidates subdirectory (SubdirBinary or SubdirChrome).
	Subdir string

	// PollInterval is the sleep between status poll iterations.
	PollInterval time.Duration

	// StatusTimeout bounds the total wall-clock time of a status poll.
	StatusTimeout time.Duration

	// Logger receives structured progress and retry logs.
	Logger zerolog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *telemetry.Metrics
}

// Manager coordinates the candidate lifecycle against an injected store and
// version source. Candidate state is threaded through return values rather
// than kept as mutable manager state.
type Manager struct {
	store   Store
	source  VersionSource
	opts    Options
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewManager creates a Manager. The store and source are required; zero
// durations in opts fall back to the defaults.
func NewManager(store Store, source VersionSource, opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = DefaultStatusTimeout
	}
	if opts.Subdir == "" {
		opts.Subdir = SubdirBinary
	}
	return &Manager{
		store:   store,
		source:  source,
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "lkgm-manager").Str("build_name", opts.BuildName).Logger(),
		metrics: opts.Metrics,
		sleep:   time.Sleep,
	}
}

// CreateNewCandidate derives the next candidate to test from the baseline
// version, materializes its build spec and marks it in-flight. It returns nil
// when there is nothing new to build. All failures, including exhausted
// in-flight retries, surface as *GenerateBuildSpecError.
func (m *Manager) CreateNewCandidate(ctx context.Context, retries int) (*Candidate, error) {
	baseline, err := m.source.CurrentVersion(ctx)
	if err != nil {
		return nil, m.generateError("failed to resolve baseline version", err)
	}

	known, err := m.store.LoadCandidates(ctx, m.opts.Subdir)
	if err != nil {
		return nil, m.generateError("failed to load known candidates", err)
	}

	work := latestCandidateFor(baseline, known)
	m.logger.Debug().
		Str("baseline", baseline.BaseString()).
		Str("working", work.String()).
		Int("known", len(known)).
		Msg("derived working candidate")

	verStr, err := m.store.CreateBuildSpec(ctx, m.opts.Subdir, m.opts.BuildName, work)
	if err != nil {
		return nil, m.generateError("failed to create build spec", err)
	}
	if verStr == "" {
		m.logger.Info().Msg("no new candidate to build")
		return nil, nil
	}

	cand, err := m.claimCandidate(ctx, verStr, retries)
	if err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.RecordCandidateCreated()
	}
	return cand, nil
}

// GetLatestCandidate claims the newest candidate this build has not yet
// processed, without deriving a fresh version. It returns nil when the store
// reports nothing unprocessed. Failures surface as *GenerateBuildSpecError.
func (m *Manager) GetLatestCandidate(ctx context.Context, retries int) (*Candidate, error) {
	verStr, err := m.store.LatestUnprocessed(ctx, m.opts.Subdir, m.opts.BuildName)
	if err != nil {
		return nil, m.generateError("failed to look up latest unprocessed candidate", err)
	}
	if verStr == "" {
		m.logger.Info().Msg("no unprocessed candidate available")
		return nil, nil
	}

	return m.claimCandidate(ctx, verStr, retries)
}

// claimCandidate marks the version in-flight with the shared retry discipline
// and returns the resulting candidate.
func (m *Manager) claimCandidate(ctx context.Context, verStr string, retries int) (*Candidate, error) {
	v, err := version.Parse(verStr)
	if err != nil {
		return nil, m.generateError("store returned unparseable candidate version", err)
	}

	m.logger.Debug().Str("candidate", verStr).Msg("using build spec")
	message := fmt.Sprintf("Automatic: Start %s %s", m.opts.BuildName, verStr)
	if err := m.setInFlightWithRetry(ctx, verStr, message, retries); err != nil {
		return nil, err
	}

	return &Candidate{
		Version:      v,
		ManifestPath: m.store.LocalManifestPath(m.opts.Subdir, verStr),
	}, nil
}

// setInFlightWithRetry attempts the in-flight commit up to retries+1 times.
// Exhaustion produces *GenerateBuildSpecError carrying the last failure.
func (m *Manager) setInFlightWithRetry(ctx context.Context, verStr, message string, retries int) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		err := m.store.SetInFlight(ctx, m.opts.Subdir, m.opts.BuildName, verStr, message)
		if err == nil {
			return nil
		}
		lastErr = err
		if m.metrics != nil {
			m.metrics.RecordInflightRetry()
		}
		m.logger.Error().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", retries+1).
			Str("candidate", verStr).
			Msg("failed to set build in-flight, retrying")
	}
	return &GenerateBuildSpecError{
		Message: fmt.Sprintf("failed to set %s in-flight for %s", verStr, m.opts.BuildName),
		Err:     lastErr,
	}
}

func (m *Manager) generateError(message string, err error) error {
	m.logger.Error().Err(err).Msg(message)
	return &GenerateBuildSpecError{Message: message, Err: err}
}

// latestCandidateFor picks the working candidate for a baseline: the maximum
// known candidate sharing the baseline's four-part prefix, carrying its
// revision forward, or the baseline itself (revision defaulted) when no
// sibling exists. Unparseable entries in the ledger are skipped.
func latestCandidateFor(baseline version.Info, known []string) version.Info {
	best := baseline
	found := false
	for _, s := range known {
		v, err := version.Parse(s)
		if err != nil {
			continue
		}
		if v.BaseString() != baseline.BaseString() {
			continue
		}
		if !found || version.Compare(v, best) > 0 {
			best = v
			found = true
		}
	}
	return best
}
