package commands

import (
	"context"
	"time"

	"github.com/openlkgm/openlkgm/pkg/config"
	"github.com/openlkgm/openlkgm/pkg/gitcmd"
	"github.com/openlkgm/openlkgm/pkg/history"
	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/specstore"
	"github.com/openlkgm/openlkgm/pkg/telemetry"
)

// app wires the configured components behind each subcommand.
type app struct {
	cfg     *config.Config
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	store   *specstore.GitStore
	manager *lkgm.Manager
	ledger  history.Store
}

// newApp loads the configuration and builds the component graph. Global flags
// override the file: --verbose forces debug logging, --json forces JSON logs.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if jsonOutput {
		cfg.Telemetry.Logging.Format = "json"
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, err
	}
	logger = logger.WithBuildName(cfg.Build.Name)

	metrics, err := telemetry.NewMetrics(cfg.Telemetry.Metrics)
	if err != nil {
		return nil, err
	}
	if err := metrics.Serve(); err != nil {
		return nil, err
	}

	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing,
		cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.Environment)
	if err != nil {
		return nil, err
	}

	runner := gitcmd.NewExecRunner(logger.Zerolog())
	store, err := specstore.NewGitStore(specstore.Config{
		Root:           cfg.Manifests.Dir,
		Branch:         cfg.Manifests.Branch,
		Remote:         cfg.Manifests.Remote,
		SourceManifest: cfg.Manifests.SourceManifest,
	}, runner, logger.Zerolog())
	if err != nil {
		return nil, err
	}

	source := specstore.NewFileSource(cfg.Manifests.VersionFile)
	manager := lkgm.NewManager(store, source, lkgm.Options{
		BuildName:     cfg.Build.Name,
		Subdir:        cfg.Subdir(),
		PollInterval:  cfg.Coordination.PollInterval.Std(),
		StatusTimeout: cfg.Coordination.StatusTimeout.Std(),
		Logger:        logger.Zerolog(),
		Metrics:       metrics,
	})

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		store:   store,
		manager: manager,
	}

	if cfg.History.Enabled {
		ledger, err := history.NewSQLiteStore(history.Config{Path: cfg.History.Path})
		if err != nil {
			return nil, err
		}
		if err := ledger.Init(ctx); err != nil {
			return nil, err
		}
		if err := ledger.Migrate(ctx); err != nil {
			_ = ledger.Close()
			return nil, err
		}
		if retention := cfg.History.Retention.Std(); retention > 0 {
			if _, err := ledger.PruneBefore(ctx, time.Now().Add(-retention)); err != nil {
				logger.WithError(err).Warn("failed to prune candidate ledger")
			}
		}
		a.ledger = ledger
	}

	return a, nil
}

// Close flushes telemetry and closes the ledger. Shutdown failures are logged
// rather than returned; the command result should reflect the operation, not
// the teardown.
func (a *app) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close candidate ledger")
		}
	}
	if err := a.metrics.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("failed to shut down metrics endpoint")
	}
	if err := a.tracer.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("failed to shut down tracer")
	}
}

// record appends a ledger entry when the ledger is enabled.
func (a *app) record(ctx context.Context, kind history.EventKind, ver, message string) {
	if a.ledger == nil {
		return
	}
	err := a.ledger.RecordEvent(ctx, &history.Event{
		Version:   ver,
		BuildName: a.cfg.Build.Name,
		Kind:      kind,
		Message:   message,
	})
	if err != nil {
		a.logger.WithError(err).WithCandidate(ver).Warn("failed to record ledger event")
	}
}
