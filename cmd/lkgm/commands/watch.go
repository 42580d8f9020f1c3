package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/version"
)

func newWatchCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the checkout for new candidate manifests",
		Long: `Watch the local checkout's candidates directory and report new candidate
manifests as they appear. The checkout is resynced periodically so candidates
pushed by other agents show up without manual intervention.

The command runs until interrupted.`,
		Example: `  # Follow new candidates, resyncing every minute
  lkgm watch

  # Resync more aggressively
  lkgm watch --resync-interval 15s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			dir := filepath.Join(a.cfg.Manifests.Dir, a.cfg.Subdir())
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}

			logger := a.logger.NewComponentLogger("watch")
			logger.Infof("watching %s for new candidates", dir)

			return watchLoop(ctx, a, watcher, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "resync-interval", time.Minute, "how often to resync the checkout")

	return cmd
}

// watchLoop processes file system events and periodic resyncs until the
// context is cancelled.
func watchLoop(ctx context.Context, a *app, watcher *fsnotify.Watcher, interval time.Duration) error {
	logger := a.logger.NewComponentLogger("watch")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := a.store.Resync(ctx); err != nil {
				logger.WithError(err).Warn("resync failed, will retry")
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".xml") {
				continue
			}
			ver := strings.TrimSuffix(name, ".xml")
			if _, err := version.Parse(ver); err != nil {
				continue
			}
			logger.WithCandidate(ver).Info("new candidate manifest")
			fmt.Printf("New candidate: %s\n", ver)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Error("watcher error")
		}
	}
}
