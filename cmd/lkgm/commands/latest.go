package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/history"
	"github.com/openlkgm/openlkgm/pkg/telemetry"
)

func newLatestCommand() *cobra.Command {
	var retries int

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Claim the latest unprocessed candidate",
		Long: `Claim the newest candidate manifest this build has not yet processed,
without deriving a fresh version. Follower builds use this to pick up the
candidate a coordinator published.

Older unprocessed candidates are never returned; a build does not regress to
a candidate older than one it has already seen.`,
		Example: `  # Claim the newest unprocessed candidate
  lkgm latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if retries < 0 {
				retries = a.cfg.Coordination.LatestRetries
			}

			ctx, span := a.tracer.StartCandidateSpan(ctx, "latest", a.cfg.Build.Name)
			defer span.End()

			cand, err := a.manager.GetLatestCandidate(ctx, retries)
			if err != nil {
				telemetry.RecordError(span, err)
				return err
			}
			telemetry.RecordSuccess(span)

			if cand == nil {
				fmt.Println("No unprocessed candidate available")
				return nil
			}

			a.record(ctx, history.EventInflight, cand.Version.String(),
				fmt.Sprintf("claimed by %s", a.cfg.Build.Name))
			return printCandidate(cand)
		},
	}

	cmd.Flags().IntVar(&retries, "retries", -1, "in-flight commit retries (-1 uses the config value)")

	return cmd
}
