package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/history"
	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/telemetry"
	"github.com/openlkgm/openlkgm/pkg/version"
)

func newPromoteCommand() *cobra.Command {
	var (
		candidate string
		retries   int
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote a candidate to the canonical LKGM pointer",
		Long: `Point the canonical LKGM reference at the candidate's manifest and push the
change. A rejected push means another agent moved the branch; the promotion
is retried from a fresh resync up to the retry bound.

The candidate's manifest must exist in the local checkout.`,
		Example: `  # Promote a fully green candidate
  lkgm promote --candidate 1.2.3.4-rc2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			v, err := version.Parse(candidate)
			if err != nil {
				return fmt.Errorf("invalid candidate version %q: %w", candidate, err)
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if retries < 0 {
				retries = a.cfg.Coordination.PromoteRetries
			}

			cand := &lkgm.Candidate{
				Version:      v,
				ManifestPath: a.store.LocalManifestPath(a.cfg.Subdir(), v.String()),
			}

			ctx, span := a.tracer.StartPromoteSpan(ctx, v.String(), a.cfg.Build.Name)
			defer span.End()

			if err := a.manager.PromoteCandidate(ctx, cand, retries); err != nil {
				telemetry.RecordError(span, err)
				return err
			}
			telemetry.RecordSuccess(span)

			a.record(ctx, history.EventPromoted, v.String(),
				fmt.Sprintf("promoted to LKGM by %s", a.cfg.Build.Name))
			fmt.Printf("Promoted %s to LKGM\n", v)
			return nil
		},
	}

	cmd.Flags().StringVar(&candidate, "candidate", "", "candidate version to promote")
	cmd.Flags().IntVar(&retries, "retries", -1, "promotion retries (-1 uses the config value)")
	cmd.MarkFlagRequired("candidate")

	return cmd
}
