package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/history"
	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/telemetry"
	"github.com/openlkgm/openlkgm/pkg/version"
)

func newStatusCommand() *cobra.Command {
	var candidate string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Poll builder statuses for a candidate",
		Long: `Poll the shared repository for the pass/fail/inflight markers the fleet's
builders publish for a candidate, until every configured builder reaches a
terminal status or the status timeout expires.

A timeout is not an error: the partial map is printed and builders that never
reported stay unset.`,
		Example: `  # Wait for the fleet to finish candidate 1.2.3.4-rc2
  lkgm status --candidate 1.2.3.4-rc2`,
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

			cand := &lkgm.Candidate{
				Version:      v,
				ManifestPath: a.store.LocalManifestPath(a.cfg.Subdir(), v.String()),
			}

			builders := a.cfg.Build.Builders
			ctx, span := a.tracer.StartStatusSpan(ctx, v.String(), len(builders))
			defer span.End()

			statuses := a.manager.GetBuildersStatus(ctx, cand, builders)
			telemetry.RecordSuccess(span)

			a.record(ctx, history.EventStatus, v.String(), summarize(statuses))
			return printStatuses(statuses)
		},
	}

	cmd.Flags().StringVar(&candidate, "candidate", "", "candidate version to wait for")
	cmd.MarkFlagRequired("candidate")

	return cmd
}

// summarize renders a compact status summary for the ledger.
func summarize(statuses map[string]lkgm.Status) string {
	counts := map[lkgm.Status]int{}
	for _, s := range statuses {
		counts[s]++
	}
	return fmt.Sprintf("pass=%d fail=%d inflight=%d unset=%d",
		counts[lkgm.StatusPass], counts[lkgm.StatusFail],
		counts[lkgm.StatusInflight], counts[lkgm.StatusUnset])
}
