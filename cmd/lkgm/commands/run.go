package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/history"
	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	var (
		useLatest bool
		noPromote bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full candidate cycle",
		Long: `Run the complete cycle a coordinating build performs: claim a candidate,
wait for every builder to report, and promote the candidate to LKGM when the
whole fleet passed.

With --latest the cycle claims the newest unprocessed candidate instead of
deriving a new one, which is what follower builds do.`,
		Example: `  # Create a candidate, wait for the fleet and promote on success
  lkgm run

  # Follow the coordinator's candidate without promoting
  lkgm run --latest --no-promote`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			claimOp := "create"
			claimKind := history.EventCreated
			if useLatest {
				claimOp = "latest"
				claimKind = history.EventInflight
			}

			claimCtx, claimSpan := a.tracer.StartCandidateSpan(ctx, claimOp, a.cfg.Build.Name)
			var cand *lkgm.Candidate
			if useLatest {
				cand, err = a.manager.GetLatestCandidate(claimCtx, a.cfg.Coordination.LatestRetries)
			} else {
				cand, err = a.manager.CreateNewCandidate(claimCtx, a.cfg.Coordination.CreateRetries)
			}
			if err != nil {
				telemetry.RecordError(claimSpan, err)
				claimSpan.End()
				return err
			}
			telemetry.RecordSuccess(claimSpan)
			claimSpan.End()

			if cand == nil {
				fmt.Println("Nothing to build")
				return nil
			}

			ver := cand.Version.String()
			a.record(ctx, claimKind, ver, fmt.Sprintf("cycle started by %s", a.cfg.Build.Name))
			if err := printCandidate(cand); err != nil {
				return err
			}

			statusCtx, statusSpan := a.tracer.StartStatusSpan(ctx, ver, len(a.cfg.Build.Builders))
			statuses := a.manager.GetBuildersStatus(statusCtx, cand, a.cfg.Build.Builders)
			statusSpan.End()

			a.record(ctx, history.EventStatus, ver, summarize(statuses))
			if err := printStatuses(statuses); err != nil {
				return err
			}

			if !allPassed(statuses) {
				return fmt.Errorf("candidate %s is not fully green: %s", ver, summarize(statuses))
			}
			if noPromote {
				fmt.Printf("Candidate %s is fully green; promotion skipped\n", ver)
				return nil
			}

			promoteCtx, promoteSpan := a.tracer.StartPromoteSpan(ctx, ver, a.cfg.Build.Name)
			defer promoteSpan.End()
			if err := a.manager.PromoteCandidate(promoteCtx, cand, a.cfg.Coordination.PromoteRetries); err != nil {
				telemetry.RecordError(promoteSpan, err)
				return err
			}
			telemetry.RecordSuccess(promoteSpan)

			a.record(ctx, history.EventPromoted, ver,
				fmt.Sprintf("promoted to LKGM by %s", a.cfg.Build.Name))
			fmt.Printf("Promoted %s to LKGM\n", ver)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useLatest, "latest", false, "claim the newest unprocessed candidate instead of creating one")
	cmd.Flags().BoolVar(&noPromote, "no-promote", false, "report the fleet status but never promote")

	return cmd
}
