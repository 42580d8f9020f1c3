package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/history"
	"github.com/openlkgm/openlkgm/pkg/telemetry"
)

func newCreateCommand() *cobra.Command {
	var retries int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and claim a new candidate manifest",
		Long: `Derive the next candidate version from the platform version file and the
candidates already published, materialize its build spec in the shared
repository, and mark this build in-flight on it.

When the newest candidate already exists and this build has not processed it
yet, the existing spec is reused. When there is nothing new to build the
command prints so and exits successfully.`,
		Example: `  # Create a candidate using the retry bound from the config
  lkgm create

  # Create with a custom in-flight retry bound
  lkgm create --retries 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if retries < 0 {
				retries = a.cfg.Coordination.CreateRetries
			}

			ctx, span := a.tracer.StartCandidateSpan(ctx, "create", a.cfg.Build.Name)
			defer span.End()

			cand, err := a.manager.CreateNewCandidate(ctx, retries)
			if err != nil {
				telemetry.RecordError(span, err)
				return err
			}
			telemetry.RecordSuccess(span)

			if cand == nil {
				fmt.Println("No new candidate to build")
				return nil
			}

			a.record(ctx, history.EventCreated, cand.Version.String(),
				fmt.Sprintf("created and claimed by %s", a.cfg.Build.Name))
			return printCandidate(cand)
		},
	}

	cmd.Flags().IntVar(&retries, "retries", -1, "in-flight commit retries (-1 uses the config value)")

	return cmd
}
