package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/history"
)

func newHistoryCommand() *cobra.Command {
	var (
		candidate       string
		kind            string
		limit           int
		offset          int
		latestPromotion bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local candidate ledger",
		Long: `List the candidate lifecycle events this coordinator recorded locally:
creations, in-flight claims, fleet status summaries and promotions.

The ledger is a local convenience; the shared repository remains the source
of truth for coordination.`,
		Example: `  # Show the most recent events
  lkgm history

  # Everything that happened to one candidate
  lkgm history --candidate 1.2.3.4-rc2

  # When was the last promotion?
  lkgm history --latest-promotion`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if a.ledger == nil {
				return fmt.Errorf("the candidate ledger is disabled in the config")
			}

			if latestPromotion {
				event, err := a.ledger.LatestPromotion(ctx)
				if err != nil {
					return err
				}
				if event == nil {
					fmt.Println("No candidate has been promoted yet")
					return nil
				}
				return printEvents([]*history.Event{event})
			}

			events, err := a.ledger.ListEvents(ctx, history.Filter{
				Version:   candidate,
				BuildName: "",
				Kind:      history.EventKind(kind),
				Limit:     limit,
				Offset:    offset,
			})
			if err != nil {
				return err
			}
			return printEvents(events)
		},
	}

	cmd.Flags().StringVar(&candidate, "candidate", "", "filter by candidate version")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by event kind (created, inflight, status, promoted)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of events to skip")
	cmd.Flags().BoolVar(&latestPromotion, "latest-promotion", false, "show only the most recent promotion")

	return cmd
}

func printEvents(events []*history.Event) error {
	if jsonOutput {
		return printJSON(events)
	}
	if len(events) == 0 {
		fmt.Println("No matching events")
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s  %-9s %-16s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Version, e.Message)
	}
	return nil
}
