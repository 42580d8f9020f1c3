package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openlkgm/openlkgm/pkg/pkgreport"
)

func newMergeStatusCommand() *cobra.Command {
	var (
		outFile  string
		finalize bool
	)

	cmd := &cobra.Command{
		Use:   "merge-status <report.csv> [report.csv...]",
		Short: "Merge per-architecture package status reports",
		Long: `Merge the CSV package status reports individual builders produce into one
table keyed by package and slot. Conflicting target lists are collapsed
conservatively.

With --finalize the merged table gains the split platform/host target
columns and, when exactly two architectures are present, a version
comparison column.`,
		Example: `  # Merge two builder reports
  lkgm merge-status x86.csv arm.csv --out merged.csv

  # Produce the publication table
  lkgm merge-status x86.csv arm.csv --out merged.csv --finalize`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := pkgreport.LoadTables(args)
			if err != nil {
				return err
			}
			if finalize {
				pkgreport.FinalizeTable(table)
			}
			if err := table.WriteFile(outFile); err != nil {
				return err
			}

			log.Info().
				Int("reports", len(args)).
				Int("rows", len(table.Rows)).
				Str("out", outFile).
				Msg("Merged package status reports")
			fmt.Printf("Wrote %d rows to %s\n", len(table.Rows), outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "merged.csv", "output CSV file")
	cmd.Flags().BoolVar(&finalize, "finalize", false, "add the split target and comparison columns")

	return cmd
}
