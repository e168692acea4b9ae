package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(app *appState) *cobra.Command {
	var (
		limit     int
		showStats bool
		pruneDays int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dictations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := app.historyFn()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()

			if pruneDays > 0 {
				removed, err := db.Prune(time.Duration(pruneDays) * 24 * time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d dictation(s) older than %d days\n", removed, pruneDays)
				return nil
			}

			if showStats {
				stats, err := db.ProviderStats()
				if err != nil {
					return err
				}
				for _, s := range stats {
					fmt.Fprintf(out, "%-12s %4d dictations  %5d words  %3d failed  avg %.0f ms\n",
						s.Provider, s.Count, s.Words, s.Failures, s.AvgLatencyMs)
				}
				return nil
			}

			rows, err := db.Recent(limit)
			if err != nil {
				return err
			}
			for _, d := range rows {
				status := "ok"
				if !d.Success {
					status = "failed: " + d.ErrorMessage
				}
				fmt.Fprintf(out, "%s  %-12s %-8s %s\n",
					d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Provider, status, d.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of dictations to show")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Show per-provider statistics instead")
	cmd.Flags().IntVar(&pruneDays, "prune", 0, "Delete dictations older than this many days")

	return cmd
}
