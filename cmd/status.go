package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
)

var statusFilter string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show your library grouped by reading status",
	Long: `Without --status, prints how many manga carry each reading status.
With --status, prints the manga IDs of that status, one per line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var only mangadexapi.ReadingStatus
		if statusFilter != "" {
			st, err := mangadexapi.ParseReadingStatus(statusFilter)
			if err != nil {
				return err
			}
			only = st
		}

		statuses, err := client.GetReadingStatuses(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading statuses: %w", err)
		}

		out := cmd.OutOrStdout()
		if only != "" {
			for _, id := range statuses[only] {
				fmt.Fprintln(out, id)
			}
			return nil
		}

		t := newTable("Status", "Manga")
		for _, st := range statuses.Statuses() {
			t.Row(string(st), strconv.Itoa(len(statuses[st])))
		}
		fmt.Fprintln(out, t)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusFilter, "status", "", "only print the manga IDs of this status")
}
