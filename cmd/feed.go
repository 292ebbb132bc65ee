package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed <manga-id>",
	Short: "List the translated chapters of a manga",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid manga id %q: %w", args[0], err)
		}

		chapters, err := client.GetMangaFeed(cmd.Context(), id.String())
		if err != nil {
			return fmt.Errorf("manga feed: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(chapters) == 0 {
			fmt.Fprintf(out, "No %s chapters.\n", cfg.API.Language)
			return nil
		}

		t := newTable("Vol", "Ch", "Title", "Published", "ID")
		for _, ch := range chapters {
			a := ch.Attributes
			t.Row(a.Volume, a.Chapter, truncate(a.Title, 40), a.PublishAt, ch.ID)
		}
		fmt.Fprintln(out, t)
		fmt.Fprintf(out, "%d chapters\n", len(chapters))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
}
