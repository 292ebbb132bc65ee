package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
	"github.com/Another0Noob/mangadex-progress/internal/titles"
)

var cardsOpts struct {
	status string
	limit  int
	offset int
	title  string
	json   bool
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Show read progress for the manga of one reading status",
	Long: `Fetches the manga IDs carrying --status, takes the window selected by
--offset and --limit and prints every manga of it with read/total chapters.

--title narrows the printed window to manga with a loosely matching title.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := mangadexapi.ParseReadingStatus(cardsOpts.status)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		statuses, err := client.GetReadingStatuses(ctx)
		if err != nil {
			return fmt.Errorf("reading statuses: %w", err)
		}

		page, err := client.GetMangaCards(ctx, statuses[st], cardsOpts.limit, cardsOpts.offset)
		if err != nil {
			return fmt.Errorf("manga cards: %w", err)
		}
		page.Data = titles.Filter(page.Data, cardsOpts.title)

		out := cmd.OutOrStdout()
		if cardsOpts.json {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		}

		if len(page.Data) == 0 {
			fmt.Fprintf(out, "No manga to show (%d with status %s).\n", page.Total, st)
			return nil
		}

		t := newTable("Title", "Read", "ID")
		for _, card := range page.Data {
			t.Row(
				truncate(titles.Pick(card.Manga, cfg.API.Language), 58),
				fmt.Sprintf("%d/%d", card.Read, card.Total),
				card.ID,
			)
		}
		fmt.Fprintln(out, t)
		fmt.Fprintf(out, "%d shown, offset %d of %d %s\n", len(page.Data), page.Offset, page.Total, st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cardsCmd)

	cardsCmd.Flags().StringVar(&cardsOpts.status, "status", string(mangadexapi.ReadingStatusReading), "reading status to show")
	cardsCmd.Flags().IntVar(&cardsOpts.limit, "limit", 10, "number of manga to show")
	cardsCmd.Flags().IntVar(&cardsOpts.offset, "offset", 0, "number of manga to skip")
	cardsCmd.Flags().StringVar(&cardsOpts.title, "title", "", "only show manga whose title loosely matches")
	cardsCmd.Flags().BoolVar(&cardsOpts.json, "json", false, "print the page as JSON")
}
