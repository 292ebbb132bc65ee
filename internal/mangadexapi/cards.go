package mangadexapi

import (
	"context"
	"fmt"
)

// GetMangaCards returns read/total chapter counts for the page
// ids[offset:offset+limit]. The page bounds are clamped to ids.
func (c *Client) GetMangaCards(ctx context.Context, ids []string, limit, offset int) (CardPage, error) {
	if limit < 0 || offset < 0 {
		return CardPage{}, fmt.Errorf("%w: negative limit %d or offset %d", ErrInvalidRequest, limit, offset)
	}

	page := CardPage{
		Total:  len(ids),
		Offset: offset,
		Limit:  limit,
		Data:   []MangaCard{},
	}

	start := min(offset, len(ids))
	end := start + min(limit, len(ids)-start)
	working := ids[start:end]
	if len(working) == 0 {
		return page, nil
	}

	manga, err := c.GetMangaByIDs(ctx, working)
	if err != nil {
		return CardPage{}, err
	}

	markers, err := c.GetReadMarkers(ctx, working)
	if err != nil {
		return CardPage{}, err
	}

	for _, m := range manga {
		aggregate, err := c.GetMangaAggregate(ctx, m.ID)
		if err != nil {
			return CardPage{}, err
		}

		read, total := countChapters(aggregate, markers[m.ID])
		page.Data = append(page.Data, MangaCard{Manga: m, Read: read, Total: total})
	}

	return page, nil
}

// countChapters counts every chapter entry of every volume. A chapter is read
// when its id or any of its alternates was marked read. A chapter listed under
// two volumes is counted twice.
func countChapters(aggregate Aggregate, readIDs []string) (read, total int) {
	marked := make(map[string]struct{}, len(readIDs))
	for _, id := range readIDs {
		marked[id] = struct{}{}
	}

	for _, volume := range aggregate.Volumes {
		total += len(volume.Chapters)
		for _, chapter := range volume.Chapters {
			for _, id := range chapter.ids() {
				if _, ok := marked[id]; ok {
					read++
					break
				}
			}
		}
	}
	return read, total
}
