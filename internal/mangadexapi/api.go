package mangadexapi

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
)

const (
	pathMangaStatus = "/manga/status"
	pathManga       = "/manga"
	pathReadMarkers = "/manga/read"
)

func pathMangaFeed(id string) string      { return "/manga/" + url.PathEscape(id) + "/feed" }
func pathMangaAggregate(id string) string { return "/manga/" + url.PathEscape(id) + "/aggregate" }

// feedOrder is applied to every feed request, newest first.
var feedOrder = []string{"createdAt", "updatedAt", "publishAt", "readableAt", "volume", "chapter"}

// withRefresh runs call and, if the access token is rejected with a 401,
// refreshes it once and runs call a second time. The second response is
// returned as is, whatever its status.
func (c *Client) withRefresh(ctx context.Context, op string, call func(ctx context.Context) (*response, error)) (*response, error) {
	resp, err := call(ctx)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	c.log.Warn().Str("op", op).Msg("Access token is invalid, refreshing")
	if _, err := c.tokens.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w: token refresh after 401: %w", op, ErrFetch, err)
	}
	return call(ctx)
}

// GetReadingStatuses returns the user's manga grouped by reading status.
// IDs within a group are sorted.
func (c *Client) GetReadingStatuses(ctx context.Context) (ReadingStatusMap, error) {
	const op = "get manga reading status"

	resp, err := c.withRefresh(ctx, op, func(ctx context.Context) (*response, error) {
		return c.doRequest(ctx, request{
			family:     familyStatus,
			method:     http.MethodGet,
			path:       pathMangaStatus,
			authorized: true,
		})
	})
	if err != nil {
		return nil, err
	}

	var body statusResponse
	if err := decodeResult(op, resp, true, &body, "statuses"); err != nil {
		return nil, err
	}

	statuses := make(ReadingStatusMap)
	for id, status := range body.Statuses {
		statuses[status] = append(statuses[status], id)
	}
	for _, ids := range statuses {
		slices.Sort(ids)
	}
	return statuses, nil
}

// GetMangaBatch fetches one page of manga restricted to ids. At most 100 ids
// are accepted.
func (c *Client) GetMangaBatch(ctx context.Context, ids []string, limit, offset int) ([]Manga, error) {
	const op = "get manga by ids"
	if err := checkBatch(op, ids); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	for _, id := range ids {
		params.Add("ids[]", id)
	}
	params.Add("availableTranslatedLanguage[]", c.language)
	params.Add("includes[]", "cover_art")

	resp, err := c.doRequest(ctx, request{
		family: familyManga,
		method: http.MethodGet,
		path:   pathManga,
		params: params,
	})
	if err != nil {
		return nil, err
	}

	var body mangaListResponse
	if err := decodeResult(op, resp, true, &body, "data"); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetMangaByIDs fetches manga for any number of ids, 100 per request.
func (c *Client) GetMangaByIDs(ctx context.Context, ids []string) ([]Manga, error) {
	var manga []Manga
	err := chunked(ctx, ids, maxBatchSize, func(ctx context.Context, chunk []string) error {
		batch, err := c.GetMangaBatch(ctx, chunk, maxBatchSize, 0)
		if err != nil {
			return err
		}
		manga = append(manga, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manga, nil
}

func (c *Client) getMangaFeedPage(ctx context.Context, id string, limit, offset int) (Page[Chapter], error) {
	const op = "get manga feed"

	params := url.Values{}
	params.Add("translatedLanguage[]", c.language)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	for _, field := range feedOrder {
		params.Set("order["+field+"]", "desc")
	}

	resp, err := c.doRequest(ctx, request{
		family: familyFeed,
		method: http.MethodGet,
		path:   pathMangaFeed(id),
		params: params,
	})
	if err != nil {
		return Page[Chapter]{}, err
	}

	var body chapterListResponse
	if err := decodeResult(op, resp, true, &body, "data", "total"); err != nil {
		return Page[Chapter]{}, err
	}
	return Page[Chapter]{Items: body.Data, Offset: body.Offset, Limit: body.Limit, Total: body.Total}, nil
}

// GetMangaFeed returns every chapter of the manga's feed in the configured
// language, walking all pages.
func (c *Client) GetMangaFeed(ctx context.Context, id string) ([]Chapter, error) {
	return paginate(ctx, c.pageSize, func(ctx context.Context, offset, limit int) (Page[Chapter], error) {
		page, err := c.getMangaFeedPage(ctx, id, limit, offset)
		if err != nil {
			return page, err
		}
		c.log.Debug().
			Str("manga_id", id).
			Int("fetched", min(offset+limit, page.Total)).
			Int("total", page.Total).
			Msg("Fetched feed page")
		return page, nil
	})
}

// GetMangaAggregate returns the volume/chapter tree of a manga.
func (c *Client) GetMangaAggregate(ctx context.Context, id string) (Aggregate, error) {
	const op = "get manga aggregate"

	params := url.Values{}
	params.Add("translatedLanguage[]", c.language)

	resp, err := c.doRequest(ctx, request{
		family: familyAggregate,
		method: http.MethodGet,
		path:   pathMangaAggregate(id),
		params: params,
	})
	if err != nil {
		return Aggregate{}, err
	}

	var body aggregateResponse
	if err := decodeResult(op, resp, false, &body, "volumes"); err != nil {
		return Aggregate{}, err
	}
	return body.Aggregate, nil
}

func (c *Client) getReadMarkerBatch(ctx context.Context, ids []string) (ReadMarkers, error) {
	const op = "get manga read markers"
	if err := checkBatch(op, ids); err != nil {
		return nil, err
	}

	params := url.Values{}
	for _, id := range ids {
		params.Add("ids[]", id)
	}
	params.Set("grouped", "true")

	resp, err := c.doRequest(ctx, request{
		family:     familyRead,
		method:     http.MethodGet,
		path:       pathReadMarkers,
		params:     params,
		authorized: true,
	})
	if err != nil {
		return nil, err
	}

	var body readMarkersResponse
	if err := decodeResult(op, resp, true, &body, "data"); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetReadMarkers returns the read chapter IDs of each manga in ids, 100
// manga per request.
func (c *Client) GetReadMarkers(ctx context.Context, ids []string) (ReadMarkers, error) {
	markers := make(ReadMarkers)
	processed := 0
	err := chunked(ctx, ids, maxBatchSize, func(ctx context.Context, chunk []string) error {
		batch, err := c.getReadMarkerBatch(ctx, chunk)
		if err != nil {
			return err
		}
		maps.Copy(markers, batch)
		processed += len(chunk)
		c.log.Debug().Int("processed", processed).Int("total", len(ids)).Msg("Fetched read markers")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return markers, nil
}
