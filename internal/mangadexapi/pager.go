package mangadexapi

import (
	"context"
	"fmt"
	"slices"
)

// paginate walks an offset/limit endpoint from offset 0 until the offset
// reaches the total reported by the server. Items keep server order.
func paginate[T any](ctx context.Context, limit int, fetch func(ctx context.Context, offset, limit int) (Page[T], error)) ([]T, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidRequest, limit)
	}

	var items []T
	for offset, total := 0, -1; total < 0 || offset < total; offset += limit {
		page, err := fetch(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		total = page.Total
	}
	return items, nil
}

// chunked calls fetch once per consecutive chunk of at most size ids and
// stops at the first error.
func chunked(ctx context.Context, ids []string, size int, fetch func(ctx context.Context, chunk []string) error) error {
	for chunk := range slices.Chunk(ids, size) {
		if err := fetch(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func checkBatch(op string, ids []string) error {
	if len(ids) > maxBatchSize {
		return fmt.Errorf("%s: %w: maximum of %d ids per request, got %d", op, ErrInvalidRequest, maxBatchSize, len(ids))
	}
	return nil
}
