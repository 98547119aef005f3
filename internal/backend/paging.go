package backend

import "context"

const defaultPageSize = 100

// fetchAll pages through a listing until total items are read or a page
// comes back empty
func fetchAll[T any](
	ctx context.Context,
	fetch func(ctx context.Context, offset, limit int) ([]T, int, error),
	pageSize int,
) ([]T, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var all []T
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, total, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)

		if len(all) >= total || len(items) == 0 {
			break
		}
		offset += len(items)
	}

	return all, nil
}

// pageQueries encodes a limit/offset window as queries[] values
func pageQueries(offset, limit int) ([]string, error) {
	return encodeQueries(
		Query{Method: "limit", Values: []any{limit}},
		Query{Method: "offset", Values: []any{offset}},
	)
}
