package capi

import (
	"context"
	"fmt"
)

// PaginationClient fetches a single page of a list endpoint.
type PaginationClient[T any] interface {
	ListWithPath(ctx context.Context, path string, params *QueryParams) (*ListResponse[T], error)
}

// PaginationOptions bounds a multi-page fetch.
type PaginationOptions struct {
	// PageSize is sent as per_page. Zero leaves the server default.
	PageSize int
	// MaxPages stops the walk after this many pages. Zero means no limit.
	MaxPages int
}

// FetchAllPages walks every page of path and returns the concatenated resources.
// The walk follows pagination.next and stops when it is absent.
func FetchAllPages[T any](
	ctx context.Context,
	client PaginationClient[T],
	path string,
	params *QueryParams,
	options *PaginationOptions,
) ([]T, error) {
	query := NewQueryParams()
	if params != nil {
		copied := *params
		query = &copied
	}

	if options != nil && options.PageSize > 0 {
		query.PerPage = options.PageSize
	}

	all := make([]T, 0)

	for page := 1; ; page++ {
		if options != nil && options.MaxPages > 0 && page > options.MaxPages {
			break
		}

		query.Page = page

		resp, err := client.ListWithPath(ctx, path, query)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of %s: %w", page, path, err)
		}

		all = append(all, resp.Resources...)

		if !resp.HasNext() {
			break
		}
	}

	return all, nil
}
