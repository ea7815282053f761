package catalog

import (
	"context"
	"fmt"
)

// Ellipsis marks a gap in the page button row.
const Ellipsis = 0

// TotalPages is ceil(total/pageSize); zero items means zero pages.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// PageButtons lists the buttons to render: the first and last page, the current page
// and its neighbours, with Ellipsis standing in for each skipped run.
func PageButtons(page, totalPages int) []int {
	if totalPages <= 0 {
		return nil
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	out := make([]int, 0, 7)
	for i := 1; i <= totalPages; i++ {
		switch {
		case i == 1 || i == totalPages || (i >= page-1 && i <= page+1):
			out = append(out, i)
		case i == page-2 || i == page+2:
			out = append(out, Ellipsis)
		}
	}
	return out
}

// ListAll walks every page of q from page 1. A bare-array response is the whole list.
func ListAll(ctx context.Context, src Lister, q Query) ([]Product, error) {
	q.Page = 1
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	var all []Product
	for {
		page, err := src.ListLocal(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", q.Page, err)
		}
		all = append(all, page.Items...)
		if page.Legacy || len(page.Items) == 0 || q.Page >= TotalPages(page.TotalCount, q.PageSize) {
			return all, nil
		}
		q.Page++
	}
}
