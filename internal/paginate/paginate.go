// Package paginate slices filtered collections into fixed-size pages.
package paginate

import "github.com/Veraticus/givedesk/internal/model"

// DefaultPageSize is used when a caller passes a non-positive size.
const DefaultPageSize = 5

// TotalPages returns ceil(count/size), never less than 1.
func TotalPages(count, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (count + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Page returns the records on page (1-based) and the derived state. The page
// number is reported as given; out-of-range pages yield an empty slice.
func Page[T any](records []T, page, size int) ([]T, model.PaginationState) {
	if size <= 0 {
		size = DefaultPageSize
	}

	total := TotalPages(len(records), size)
	state := model.PaginationState{
		CurrentPage: page,
		TotalPages:  total,
		TotalCount:  len(records),
		HasNextPage: page < total,
		HasPrevPage: page > 1,
	}

	if page < 1 || page > total {
		return []T{}, state
	}

	start := (page - 1) * size
	if start >= len(records) {
		return []T{}, state
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}

	out := make([]T, end-start)
	copy(out, records[start:end])
	return out, state
}

// Clamp pulls page into [1, totalPages].
func Clamp(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if totalPages >= 1 && page > totalPages {
		return totalPages
	}
	return page
}
