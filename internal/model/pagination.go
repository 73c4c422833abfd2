package model

// PaginationState describes one page of a filtered collection. It is derived
// by the paginator and never set field by field.
type PaginationState struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	HasNextPage bool
	HasPrevPage bool
}

// NextPage returns the page after the current one, or the current page at the end.
func (p PaginationState) NextPage() int {
	if p.HasNextPage {
		return p.CurrentPage + 1
	}
	return p.CurrentPage
}

// PrevPage returns the page before the current one, or the current page at the start.
func (p PaginationState) PrevPage() int {
	if p.HasPrevPage {
		return p.CurrentPage - 1
	}
	return p.CurrentPage
}
