// Package pagination slices ordered collections into fixed-size pages. Out-of-range
// requests never fail: non-numeric or too-small page numbers resolve to the first
// page and too-large ones to the last.
package pagination

import (
	"strconv"
	"strings"
)

// Paginator knows the total number of items and the page size
type Paginator struct {
	Count   int
	PerPage int
}

// New returns a paginator for count items, perPage per page
func New(count, perPage int) Paginator {
	if perPage < 1 {
		perPage = 1
	}
	if count < 0 {
		count = 0
	}
	return Paginator{Count: count, PerPage: perPage}
}

// NumPages is never less than one; an empty collection has one empty page
func (p Paginator) NumPages() int {
	if p.Count == 0 {
		return 1
	}
	return (p.Count + p.PerPage - 1) / p.PerPage
}

// ParseNumber reads a requested page number; anything unusable is page 1
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Clamp resolves a raw page value to a valid page number
func (p Paginator) Clamp(raw string) int {
	n := ParseNumber(raw)
	if last := p.NumPages(); n > last {
		return last
	}
	return n
}

// Bounds returns the [offset, end) item range of page number
func (p Paginator) Bounds(number int) (int, int) {
	offset := (number - 1) * p.PerPage
	end := offset + p.PerPage
	if end > p.Count {
		end = p.Count
	}
	if offset > end {
		offset = end
	}
	return offset, end
}

// Page is one page of items together with the metadata templates need
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int
	PerPage  int
}

// Paginate clamps raw and slices items (the full collection) to that page
func Paginate[T any](items []T, perPage int, raw string) Page[T] {
	p := New(len(items), perPage)
	number := p.Clamp(raw)
	start, end := p.Bounds(number)
	return Page[T]{
		Items:    items[start:end],
		Number:   number,
		NumPages: p.NumPages(),
		Count:    p.Count,
		PerPage:  p.PerPage,
	}
}

// FromSlice wraps an already-sliced page fetched with p.Bounds
func FromSlice[T any](p Paginator, number int, items []T) Page[T] {
	return Page[T]{
		Items:    items,
		Number:   number,
		NumPages: p.NumPages(),
		Count:    p.Count,
		PerPage:  p.PerPage,
	}
}

func (pg Page[T]) HasNext() bool     { return pg.Number < pg.NumPages }
func (pg Page[T]) HasPrevious() bool { return pg.Number > 1 }
func (pg Page[T]) HasOtherPages() bool {
	return pg.HasNext() || pg.HasPrevious()
}
func (pg Page[T]) NextPageNumber() int     { return pg.Number + 1 }
func (pg Page[T]) PreviousPageNumber() int { return pg.Number - 1 }

// StartIndex is the 1-based index of the first item on the page, 0 when empty
func (pg Page[T]) StartIndex() int {
	if pg.Count == 0 {
		return 0
	}
	return (pg.Number-1)*pg.PerPage + 1
}

// EndIndex is the 1-based index of the last item on the page
func (pg Page[T]) EndIndex() int {
	if len(pg.Items) == 0 {
		return 0
	}
	return pg.StartIndex() + len(pg.Items) - 1
}

// PageRange lists every page number, for rendering page links
func (pg Page[T]) PageRange() []int {
	out := make([]int, pg.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
