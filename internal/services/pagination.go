package services

import "strconv"

// Page is one page of an ordered result set. Number is 1-based.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Number   int   `json:"page"`
	PageSize int   `json:"page_size"`
	NumPages int   `json:"num_pages"`
	Total    int64 `json:"total"`
}

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page[T]) Previous() int     { return p.Number - 1 }
func (p *Page[T]) Next() int         { return p.Number + 1 }

// Offset is the number of rows before this page.
func (p *Page[T]) Offset() int { return (p.Number - 1) * p.PageSize }

// newPage resolves the requested page number against total rows. A value that
// is not an integer selects the first page; one outside the range selects the
// last. An empty result still has one page.
func newPage[T any](raw string, total int64, size int) *Page[T] {
	if size <= 0 {
		size = 10
	}
	numPages := int((total + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}
	number, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}
	return &Page[T]{Number: number, PageSize: size, NumPages: numPages, Total: total}
}
