package services

// Page is one page of a listing.
type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
}

const maxPageSize = 100

// pageBounds normalizes a 1-based page number and size and returns the offset.
func pageBounds(page, size, defaultSize int) (int, int, int) {
	if size <= 0 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return page, size, (page - 1) * size
}

func newPage[T any](items []T, total int64, page, size int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(size) - 1) / int64(size))
	return &Page[T]{Items: items, Page: page, Pages: pages, Total: total}
}
