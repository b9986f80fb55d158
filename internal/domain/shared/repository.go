package shared

// Paging bounds shared by every listing
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter selects one page of a listing. OrderBy is checked against a
// per-repository whitelist before it reaches SQL.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderDir: "asc"}
}

// Normalize clamps paging into range and folds any direction other than
// "desc" to "asc"
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	if f.OrderDir != "desc" {
		f.OrderDir = "asc"
	}
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of T plus the totals a client needs to keep paging
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated never returns nil Items, so an empty page encodes as []
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Paginated[T]{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}
