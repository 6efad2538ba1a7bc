package domain

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit far from int64 overflow.
	MaxPage = math.MaxInt32
)

// Search is a case-insensitive substring match OR-ed across Fields.
type Search struct {
	Term   string
	Fields []string
}

// Filter narrows a list query. Only keys for supplied parameters are present.
type Filter struct {
	Equals map[string]any
	Search *Search
}

// IsEmpty reports whether the filter matches every document.
func (f Filter) IsEmpty() bool {
	return len(f.Equals) == 0 && f.Search == nil
}

// Sort orders list results by a single field.
type Sort struct {
	Field string
	Desc  bool
}

// ListQuery is what a repository needs to return one page of documents.
type ListQuery struct {
	Filter Filter
	Sort   Sort
	Skip   int64
	Limit  int64
	// ExcludeDeleted hides soft-deleted documents.
	ExcludeDeleted bool
}

// Page is the resolved pagination request.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps raw page/limit values: page defaults to 1 and is capped at
// MaxPage, limit defaults to 10 and is capped at MaxLimit.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// Skip is the number of documents preceding this page.
func (p Page) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// Pagination is the list metadata returned alongside a page of items.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Paginate computes the metadata for total matching documents.
func (p Page) Paginate(total int64) Pagination {
	return Pagination{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: TotalPages(total, p.Limit),
	}
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ListResult is one page of documents plus its metadata.
type ListResult struct {
	Items      []Document
	Pagination Pagination
}

// Stats summarises a collection for /stats/overview.
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}
