package shared

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter is the paging, ordering and criteria input of list queries.
// Filters holds typed criteria whose keys each repository documents.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]interface{}
}

// Normalize clamps Page and PageSize into range and allocates Filters.
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	if f.Filters == nil {
		f.Filters = map[string]interface{}{}
	}
	return f
}

// Offset is the row offset of Page. Call it on a normalized filter.
func (f Filter) Offset() int {
	return (max(f.Page, 1) - 1) * f.PageSize
}
