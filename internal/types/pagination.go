package types

const maxPageSize = 100

// PageParams is a 1-based page request.
type PageParams struct {
	Page  int
	Limit int
}

// Normalize clamps the page to at least 1 and the limit into [1, maxPageSize].
func (p PageParams) Normalize(defaultLimit int) PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is the paginated envelope. Next and Previous are filled in by the HTTP layer.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether a page follows p.
func HasNext(count int64, p PageParams) bool {
	return int64(p.Page*p.Limit) < count
}
