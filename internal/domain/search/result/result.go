package result

import "github.com/kailas-cloud/searchsync/internal/domain"

// Raw is a backend result normalized to an ordered hit payload list.
type Raw struct {
	// Hits are the hit payloads in backend rank order.
	Hits []map[string]any
	// Total is the backend-reported match count.
	Total int
	// Page and PerPage echo the backend paging window, zero when not paginated.
	Page    int
	PerPage int
	// Native is the untouched backend response.
	Native any
}

// Empty returns a result with no hits.
func Empty() *Raw { return &Raw{Hits: []map[string]any{}} }

// Hit is one backend-reported match.
type Hit struct {
	Key      string
	Position int
	Metadata map[string]any
}

// Item is a store record in backend rank order with its relevance metadata
// kept out of band.
type Item struct {
	Record   domain.Record
	Metadata map[string]any
}

// Records strips metadata from items.
func Records(items []Item) []domain.Record {
	out := make([]domain.Record, 0, len(items))
	for _, it := range items {
		out = append(out, it.Record)
	}
	return out
}

// Page is one page of reconciled results.
type Page struct {
	Items       []Item
	Total       int
	PerPage     int
	CurrentPage int
}

// LastPage returns the number of the last page, at least 1.
func (p Page) LastPage() int {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// HasMore reports whether pages follow the current one.
func (p Page) HasMore() bool { return p.CurrentPage < p.LastPage() }

// Offset returns the zero-based index of the first item on page for size perPage.
func Offset(perPage, page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}
