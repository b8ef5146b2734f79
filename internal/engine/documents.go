package engine

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Document is the backend-ready body of one record.
type Document struct {
	Key     string
	KeyName string
	Body    map[string]any
}

// Documents groups record bodies by index in first-seen order.
// Records with an empty projection are skipped. With softDelete set,
// soft-deletable records carry the trashed marker field.
func Documents(records []domain.Record, softDelete bool) (order []string, groups map[string][]Document) {
	groups = make(map[string][]Document)
	for _, r := range records {
		proj := r.SearchableProjection()
		if len(proj) == 0 {
			continue
		}
		body := maps.Clone(proj)
		if softDelete && domain.UsesSoftDeletes(r) {
			body[domain.SoftDeletedField] = trashedMarker(r)
		}
		name := r.IndexName()
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], Document{Key: r.SearchKey(), KeyName: r.SearchKeyName(), Body: body})
	}
	return order, groups
}

func trashedMarker(r domain.Record) int {
	if domain.IsTrashed(r) {
		return 1
	}
	return 0
}

// CheckPage validates a page window.
func CheckPage(perPage, page int) error {
	if perPage <= 0 {
		return fmt.Errorf("%w: per page must be positive, got %d", domain.ErrInvalidPage, perPage)
	}
	if page <= 0 {
		return fmt.Errorf("%w: page must be positive, got %d", domain.ErrInvalidPage, page)
	}
	return nil
}
