package domain

// Identity is the minimal handle an engine needs to address one indexed record.
// Live records and removal snapshots both satisfy it.
type Identity interface {
	ModelType() string
	IndexName() string
	SearchKey() string
	SearchKeyName() string
}

// Record is an indexable entity.
type Record interface {
	Identity
	// SearchableProjection returns the document body sent to the backend.
	// An empty projection means the record is not sent at all.
	SearchableProjection() map[string]any
	// ShouldBeSearchable reports whether the record belongs in the index.
	ShouldBeSearchable() bool
}

// SoftDeletable is implemented by records that can be trashed without
// being removed from the store.
type SoftDeletable interface {
	SoftDeletes() bool
	Trashed() bool
}

// SoftDeletedField is the projection field carrying the trashed marker
// when soft-deleted records stay in the index.
const SoftDeletedField = "__soft_deleted"

// UsesSoftDeletes reports whether r participates in soft deletion.
func UsesSoftDeletes(r Record) bool {
	sd, ok := r.(SoftDeletable)
	return ok && sd.SoftDeletes()
}

// IsTrashed reports whether r is a soft-deletable record currently trashed.
func IsTrashed(r Record) bool {
	sd, ok := r.(SoftDeletable)
	return ok && sd.SoftDeletes() && sd.Trashed()
}

// Keys returns the search keys of items in order.
func Keys[T Identity](items []T) []string {
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.SearchKey())
	}
	return keys
}

// GroupByIndex splits items by index name, keeping the first-seen order of
// indexes and the original order within each group.
func GroupByIndex[T Identity](items []T) (order []string, groups map[string][]T) {
	groups = make(map[string][]T)
	for _, it := range items {
		name := it.IndexName()
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], it)
	}
	return order, groups
}
