package db

import "errors"

// Query is the input of an FT.SEARCH call.
type Query struct {
	Index string
	// Query is a compiled FT query string; "*" matches everything.
	Query  string
	Offset int
	Limit  int
	// SortBy is an optional SORTBY field.
	SortBy   string
	SortDesc bool
	// NoContent returns keys only.
	NoContent  bool
	WithScores bool
	// Return limits the returned fields.
	Return []string
}

// Validate checks required query parameters.
func (q *Query) Validate() error {
	if q.Index == "" {
		return errors.New("index name is required")
	}
	if q.Query == "" {
		return errors.New("query is required")
	}
	if q.Offset < 0 || q.Limit < 0 {
		return errors.New("offset and limit must not be negative")
	}
	return nil
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
