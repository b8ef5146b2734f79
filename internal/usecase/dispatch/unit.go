package dispatch

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/intent"
	"github.com/kailas-cloud/searchsync/internal/domain/snapshot"
)

// Kind names the job a unit of work runs.
type Kind string

// Unit kinds.
const (
	MakeSearchable   Kind = "make_searchable"
	RemoveFromSearch Kind = "remove_from_search"
)

// Unit is a serializable batch of work for one model type. Upserts travel as
// keys and are re-read at execution time. Removals travel as snapshots.
type Unit struct {
	ID        string               `msgpack:"id"`
	Kind      Kind                 `msgpack:"kind"`
	ModelType string               `msgpack:"model"`
	Keys      []string             `msgpack:"keys,omitempty"`
	Snapshots []snapshot.Removable `msgpack:"snapshots,omitempty"`

	// records are the live rows of an in-process upsert. Never encoded.
	records []domain.Record
}

// FromIntent converts a decided intent into a unit with a fresh ID.
func FromIntent(it intent.Intent) Unit {
	u := Unit{ID: uuid.NewString(), ModelType: it.ModelType}
	switch it.Op {
	case intent.Upsert:
		u.Kind = MakeSearchable
		u.Keys = domain.Keys(it.Records)
		u.records = it.Records
	case intent.Remove:
		u.Kind = RemoveFromSearch
		u.Snapshots = it.Snapshots
	}
	return u
}

// Records returns the live records an in-process unit carries, if any.
func (u Unit) Records() []domain.Record { return u.records }

// Len returns the number of affected records.
func (u Unit) Len() int {
	if u.Kind == MakeSearchable {
		return len(u.Keys)
	}
	return len(u.Snapshots)
}

// Encode serializes u for transport. Live records are not included.
func Encode(u Unit) ([]byte, error) {
	data, err := msgpack.Marshal(&u)
	if err != nil {
		return nil, fmt.Errorf("encode unit: %w", err)
	}
	return data, nil
}

// Decode parses a unit and checks its kind.
func Decode(data []byte) (Unit, error) {
	var u Unit
	if err := msgpack.Unmarshal(data, &u); err != nil {
		return Unit{}, fmt.Errorf("decode unit: %w", err)
	}
	switch u.Kind {
	case MakeSearchable, RemoveFromSearch:
	default:
		return Unit{}, fmt.Errorf("decode unit: unknown kind %q", u.Kind)
	}
	if u.ModelType == "" {
		return Unit{}, fmt.Errorf("decode unit: model type is required")
	}
	return u, nil
}
