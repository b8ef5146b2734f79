package snapshot

import "github.com/kailas-cloud/searchsync/internal/domain"

// Removable captures the identity of a record at delete-intent time so the
// removal can run after the source row is gone. Field tags fix its wire form.
type Removable struct {
	Model   string `msgpack:"model" json:"model"`
	Index   string `msgpack:"index" json:"index"`
	Key     string `msgpack:"key" json:"key"`
	KeyName string `msgpack:"key_name" json:"key_name"`
}

var _ domain.Identity = Removable{}

// Of captures the identity of id.
func Of(id domain.Identity) Removable {
	return Removable{
		Model:   id.ModelType(),
		Index:   id.IndexName(),
		Key:     id.SearchKey(),
		KeyName: id.SearchKeyName(),
	}
}

// All captures every item in order.
func All[T domain.Identity](items []T) []Removable {
	out := make([]Removable, 0, len(items))
	for _, it := range items {
		out = append(out, Of(it))
	}
	return out
}

// Identities widens snapshots to the engine's delete input.
func Identities(snaps []Removable) []domain.Identity {
	out := make([]domain.Identity, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s)
	}
	return out
}

// ModelType returns the captured model type.
func (r Removable) ModelType() string { return r.Model }

// IndexName returns the captured index name.
func (r Removable) IndexName() string { return r.Index }

// SearchKey returns the captured key.
func (r Removable) SearchKey() string { return r.Key }

// SearchKeyName returns the captured key field.
func (r Removable) SearchKeyName() string { return r.KeyName }
