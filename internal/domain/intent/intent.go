package intent

import (
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/snapshot"
)

// Op is a synchronization action.
type Op string

// Operations.
const (
	Upsert Op = "upsert"
	Remove Op = "remove"
)

// Intent is a decided synchronization action awaiting dispatch.
// Upserts carry live records; removals carry snapshots.
type Intent struct {
	Op        Op
	ModelType string
	Records   []domain.Record
	Snapshots []snapshot.Removable
}

// NewUpsert creates an upsert intent.
func NewUpsert(records ...domain.Record) Intent {
	it := Intent{Op: Upsert, Records: records}
	if len(records) > 0 {
		it.ModelType = records[0].ModelType()
	}
	return it
}

// NewRemove creates a removal intent from identities captured now.
func NewRemove[T domain.Identity](items ...T) Intent {
	it := Intent{Op: Remove, Snapshots: snapshot.All(items)}
	if len(items) > 0 {
		it.ModelType = items[0].ModelType()
	}
	return it
}

// Len returns the number of affected records.
func (i Intent) Len() int {
	if i.Op == Upsert {
		return len(i.Records)
	}
	return len(i.Snapshots)
}

// Merge folds each intent into the latest group of its model when that group
// has the same op. An op change for a model starts a new group, so a batch
// like trash, restore, trash of one record still ends with a removal.
func Merge(intents []Intent) []Intent {
	var out []Intent
	last := make(map[string]int)
	for _, it := range intents {
		if it.Len() == 0 {
			continue
		}
		idx, ok := last[it.ModelType]
		if !ok || out[idx].Op != it.Op {
			out = append(out, Intent{Op: it.Op, ModelType: it.ModelType})
			idx = len(out) - 1
			last[it.ModelType] = idx
		}
		out[idx].Records = append(out[idx].Records, it.Records...)
		out[idx].Snapshots = append(out[idx].Snapshots, it.Snapshots...)
	}
	return out
}
