package changesync

import (
	"fmt"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/intent"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
)

// Predicate decides from the changed columns whether an update needs reindexing.
type Predicate func(changed []string) (bool, error)

// Catalog resolves model types. Unknown types never produce upserts.
type Catalog interface {
	Get(name string) (*model.Model, error)
}

// Decider maps lifecycle events to sync intents.
type Decider struct {
	registry   *Registry
	models     Catalog
	softDelete bool
	predicates map[string]Predicate
}

// NewDecider creates a decider. With softDelete set, trashed records stay
// indexed with their marker instead of being removed.
func NewDecider(registry *Registry, models Catalog, softDelete bool) *Decider {
	return &Decider{
		registry:   registry,
		models:     models,
		softDelete: softDelete,
		predicates: make(map[string]Predicate),
	}
}

// WithPredicate registers a reindex predicate for modelType. It takes
// precedence over the model's reindex_on columns.
func (d *Decider) WithPredicate(modelType string, p Predicate) *Decider {
	d.predicates[modelType] = p
	return d
}

// Decide returns the intent for ev and whether there is one. A failing
// predicate is returned as an error with no intent.
func (d *Decider) Decide(ev Event) (intent.Intent, bool, error) {
	rec := ev.Record
	if rec == nil || !d.registry.Enabled(rec.ModelType()) {
		return intent.Intent{}, false, nil
	}

	switch ev.Kind {
	case KindCreated:
		if d.indexable(rec) {
			return intent.NewUpsert(rec), true, nil
		}
		return intent.Intent{}, false, nil

	case KindUpdated:
		if ev.Restoring {
			return intent.Intent{}, false, nil
		}
		if !d.indexable(rec) {
			if ev.WasSearchable {
				return intent.NewRemove(rec), true, nil
			}
			return intent.Intent{}, false, nil
		}
		ok, err := d.shouldReindex(rec.ModelType(), ev.Changed)
		if err != nil || !ok {
			return intent.Intent{}, false, err
		}
		return intent.NewUpsert(rec), true, nil

	case KindTrashed:
		if !ev.WasSearchable {
			return intent.Intent{}, false, nil
		}
		if d.softDelete && d.indexable(rec) {
			return intent.NewUpsert(rec), true, nil
		}
		return intent.NewRemove(rec), true, nil

	case KindRestored:
		return intent.NewUpsert(rec), true, nil

	case KindDeleted:
		return intent.NewRemove(rec), true, nil

	default:
		return intent.Intent{}, false, fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

func (d *Decider) indexable(rec domain.Record) bool {
	if !rec.ShouldBeSearchable() {
		return false
	}
	_, err := d.models.Get(rec.ModelType())
	return err == nil
}

func (d *Decider) shouldReindex(modelType string, changed []string) (bool, error) {
	if p, ok := d.predicates[modelType]; ok {
		ok, err := p(changed)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %w", domain.ErrPredicate, modelType, err)
		}
		return ok, nil
	}
	m, err := d.models.Get(modelType)
	if err != nil {
		return false, nil
	}
	return m.ShouldReindex(changed), nil
}
