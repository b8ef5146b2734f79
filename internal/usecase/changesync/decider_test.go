package changesync

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/intent"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
)

var (
	users = model.MustNew("users", model.Options{
		SearchableIf: map[string]any{"active": true},
	})
	chirps = model.MustNew("chirps", model.Options{
		SoftDeleteColumn: "deleted_at",
		ReindexOn:        []string{"content"},
	})
)

func catalog(t *testing.T) *model.Catalog {
	t.Helper()
	c, err := model.NewCatalog(users, chirps)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func activeUser() *model.Row   { return model.NewRow(users, map[string]any{"id": 1, "active": true}) }
func inactiveUser() *model.Row { return model.NewRow(users, map[string]any{"id": 2, "active": false}) }
func chirp() *model.Row        { return model.NewRow(chirps, map[string]any{"id": 7, "content": "hi"}) }

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		softDelete bool
		ev         Event
		want       intent.Op // empty: no intent
	}{
		{"created searchable", false, Created(activeUser()), intent.Upsert},
		{"created unsearchable", false, Created(inactiveUser()), ""},
		{"updated", false, Updated(activeUser(), true, "name"), intent.Upsert},
		{"updated became unsearchable", false, Updated(inactiveUser(), true, "active"), intent.Remove},
		{"updated never searchable", false, Updated(inactiveUser(), false, "active"), ""},
		{"updated during restore", false, Updated(chirp(), false, "deleted_at").AsRestoring(), ""},
		{"reindex_on matched", false, Updated(chirp(), true, "content"), intent.Upsert},
		{"reindex_on not matched", false, Updated(chirp(), true, "last_seen_at"), ""},
		{"trashed excluded", false, Trashed(chirp(), true), intent.Remove},
		{"trashed included", true, Trashed(chirp(), true), intent.Upsert},
		{"trashed included but unsearchable", true, Trashed(inactiveUser(), true), intent.Remove},
		{"trashed never searchable", true, Trashed(chirp(), false), ""},
		{"restored", false, Restored(chirp()), intent.Upsert},
		{"restored unsearchable", false, Restored(inactiveUser()), intent.Upsert},
		{"deleted", false, Deleted(inactiveUser()), intent.Remove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecider(NewRegistry(), catalog(t), tt.softDelete)
			it, ok, err := d.Decide(tt.ev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == "" {
				if ok {
					t.Errorf("got %s intent, want none", it.Op)
				}
				return
			}
			if !ok || it.Op != tt.want {
				t.Errorf("intent = %v %v, want %s", ok, it.Op, tt.want)
			}
			if it.Len() != 1 {
				t.Errorf("Len() = %d, want 1", it.Len())
			}
		})
	}
}

func TestDecide_DeletedUsesSnapshot(t *testing.T) {
	d := NewDecider(NewRegistry(), catalog(t), false)
	it, _, _ := d.Decide(Deleted(chirp()))
	if len(it.Snapshots) != 1 || len(it.Records) != 0 {
		t.Fatalf("intent = %+v", it)
	}
	s := it.Snapshots[0]
	if s.Model != "chirps" || s.Index != "chirps" || s.Key != "7" || s.KeyName != "id" {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestDecide_DisabledTypeShortCircuits(t *testing.T) {
	reg := NewRegistry()
	reg.Disable("chirps")
	failing := func([]string) (bool, error) { return false, errors.New("must not run") }
	d := NewDecider(reg, catalog(t), false).WithPredicate("chirps", failing)

	for _, ev := range []Event{Created(chirp()), Updated(chirp(), true, "content"), Deleted(chirp()), Restored(chirp())} {
		if _, ok, err := d.Decide(ev); ok || err != nil {
			t.Errorf("%s: ok=%v err=%v, want no intent", ev.Kind, ok, err)
		}
	}
}

func TestDecide_PredicateOverridesReindexOn(t *testing.T) {
	var seen []string
	d := NewDecider(NewRegistry(), catalog(t), false).WithPredicate("chirps", func(changed []string) (bool, error) {
		seen = changed
		return true, nil
	})

	if _, ok, _ := d.Decide(Updated(chirp(), true, "last_seen_at")); !ok {
		t.Error("predicate returned true, want upsert")
	}
	if len(seen) != 1 || seen[0] != "last_seen_at" {
		t.Errorf("predicate saw %v", seen)
	}
}

func TestDecide_UnsearchableIgnoresPredicate(t *testing.T) {
	called := false
	d := NewDecider(NewRegistry(), catalog(t), false).WithPredicate("users", func([]string) (bool, error) {
		called = true
		return true, nil
	})

	it, ok, _ := d.Decide(Updated(inactiveUser(), true, "name"))
	if !ok || it.Op != intent.Remove {
		t.Errorf("intent = %v %v, want remove", ok, it.Op)
	}
	if called {
		t.Error("predicate must not run for unsearchable records")
	}
}

func TestDecide_PredicateError(t *testing.T) {
	boom := errors.New("boom")
	d := NewDecider(NewRegistry(), catalog(t), false).WithPredicate("users", func([]string) (bool, error) {
		return false, boom
	})

	_, ok, err := d.Decide(Updated(activeUser(), true, "name"))
	if ok {
		t.Error("no intent expected on predicate error")
	}
	if !errors.Is(err, domain.ErrPredicate) || !errors.Is(err, boom) {
		t.Errorf("error = %v, want ErrPredicate wrapping boom", err)
	}
}

func TestDecide_UnknownModelNeverUpserts(t *testing.T) {
	ghosts := model.MustNew("ghosts", model.Options{})
	d := NewDecider(NewRegistry(), catalog(t), false)

	if _, ok, _ := d.Decide(Created(model.NewRow(ghosts, map[string]any{"id": 1}))); ok {
		t.Error("unknown model type should not produce an upsert")
	}
}

func TestRestoreYieldsExactlyOneUpsert(t *testing.T) {
	d := NewDecider(NewRegistry(), catalog(t), true)
	rec := chirp()

	var upserts int
	for _, ev := range []Event{Restored(rec), Updated(rec, false, "deleted_at").AsRestoring()} {
		it, ok, err := d.Decide(ev)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok && it.Op == intent.Upsert {
			upserts++
		}
	}
	if upserts != 1 {
		t.Errorf("upserts = %d, want 1", upserts)
	}
}
