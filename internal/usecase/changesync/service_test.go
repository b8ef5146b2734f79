package changesync

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/intent"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
)

type fakeDispatcher struct {
	got []intent.Intent
	err error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, it intent.Intent) error {
	f.got = append(f.got, it)
	return f.err
}

func TestHandle_MergesByOpAndModel(t *testing.T) {
	disp := &fakeDispatcher{}
	svc := New(NewDecider(NewRegistry(), catalog(t), false), disp, zap.NewNop())

	u3 := model.NewRow(users, map[string]any{"id": 3, "active": true})
	err := svc.Handle(context.Background(),
		Created(activeUser()),
		Deleted(chirp()),
		Created(u3),
		Created(inactiveUser()),
		Updated(inactiveUser(), true, "active"),
	)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(disp.got) != 3 {
		t.Fatalf("dispatched %d intents, want 3: %+v", len(disp.got), disp.got)
	}
	if disp.got[0].Op != intent.Upsert || disp.got[0].ModelType != "users" || disp.got[0].Len() != 2 {
		t.Errorf("first = %+v, want 2 user upserts", disp.got[0])
	}
	if disp.got[1].Op != intent.Remove || disp.got[1].ModelType != "chirps" {
		t.Errorf("second = %+v, want chirp removal", disp.got[1])
	}
	if disp.got[2].Op != intent.Remove || disp.got[2].ModelType != "users" {
		t.Errorf("third = %+v, want user removal", disp.got[2])
	}
}

func TestHandle_TrashRestoreTrashEndsRemoved(t *testing.T) {
	disp := &fakeDispatcher{}
	svc := New(NewDecider(NewRegistry(), catalog(t), false), disp, zap.NewNop())

	c := chirp()
	if err := svc.Handle(context.Background(), Trashed(c, true), Restored(c), Trashed(c, true)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	ops := make([]intent.Op, 0, len(disp.got))
	for _, it := range disp.got {
		ops = append(ops, it.Op)
	}
	want := []intent.Op{intent.Remove, intent.Upsert, intent.Remove}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops = %v, want %v", ops, want)
			break
		}
	}
}

func TestHandle_DecisionErrorDispatchesNothing(t *testing.T) {
	disp := &fakeDispatcher{}
	d := NewDecider(NewRegistry(), catalog(t), false).WithPredicate("users", func([]string) (bool, error) {
		return false, errors.New("boom")
	})
	svc := New(d, disp, zap.NewNop())

	err := svc.Handle(context.Background(), Created(chirp()), Updated(activeUser(), true, "name"))
	if !errors.Is(err, domain.ErrPredicate) {
		t.Errorf("error = %v, want ErrPredicate", err)
	}
	if len(disp.got) != 0 {
		t.Errorf("dispatched %d intents, want 0", len(disp.got))
	}
}

func TestSearchableAndUnsearchable(t *testing.T) {
	disp := &fakeDispatcher{}
	svc := New(NewDecider(NewRegistry(), catalog(t), false), disp, zap.NewNop())
	ctx := context.Background()

	if err := svc.Searchable(ctx, activeUser(), inactiveUser()); err != nil {
		t.Fatalf("searchable: %v", err)
	}
	if err := svc.Unsearchable(ctx, chirp()); err != nil {
		t.Fatalf("unsearchable: %v", err)
	}
	if err := svc.Searchable(ctx); err != nil {
		t.Fatalf("empty searchable: %v", err)
	}

	if len(disp.got) != 2 {
		t.Fatalf("dispatched %d intents, want 2", len(disp.got))
	}
	if disp.got[0].Op != intent.Upsert || disp.got[0].Len() != 2 {
		t.Errorf("searchable = %+v", disp.got[0])
	}
	if disp.got[1].Op != intent.Remove || disp.got[1].Snapshots[0].Key != "7" {
		t.Errorf("unsearchable = %+v", disp.got[1])
	}
}

func TestHandle_DispatchError(t *testing.T) {
	boom := errors.New("queue down")
	svc := New(NewDecider(NewRegistry(), catalog(t), false), &fakeDispatcher{err: boom}, zap.NewNop())

	if err := svc.Handle(context.Background(), Created(activeUser())); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
