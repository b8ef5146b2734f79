package changesync

import (
	"fmt"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// Kind is a record lifecycle transition.
type Kind int

// Lifecycle transitions.
const (
	KindCreated Kind = iota
	KindUpdated
	KindTrashed
	KindRestored
	KindDeleted
)

func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindUpdated:
		return "updated"
	case KindTrashed:
		return "trashed"
	case KindRestored:
		return "restored"
	case KindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is one lifecycle transition of a record.
type Event struct {
	Kind   Kind
	Record domain.Record
	// WasSearchable is the record's searchability before the transition.
	WasSearchable bool
	// Changed lists the columns an update touched.
	Changed []string
	// Restoring marks the save that accompanies a restore.
	Restoring bool
}

// Created reports a new record.
func Created(rec domain.Record) Event {
	return Event{Kind: KindCreated, Record: rec}
}

// Updated reports a saved record and the columns that changed.
func Updated(rec domain.Record, wasSearchable bool, changed ...string) Event {
	return Event{Kind: KindUpdated, Record: rec, WasSearchable: wasSearchable, Changed: changed}
}

// Trashed reports a soft delete.
func Trashed(rec domain.Record, wasSearchable bool) Event {
	return Event{Kind: KindTrashed, Record: rec, WasSearchable: wasSearchable}
}

// Restored reports a record brought back from the trash.
func Restored(rec domain.Record) Event {
	return Event{Kind: KindRestored, Record: rec}
}

// Deleted reports a hard delete.
func Deleted(rec domain.Record) Event {
	return Event{Kind: KindDeleted, Record: rec}
}

// AsRestoring marks an update as the save issued by a restore.
func (e Event) AsRestoring() Event {
	e.Restoring = true
	return e
}

// ParseKind parses a lifecycle transition name.
func ParseKind(s string) (Kind, error) {
	for k := KindCreated; k <= KindDeleted; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}
