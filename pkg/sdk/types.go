package searchsync

import (
	"context"
	"iter"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/model"
	"github.com/kailas-cloud/searchsync/internal/domain/model/field"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
	"github.com/kailas-cloud/searchsync/internal/usecase/changesync"
	"github.com/kailas-cloud/searchsync/internal/usecase/dispatch"
)

// Record is an indexable entity. Rows built with NewRow satisfy it.
type Record = domain.Record

// Identity addresses one indexed record.
type Identity = domain.Identity

// Model describes one indexable model type.
type Model = model.Model

// ModelOptions carries the optional parts of a model definition.
type ModelOptions = model.Options

// Row is a store row bound to its model.
type Row = model.Row

// Field is a typed index field.
type Field = field.Field

// FieldType is the indexing type of a field.
type FieldType = field.Type

// Field type constants.
const (
	FieldText    FieldType = field.Text
	FieldTag     FieldType = field.Tag
	FieldNumeric FieldType = field.Numeric
	FieldBool    FieldType = field.Bool
)

// Builder accumulates a search request.
type Builder = request.Builder

// Request is a built, read-only search request.
type Request = request.Request

// Hook fully owns a backend call for raw requests.
type Hook = request.Hook

// StoreQuery collects SQL conditions that narrow the records a search loads.
type StoreQuery = request.StoreQuery

// Sort directions.
const (
	Asc  = request.Asc
	Desc = request.Desc
)

// Item is a live record with its relevance metadata.
type Item = result.Item

// Page is one page of reconciled results.
type Page = result.Page

// RawResult is the backend result before reconciliation.
type RawResult = result.Raw

// Event is one lifecycle transition of a record.
type Event = changesync.Event

// EventKind is a record lifecycle transition.
type EventKind = changesync.Kind

// Lifecycle transitions.
const (
	EventCreated  = changesync.KindCreated
	EventUpdated  = changesync.KindUpdated
	EventTrashed  = changesync.KindTrashed
	EventRestored = changesync.KindRestored
	EventDeleted  = changesync.KindDeleted
)

// EventRef is a lifecycle transition identified by key only. The record is
// loaded from the record store before the decision is made.
type EventRef = changesync.Ref

// Predicate decides from the changed columns whether an update needs reindexing.
type Predicate = changesync.Predicate

// Tx holds units of work until the surrounding transaction commits.
type Tx = dispatch.Tx

// Publisher sends encoded units of work to a message bus.
type Publisher = dispatch.Publisher

// Subscriber delivers bus messages to a handler.
type Subscriber = dispatch.Subscriber

// ScanMode selects which rows a scan yields.
type ScanMode = request.SoftDeleteMode

// Scan modes.
const (
	ScanDefault     = request.SoftDeleteNone
	ScanWithTrashed = request.WithTrashed
	ScanOnlyTrashed = request.OnlyTrashed
)

// RecordStore loads records for reconciliation, import and async units.
type RecordStore interface {
	FetchByKeys(ctx context.Context, model string, keys []string) ([]Record, error)
	CursorByKeys(ctx context.Context, model string, keys []string) iter.Seq2[Record, error]
	Scan(ctx context.Context, model string, mode ScanMode) iter.Seq2[Record, error]
}

// NewModel validates and builds a model descriptor.
func NewModel(name string, opts ModelOptions) (*Model, error) {
	return model.New(name, opts)
}

// NewField builds a typed index field.
func NewField(name string, ft FieldType, sortable bool) (Field, error) {
	return field.New(name, ft, sortable)
}

// NewRow binds column values to m.
func NewRow(m *Model, attrs map[string]any) *Row {
	return model.NewRow(m, attrs)
}

// Created reports a new record.
func Created(rec Record) Event { return changesync.Created(rec) }

// Updated reports a saved record. wasSearchable is its searchability before the save.
func Updated(rec Record, wasSearchable bool, changed ...string) Event {
	return changesync.Updated(rec, wasSearchable, changed...)
}

// Trashed reports a soft delete.
func Trashed(rec Record, wasSearchable bool) Event { return changesync.Trashed(rec, wasSearchable) }

// Restored reports a restore of a trashed record.
func Restored(rec Record) Event { return changesync.Restored(rec) }

// Deleted reports a hard delete.
func Deleted(rec Record) Event { return changesync.Deleted(rec) }
