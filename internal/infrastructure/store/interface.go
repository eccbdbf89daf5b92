package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by AppendExpected when another writer
// appended to the stream first. The whole operation is safe to retry.
var ErrVersionConflict = errors.New("aggregate version conflict")

// anyVersion disables the version precondition on append
const anyVersion = -1

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	AppendExpected(ctx context.Context, aggregateID, aggregateType, eventType string, data any, expectedVersion int) (*Event, error)
	GetEvents(aggregateID string) []Event
	GetEventsFromVersion(ctx context.Context, aggregateID string, version int) []Event
	GetAllEvents() []Event
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}
