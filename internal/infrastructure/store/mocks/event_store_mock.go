package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockEventStore is a mock implementation of EventStoreInterface for testing
type MockEventStore struct {
	mu        sync.RWMutex
	events    map[string][]store.Event
	snapshots map[string]*store.Snapshot

	// For tracking calls in tests
	AppendCalls       []AppendCall
	AppendErr         error
	AppendCallback    func(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error)
	SaveSnapshotCalls []SaveSnapshotCall
}

// SaveSnapshotCall records a SaveSnapshot invocation
type SaveSnapshotCall struct {
	Snapshot *store.Snapshot
}

// AppendCall records parameters passed to Append / AppendExpected
type AppendCall struct {
	AggregateID     string
	AggregateType   string
	EventType       string
	Data            any
	ExpectedVersion int // -1 for unconditional appends
}

// NewMockEventStore creates a new MockEventStore
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		events:      make(map[string][]store.Event),
		snapshots:   make(map[string]*store.Snapshot),
		AppendCalls: make([]AppendCall, 0),
	}
}

// Append stores an event in memory
func (m *MockEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
	return m.append(ctx, aggregateID, aggregateType, eventType, data, -1)
}

// AppendExpected stores an event only if the stream is at expectedVersion
func (m *MockEventStore) AppendExpected(ctx context.Context, aggregateID, aggregateType, eventType string, data any, expectedVersion int) (*store.Event, error) {
	return m.append(ctx, aggregateID, aggregateType, eventType, data, expectedVersion)
}

func (m *MockEventStore) append(ctx context.Context, aggregateID, aggregateType, eventType string, data any, expectedVersion int) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Record the call
	m.AppendCalls = append(m.AppendCalls, AppendCall{
		AggregateID:     aggregateID,
		AggregateType:   aggregateType,
		EventType:       eventType,
		Data:            data,
		ExpectedVersion: expectedVersion,
	})

	// Use callback if provided
	if m.AppendCallback != nil {
		return m.AppendCallback(ctx, aggregateID, aggregateType, eventType, data)
	}

	// Return error if set
	if m.AppendErr != nil {
		return nil, m.AppendErr
	}

	if expectedVersion >= 0 && len(m.events[aggregateID]) != expectedVersion {
		return nil, store.ErrVersionConflict
	}

	// Create event
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	version := len(m.events[aggregateID]) + 1
	event := store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       version,
	}

	m.events[aggregateID] = append(m.events[aggregateID], event)
	return &event, nil
}

// GetEvents returns events for an aggregate
func (m *MockEventStore) GetEvents(aggregateID string) []store.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events[aggregateID]
}

// GetEventsFromVersion returns events with a version greater than the given one
func (m *MockEventStore) GetEventsFromVersion(ctx context.Context, aggregateID string, version int) []store.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []store.Event
	for _, e := range m.events[aggregateID] {
		if e.Version > version {
			events = append(events, e)
		}
	}
	return events
}

// GetAllEvents returns all events
func (m *MockEventStore) GetAllEvents() []store.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []store.Event
	for _, events := range m.events {
		all = append(all, events...)
	}
	return all
}

// GetSnapshot returns the stored snapshot for an aggregate, or nil
func (m *MockEventStore) GetSnapshot(ctx context.Context, aggregateID string) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[aggregateID], nil
}

// SaveSnapshot stores a snapshot
func (m *MockEventStore) SaveSnapshot(ctx context.Context, snapshot *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveSnapshotCalls = append(m.SaveSnapshotCalls, SaveSnapshotCall{Snapshot: snapshot})
	m.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

// SetSnapshot sets a snapshot directly for testing
func (m *MockEventStore) SetSnapshot(snapshot *store.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.AggregateID] = snapshot
}

// Reset clears all events and recorded calls
func (m *MockEventStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string][]store.Event)
	m.snapshots = make(map[string]*store.Snapshot)
	m.AppendCalls = make([]AppendCall, 0)
	m.SaveSnapshotCalls = nil
	m.AppendErr = nil
	m.AppendCallback = nil
}

// SetEvents sets events directly for testing
func (m *MockEventStore) SetEvents(aggregateID string, events []store.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[aggregateID] = events
}

// AddEvent adds a single event for testing
func (m *MockEventStore) AddEvent(aggregateID, aggregateType, eventType string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	version := len(m.events[aggregateID]) + 1
	event := store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       version,
	}

	m.events[aggregateID] = append(m.events[aggregateID], event)
	return nil
}
