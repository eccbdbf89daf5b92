package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/bloodnet-event-driven/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeliveryService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func seedDelivery(es *mocks.MockEventStore, deliveryID, requestID string) {
	now := time.Now()
	_ = es.AddEvent(deliveryID, AggregateType, EventDeliveryScheduled, DeliveryScheduled{
		DeliveryID:    deliveryID,
		RequestID:     requestID,
		ScheduledDate: now.Add(24 * time.Hour),
		ScheduledAt:   now,
	})
}

// ============================================
// Schedule Tests
// ============================================

func TestService_Schedule_Success(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	scheduledDate := time.Now().Add(24 * time.Hour)
	d, err := service.Schedule(ctx, "req-1", scheduledDate)

	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "req-1", d.RequestID)
	assert.Equal(t, StatusScheduled, d.Status)
	assert.Equal(t, scheduledDate, d.ScheduledDate)
	assert.Nil(t, d.DepartedAt)
	assert.Nil(t, d.DeliveredDate)

	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventDeliveryScheduled, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

// ============================================
// Depart Tests - State Transitions
// ============================================

func TestService_Depart_FromScheduled(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	seedDelivery(eventStore, "del-1", "req-1")

	err := service.Depart(ctx, "del-1")

	require.NoError(t, err)
	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventDeliveryDeparted, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, 1, eventStore.AppendCalls[0].ExpectedVersion)
}

func TestService_Depart_NotFound(t *testing.T) {
	service, _ := newTestDeliveryService()
	ctx := context.Background()

	err := service.Depart(ctx, "no-such-delivery")

	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}

func TestService_Depart_AlreadyInTransit(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	seedDelivery(eventStore, "del-1", "req-1")
	_ = eventStore.AddEvent("del-1", AggregateType, EventDeliveryDeparted, DeliveryDeparted{DeliveryID: "del-1", DepartedAt: time.Now()})

	err := service.Depart(ctx, "del-1")

	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Depart_AlreadyComplete(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	seedDelivery(eventStore, "del-1", "req-1")
	_ = eventStore.AddEvent("del-1", AggregateType, EventDeliveryDeparted, DeliveryDeparted{DeliveryID: "del-1", DepartedAt: time.Now()})
	_ = eventStore.AddEvent("del-1", AggregateType, EventDeliveryCompleted, DeliveryCompleted{DeliveryID: "del-1", RequestID: "req-1", DeliveredAt: time.Now()})

	err := service.Depart(ctx, "del-1")

	assert.ErrorIs(t, err, ErrDeliveryComplete)
}

// ============================================
// Complete Tests - State Transitions
// ============================================

func TestService_Complete_FromInTransit(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	seedDelivery(eventStore, "del-1", "req-1")
	_ = eventStore.AddEvent("del-1", AggregateType, EventDeliveryDeparted, DeliveryDeparted{DeliveryID: "del-1", DepartedAt: time.Now()})

	d, err := service.Complete(ctx, "del-1")

	require.NoError(t, err)
	assert.Equal(t, StatusComplete, d.Status)
	assert.Equal(t, "req-1", d.RequestID)
	require.NotNil(t, d.DeliveredDate)

	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventDeliveryCompleted, eventStore.AppendCalls[0].EventType)
	// The event carries the owning request so the caller can fulfill it
	data := eventStore.AppendCalls[0].Data.(DeliveryCompleted)
	assert.Equal(t, "req-1", data.RequestID)
}

func TestService_Complete_FromScheduled(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	seedDelivery(eventStore, "del-1", "req-1")

	d, err := service.Complete(ctx, "del-1")

	assert.ErrorIs(t, err, ErrNotInTransit)
	assert.Nil(t, d)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_Complete_AlreadyComplete(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	seedDelivery(eventStore, "del-1", "req-1")
	_ = eventStore.AddEvent("del-1", AggregateType, EventDeliveryDeparted, DeliveryDeparted{DeliveryID: "del-1", DepartedAt: time.Now()})
	_ = eventStore.AddEvent("del-1", AggregateType, EventDeliveryCompleted, DeliveryCompleted{DeliveryID: "del-1", RequestID: "req-1", DeliveredAt: time.Now()})

	d, err := service.Complete(ctx, "del-1")

	assert.ErrorIs(t, err, ErrDeliveryComplete)
	assert.Nil(t, d)
}

func TestService_Complete_NotFound(t *testing.T) {
	service, _ := newTestDeliveryService()
	ctx := context.Background()

	_, err := service.Complete(ctx, "no-such-delivery")

	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}

// ============================================
// State Transition Matrix Tests
// ============================================

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusScheduled, StatusInTransit, true},
		{StatusScheduled, StatusComplete, false},
		{StatusInTransit, StatusComplete, true},
		{StatusInTransit, StatusScheduled, false},
		{StatusComplete, StatusScheduled, false},
		{StatusComplete, StatusInTransit, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			d := &Delivery{Status: tt.from}
			assert.Equal(t, tt.allowed, d.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// Full Delivery Lifecycle Test
// ============================================

func TestDeliveryLifecycle_HappyPath(t *testing.T) {
	service, _ := newTestDeliveryService()
	ctx := context.Background()

	d, err := service.Schedule(ctx, "req-1", time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	require.NoError(t, service.Depart(ctx, d.ID))

	completed, err := service.Complete(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, completed.Status)

	loaded, err := service.Load(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, loaded.Status)
	assert.NotNil(t, loaded.DepartedAt)
	assert.NotNil(t, loaded.DeliveredDate)
}

// ============================================
// Error Path Tests
// ============================================

func TestService_Schedule_EventStoreError(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	eventStore.AppendErr = errors.New("database error")

	d, err := service.Schedule(ctx, "req-1", time.Now())

	assert.Error(t, err)
	assert.Nil(t, d)
}

func TestService_Depart_EventStoreError(t *testing.T) {
	service, eventStore := newTestDeliveryService()
	ctx := context.Background()

	seedDelivery(eventStore, "del-1", "req-1")
	eventStore.AppendErr = errors.New("database error")

	err := service.Depart(ctx, "del-1")

	assert.Error(t, err)
}
