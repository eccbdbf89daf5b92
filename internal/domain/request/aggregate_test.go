package request

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequestService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func seedRequest(es *mocks.MockEventStore, requestID string) {
	now := time.Now()
	_ = es.AddEvent(requestID, AggregateType, EventRequestSubmitted, RequestSubmitted{
		RequestID:     requestID,
		HospitalID:    "hospital-1",
		BloodSourceID: "bank-1",
		Items:         []Item{{BloodType: "O+", UnitsRequested: 3}},
		RequestDate:   now,
		DateNeeded:    now.Add(48 * time.Hour),
		SubmittedAt:   now,
	})
}

// ============================================
// Submit Tests
// ============================================

func TestService_Submit_Success(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	now := time.Now()
	items := []Item{
		{BloodType: "O+", UnitsRequested: 3},
		{BloodType: "A+", UnitsRequested: 2},
	}

	req, err := service.Submit(ctx, "hospital-1", "bank-1", items, now, now.Add(48*time.Hour))

	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "hospital-1", req.HospitalID)
	assert.Equal(t, "bank-1", req.BloodSourceID)
	assert.Equal(t, items, req.Items)
	assert.Equal(t, StatusPending, req.Status)

	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventRequestSubmitted, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestService_Submit_EmptyItems(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	req, err := service.Submit(ctx, "hospital-1", "bank-1", nil, time.Now(), time.Now())

	assert.ErrorIs(t, err, ErrEmptyRequest)
	assert.Nil(t, req)
	assert.Empty(t, eventStore.AppendCalls)
}

// ============================================
// Accept Tests - State Transitions
// ============================================

func TestService_Accept_FromPending(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")

	err := service.Accept(ctx, "req-1")

	require.NoError(t, err)
	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventRequestAccepted, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, 1, eventStore.AppendCalls[0].ExpectedVersion)
}

func TestService_Accept_NotFound(t *testing.T) {
	service, _ := newTestRequestService()
	ctx := context.Background()

	err := service.Accept(ctx, "no-such-request")

	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestService_Accept_AlreadyFulfilled(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestAccepted, RequestAccepted{RequestID: "req-1"})
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestFulfilled, RequestFulfilled{RequestID: "req-1"})

	err := service.Accept(ctx, "req-1")

	assert.ErrorIs(t, err, ErrRequestFulfilled)
}

func TestService_Accept_Cancelled(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestCancelled, RequestCancelled{RequestID: "req-1"})

	err := service.Accept(ctx, "req-1")

	assert.ErrorIs(t, err, ErrRequestCancelled)
}

func TestService_Accept_AlreadyProcessing(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestAccepted, RequestAccepted{RequestID: "req-1"})

	err := service.Accept(ctx, "req-1")

	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// ============================================
// Fulfill Tests - State Transitions
// ============================================

func TestService_Fulfill_FromProcessing(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestAccepted, RequestAccepted{RequestID: "req-1"})

	err := service.Fulfill(ctx, "req-1", "delivery-1")

	require.NoError(t, err)
	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventRequestFulfilled, eventStore.AppendCalls[0].EventType)
	data := eventStore.AppendCalls[0].Data.(RequestFulfilled)
	assert.Equal(t, "delivery-1", data.DeliveryID)
}

func TestService_Fulfill_FromPending(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")

	err := service.Fulfill(ctx, "req-1", "delivery-1")

	assert.ErrorIs(t, err, ErrNotProcessing)
}

func TestService_Fulfill_AlreadyFulfilled(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestAccepted, RequestAccepted{RequestID: "req-1"})
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestFulfilled, RequestFulfilled{RequestID: "req-1"})

	err := service.Fulfill(ctx, "req-1", "delivery-2")

	assert.ErrorIs(t, err, ErrRequestFulfilled)
}

// ============================================
// Cancel Tests - State Transitions
// ============================================

func TestService_Cancel_FromPending(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")

	err := service.Cancel(ctx, "req-1", "no longer needed")

	require.NoError(t, err)
	data := eventStore.AppendCalls[0].Data.(RequestCancelled)
	assert.Equal(t, "no longer needed", data.Reason)
}

func TestService_Cancel_FromProcessing(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestAccepted, RequestAccepted{RequestID: "req-1"})

	err := service.Cancel(ctx, "req-1", "patient transferred")

	require.NoError(t, err)
}

func TestService_Cancel_FromFulfilled(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestAccepted, RequestAccepted{RequestID: "req-1"})
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestFulfilled, RequestFulfilled{RequestID: "req-1"})

	err := service.Cancel(ctx, "req-1", "too late")

	assert.ErrorIs(t, err, ErrRequestFulfilled)
}

func TestService_Cancel_AlreadyCancelled(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	_ = eventStore.AddEvent("req-1", AggregateType, EventRequestCancelled, RequestCancelled{RequestID: "req-1"})

	err := service.Cancel(ctx, "req-1", "duplicate cancel")

	assert.ErrorIs(t, err, ErrRequestCancelled)
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
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusFulfilled, false},
		{StatusProcessing, StatusFulfilled, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		{StatusFulfilled, StatusCancelled, false},
		{StatusFulfilled, StatusProcessing, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusCancelled, StatusFulfilled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			r := &Request{Status: tt.from}
			assert.Equal(t, tt.allowed, r.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// Event Application
// ============================================

// Transitions fold the freshly stored event back into the aggregate, so the
// in-memory state has to come out of the event payload, timestamps included.
func TestRequest_ApplyEvent_FoldsStoredEvent(t *testing.T) {
	acceptedAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	data, err := json.Marshal(RequestAccepted{RequestID: "req-1", AcceptedAt: acceptedAt})
	require.NoError(t, err)

	r := &Request{ID: "req-1", Status: StatusPending, Version: 1}
	err = r.ApplyEvent(store.Event{
		AggregateID: "req-1",
		EventType:   EventRequestAccepted,
		Data:        data,
		Version:     2,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, r.Status)
	assert.Equal(t, 2, r.Version)
	assert.True(t, r.UpdatedAt.Equal(acceptedAt))

	cancelledAt := time.Now().Truncate(time.Second)
	data, err = json.Marshal(RequestCancelled{RequestID: "req-1", Reason: "shortage", CancelledAt: cancelledAt})
	require.NoError(t, err)

	err = r.ApplyEvent(store.Event{
		AggregateID: "req-1",
		EventType:   EventRequestCancelled,
		Data:        data,
		Version:     3,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Equal(t, 3, r.Version)
	assert.True(t, r.UpdatedAt.Equal(cancelledAt))
}

// ============================================
// Full Request Lifecycle Tests
// ============================================

func TestRequestLifecycle_HappyPath(t *testing.T) {
	service, _ := newTestRequestService()
	ctx := context.Background()

	now := time.Now()
	req, err := service.Submit(ctx, "hospital-1", "bank-1",
		[]Item{{BloodType: "O+", UnitsRequested: 3}}, now, now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)

	err = service.Accept(ctx, req.ID)
	require.NoError(t, err)

	err = service.Fulfill(ctx, req.ID, "delivery-1")
	require.NoError(t, err)

	loaded, err := service.Load(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFulfilled, loaded.Status)
}

func TestRequestLifecycle_CancelAfterAccept(t *testing.T) {
	service, _ := newTestRequestService()
	ctx := context.Background()

	now := time.Now()
	req, err := service.Submit(ctx, "hospital-1", "bank-1",
		[]Item{{BloodType: "O+", UnitsRequested: 3}}, now, now.Add(48*time.Hour))
	require.NoError(t, err)

	require.NoError(t, service.Accept(ctx, req.ID))
	require.NoError(t, service.Cancel(ctx, req.ID, "changed plans"))

	err = service.Fulfill(ctx, req.ID, "delivery-1")
	assert.ErrorIs(t, err, ErrRequestCancelled)
}

// ============================================
// Draft Round-Trip
// ============================================

func TestRequest_Draft(t *testing.T) {
	now := time.Now()
	r := &Request{
		HospitalID:    "hospital-1",
		BloodSourceID: "bank-1",
		Items:         []Item{{BloodType: "B+", UnitsRequested: 2}},
		RequestDate:   now,
		DateNeeded:    now.Add(24 * time.Hour),
	}

	draft := r.Draft()

	assert.Equal(t, r.HospitalID, draft.HospitalID)
	assert.Equal(t, r.BloodSourceID, draft.BloodSourceID)
	assert.Equal(t, r.Items, draft.Items)
	assert.Equal(t, r.RequestDate, draft.RequestDate)
	assert.Equal(t, r.DateNeeded, draft.DateNeeded)
}

// ============================================
// Error Path Tests
// ============================================

func TestService_Submit_EventStoreError(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	eventStore.AppendErr = errors.New("database error")

	req, err := service.Submit(ctx, "hospital-1", "bank-1",
		[]Item{{BloodType: "O+", UnitsRequested: 3}}, time.Now(), time.Now())

	assert.Error(t, err)
	assert.Nil(t, req)
}

func TestService_Accept_EventStoreError(t *testing.T) {
	service, eventStore := newTestRequestService()
	ctx := context.Background()

	seedRequest(eventStore, "req-1")
	eventStore.AppendErr = errors.New("database error")

	err := service.Accept(ctx, "req-1")

	assert.Error(t, err)
}
