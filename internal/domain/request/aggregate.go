package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/bloodnet-event-driven/internal/domain/aggregate"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "BloodRequest"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusFulfilled  Status = "FULFILLED"
	StatusCancelled  Status = "CANCELLED"
)

var (
	ErrRequestNotFound  = errors.New("blood request not found")
	ErrEmptyRequest     = errors.New("request must have at least one item")
	ErrInvalidStatus    = errors.New("invalid request status transition")
	ErrRequestFulfilled = errors.New("request is already fulfilled")
	ErrRequestCancelled = errors.New("request is already cancelled")
	ErrNotProcessing    = errors.New("request must be accepted before fulfillment")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusFulfilled, StatusCancelled},
	StatusFulfilled:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

// Request is a hospital's blood request aggregate
type Request struct {
	ID            string    `json:"id"`
	HospitalID    string    `json:"hospital_id"`
	BloodSourceID string    `json:"blood_source_id"`
	Items         []Item    `json:"items"`
	RequestDate   time.Time `json:"request_date"`
	DateNeeded    time.Time `json:"date_needed"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

// Aggregate interface implementation
func (r *Request) GetID() string    { return r.ID }
func (r *Request) GetVersion() int  { return r.Version }
func (r *Request) SetVersion(v int) { r.Version = v }

// CanTransitionTo checks if the request can transition to the target status
func (r *Request) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[r.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func (r *Request) transitionError(target Status) error {
	switch {
	case r.Status == StatusFulfilled:
		return ErrRequestFulfilled
	case r.Status == StatusCancelled:
		return ErrRequestCancelled
	case r.Status == StatusPending && target == StatusFulfilled:
		return ErrNotProcessing
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, r.Status, target)
	}
}

// Draft returns the request as a validator draft, for re-validation at the
// acceptance edge
func (r *Request) Draft() Draft {
	return Draft{
		HospitalID:    r.HospitalID,
		BloodSourceID: r.BloodSourceID,
		Items:         r.Items,
		RequestDate:   r.RequestDate,
		DateNeeded:    r.DateNeeded,
	}
}

// ApplyEvent applies a single event to the request state
func (r *Request) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventRequestSubmitted:
		var data RequestSubmitted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		r.ID = data.RequestID
		r.HospitalID = data.HospitalID
		r.BloodSourceID = data.BloodSourceID
		r.Items = data.Items
		r.RequestDate = data.RequestDate
		r.DateNeeded = data.DateNeeded
		r.Status = StatusPending
		r.CreatedAt = data.SubmittedAt
		r.UpdatedAt = data.SubmittedAt
	case EventRequestAccepted:
		var data RequestAccepted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		r.Status = StatusProcessing
		r.UpdatedAt = data.AcceptedAt
	case EventRequestFulfilled:
		var data RequestFulfilled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		r.Status = StatusFulfilled
		r.UpdatedAt = data.FulfilledAt
	case EventRequestCancelled:
		var data RequestCancelled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		r.Status = StatusCancelled
		r.UpdatedAt = data.CancelledAt
	}
	r.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load rebuilds a request by replaying events
func (s *Service) Load(ctx context.Context, requestID string) (*Request, error) {
	req, found, err := aggregate.Load(ctx, s.eventStore, requestID, func() *Request {
		return &Request{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// Submit records a new request in PENDING state. Rule validation against
// stock and ceilings happens before this is called; Submit only guards the
// structural minimum.
func (s *Service) Submit(ctx context.Context, hospitalID, bloodSourceID string, items []Item, requestDate, dateNeeded time.Time) (*Request, error) {
	if len(items) == 0 {
		return nil, ErrEmptyRequest
	}

	requestID := uuid.New().String()
	now := time.Now()

	event := RequestSubmitted{
		RequestID:     requestID,
		HospitalID:    hospitalID,
		BloodSourceID: bloodSourceID,
		Items:         items,
		RequestDate:   requestDate,
		DateNeeded:    dateNeeded,
		SubmittedAt:   now,
	}

	storedEvent, err := s.eventStore.Append(ctx, requestID, AggregateType, EventRequestSubmitted, event)
	if err != nil {
		return nil, err
	}

	version := 0
	if storedEvent != nil {
		version = storedEvent.Version
	}

	req := &Request{
		ID:            requestID,
		HospitalID:    hospitalID,
		BloodSourceID: bloodSourceID,
		Items:         items,
		RequestDate:   requestDate,
		DateNeeded:    dateNeeded,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       version,
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, req, AggregateType); err != nil {
		log.Printf("[Request] Failed to create snapshot for request %s: %v", req.ID, err)
	}

	return req, nil
}

// Accept moves a request from PENDING to PROCESSING
func (s *Service) Accept(ctx context.Context, requestID string) error {
	return s.transition(ctx, requestID, StatusProcessing, func(r *Request) (string, any) {
		return EventRequestAccepted, RequestAccepted{
			RequestID:  requestID,
			AcceptedAt: time.Now(),
		}
	})
}

// Fulfill moves a request from PROCESSING to its terminal FULFILLED state
func (s *Service) Fulfill(ctx context.Context, requestID, deliveryID string) error {
	return s.transition(ctx, requestID, StatusFulfilled, func(r *Request) (string, any) {
		return EventRequestFulfilled, RequestFulfilled{
			RequestID:   requestID,
			DeliveryID:  deliveryID,
			FulfilledAt: time.Now(),
		}
	})
}

// Cancel moves a request to its terminal CANCELLED state
func (s *Service) Cancel(ctx context.Context, requestID, reason string) error {
	return s.transition(ctx, requestID, StatusCancelled, func(r *Request) (string, any) {
		return EventRequestCancelled, RequestCancelled{
			RequestID:   requestID,
			Reason:      reason,
			CancelledAt: time.Now(),
		}
	})
}

func (s *Service) transition(ctx context.Context, requestID string, target Status, makeEvent func(*Request) (string, any)) error {
	req, err := s.Load(ctx, requestID)
	if err != nil {
		return err
	}

	if !req.CanTransitionTo(target) {
		return req.transitionError(target)
	}

	eventType, data := makeEvent(req)
	storedEvent, err := s.eventStore.AppendExpected(ctx, requestID, AggregateType, eventType, data, req.Version)
	if err != nil {
		return err
	}

	if err := req.ApplyEvent(*storedEvent); err != nil {
		return err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, req, AggregateType); err != nil {
		log.Printf("[Request] Failed to create snapshot for request %s: %v", req.ID, err)
	}

	return nil
}
