package delivery

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

const AggregateType = "Delivery"

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusComplete  Status = "COMPLETE"
)

var (
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrInvalidStatus    = errors.New("invalid delivery status transition")
	ErrDeliveryComplete = errors.New("delivery is already complete")
	ErrNotInTransit     = errors.New("delivery must be in transit before completion")
)

// validTransitions defines allowed state transitions. COMPLETE is only
// reachable from IN_TRANSIT.
var validTransitions = map[Status][]Status{
	StatusScheduled: {StatusInTransit},
	StatusInTransit: {StatusComplete},
	StatusComplete:  {}, // terminal state
}

// Delivery tracks one shipment of a fulfilled blood request
type Delivery struct {
	ID            string     `json:"id"`
	RequestID     string     `json:"request_id"`
	Status        Status     `json:"status"`
	ScheduledDate time.Time  `json:"scheduled_date"`
	DepartedAt    *time.Time `json:"departed_at,omitempty"`
	DeliveredDate *time.Time `json:"delivered_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Version       int        `json:"version"`
}

// Aggregate interface implementation
func (d *Delivery) GetID() string    { return d.ID }
func (d *Delivery) GetVersion() int  { return d.Version }
func (d *Delivery) SetVersion(v int) { d.Version = v }

// CanTransitionTo checks if the delivery can transition to the target status
func (d *Delivery) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[d.Status]
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
func (d *Delivery) transitionError(target Status) error {
	switch {
	case d.Status == StatusComplete:
		return ErrDeliveryComplete
	case d.Status == StatusScheduled && target == StatusComplete:
		return ErrNotInTransit
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, d.Status, target)
	}
}

// ApplyEvent applies a single event to the delivery state
func (d *Delivery) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventDeliveryScheduled:
		var data DeliveryScheduled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		d.ID = data.DeliveryID
		d.RequestID = data.RequestID
		d.Status = StatusScheduled
		d.ScheduledDate = data.ScheduledDate
		d.CreatedAt = data.ScheduledAt
		d.UpdatedAt = data.ScheduledAt
	case EventDeliveryDeparted:
		var data DeliveryDeparted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		d.Status = StatusInTransit
		t := data.DepartedAt
		d.DepartedAt = &t
		d.UpdatedAt = data.DepartedAt
	case EventDeliveryCompleted:
		var data DeliveryCompleted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		d.Status = StatusComplete
		t := data.DeliveredAt
		d.DeliveredDate = &t
		d.UpdatedAt = data.DeliveredAt
	}
	d.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load rebuilds a delivery by replaying events
func (s *Service) Load(ctx context.Context, deliveryID string) (*Delivery, error) {
	d, found, err := aggregate.Load(ctx, s.eventStore, deliveryID, func() *Delivery {
		return &Delivery{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDeliveryNotFound
	}
	return d, nil
}

// Schedule creates a delivery for a request. The caller checks that the
// owning request is in PROCESSING.
func (s *Service) Schedule(ctx context.Context, requestID string, scheduledDate time.Time) (*Delivery, error) {
	deliveryID := uuid.New().String()
	now := time.Now()

	event := DeliveryScheduled{
		DeliveryID:    deliveryID,
		RequestID:     requestID,
		ScheduledDate: scheduledDate,
		ScheduledAt:   now,
	}

	storedEvent, err := s.eventStore.Append(ctx, deliveryID, AggregateType, EventDeliveryScheduled, event)
	if err != nil {
		return nil, err
	}

	return &Delivery{
		ID:            deliveryID,
		RequestID:     requestID,
		Status:        StatusScheduled,
		ScheduledDate: scheduledDate,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       storedEvent.Version,
	}, nil
}

// Depart marks a delivery as having left the blood source
func (s *Service) Depart(ctx context.Context, deliveryID string) error {
	_, err := s.transition(ctx, deliveryID, StatusInTransit, func(d *Delivery) (string, any) {
		return EventDeliveryDeparted, DeliveryDeparted{
			DeliveryID: deliveryID,
			DepartedAt: time.Now(),
		}
	})
	return err
}

// Complete marks receipt by the hospital and returns the delivery so the
// caller can fulfill the owning request
func (s *Service) Complete(ctx context.Context, deliveryID string) (*Delivery, error) {
	return s.transition(ctx, deliveryID, StatusComplete, func(d *Delivery) (string, any) {
		return EventDeliveryCompleted, DeliveryCompleted{
			DeliveryID:  deliveryID,
			RequestID:   d.RequestID,
			DeliveredAt: time.Now(),
		}
	})
}

func (s *Service) transition(ctx context.Context, deliveryID string, target Status, makeEvent func(*Delivery) (string, any)) (*Delivery, error) {
	d, err := s.Load(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	if !d.CanTransitionTo(target) {
		return nil, d.transitionError(target)
	}

	eventType, data := makeEvent(d)
	storedEvent, err := s.eventStore.AppendExpected(ctx, deliveryID, AggregateType, eventType, data, d.Version)
	if err != nil {
		return nil, err
	}

	if err := d.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, d, AggregateType); err != nil {
		log.Printf("[Delivery] Failed to create snapshot for delivery %s: %v", d.ID, err)
	}

	return d, nil
}
