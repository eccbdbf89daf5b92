package voucher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/bloodnet-event-driven/internal/domain/aggregate"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "Voucher"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var (
	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrInvalidStatus    = errors.New("invalid voucher status transition")
	ErrAlreadyBound     = errors.New("voucher is already bound to a blood bank")
	ErrNotBound         = errors.New("voucher is not bound to a blood bank")
	ErrWrongBank        = errors.New("voucher is bound to a different blood bank")
	ErrVoucherCompleted = errors.New("voucher is already completed")
	ErrVoucherCancelled = errors.New("voucher is already cancelled")
)

// validTransitions defines allowed state transitions. A voucher can be
// rejected any time before completion.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

// Voucher is a donor's redeemable claim for one unit of blood. Acceptance
// binds it to a blood bank and storage exactly once.
type Voucher struct {
	ID               string    `json:"id"`
	DonorID          string    `json:"donor_id"`
	BloodType        string    `json:"blood_type"`
	Code             string    `json:"code"`
	Status           Status    `json:"status"`
	BoundBloodBankID string    `json:"bound_blood_bank_id,omitempty"`
	BoundStorageID   string    `json:"bound_storage_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int       `json:"version"`
}

// Aggregate interface implementation
func (v *Voucher) GetID() string    { return v.ID }
func (v *Voucher) GetVersion() int  { return v.Version }
func (v *Voucher) SetVersion(n int) { v.Version = n }
func (v *Voucher) IsBound() bool    { return v.BoundBloodBankID != "" }

// CanTransitionTo checks if the voucher can transition to the target status
func (v *Voucher) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[v.Status]
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
func (v *Voucher) transitionError(target Status) error {
	switch {
	case v.Status == StatusCompleted:
		return ErrVoucherCompleted
	case v.Status == StatusCancelled:
		return ErrVoucherCancelled
	case v.Status == StatusProcessing && target == StatusProcessing:
		return ErrAlreadyBound
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, v.Status, target)
	}
}

// ApplyEvent applies a single event to the voucher state
func (v *Voucher) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventVoucherIssued:
		var data VoucherIssued
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.ID = data.VoucherID
		v.DonorID = data.DonorID
		v.BloodType = data.BloodType
		v.Code = data.Code
		v.Status = StatusPending
		v.CreatedAt = data.IssuedAt
		v.UpdatedAt = data.IssuedAt
	case EventVoucherAccepted:
		var data VoucherAccepted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.Status = StatusProcessing
		v.BoundBloodBankID = data.BloodBankID
		v.BoundStorageID = data.StorageID
		v.UpdatedAt = data.AcceptedAt
	case EventVoucherCompleted:
		var data VoucherCompleted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.Status = StatusCompleted
		v.UpdatedAt = data.CompletedAt
	case EventVoucherRejected:
		var data VoucherRejected
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		v.Status = StatusCancelled
		v.UpdatedAt = data.RejectedAt
	}
	v.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load rebuilds a voucher by replaying events
func (s *Service) Load(ctx context.Context, voucherID string) (*Voucher, error) {
	v, found, err := aggregate.Load(ctx, s.eventStore, voucherID, func() *Voucher {
		return &Voucher{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrVoucherNotFound
	}
	return v, nil
}

// Issue creates a PENDING voucher for a donor
func (s *Service) Issue(ctx context.Context, donorID, bloodType string) (*Voucher, error) {
	voucherID := uuid.New().String()
	code := generateCode(voucherID)
	now := time.Now()

	event := VoucherIssued{
		VoucherID: voucherID,
		DonorID:   donorID,
		BloodType: bloodType,
		Code:      code,
		IssuedAt:  now,
	}

	storedEvent, err := s.eventStore.Append(ctx, voucherID, AggregateType, EventVoucherIssued, event)
	if err != nil {
		return nil, err
	}

	return &Voucher{
		ID:        voucherID,
		DonorID:   donorID,
		BloodType: bloodType,
		Code:      code,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   storedEvent.Version,
	}, nil
}

// generateCode derives the short code operators read back over the counter
func generateCode(voucherID string) string {
	return "BV-" + strings.ToUpper(strings.ReplaceAll(voucherID, "-", "")[:8])
}

// Accept binds a PENDING voucher to a blood bank and storage. The binding is
// set exactly once; accepting a bound voucher fails with ErrAlreadyBound.
// The caller deducts the unit from the bank's ledger before calling Accept
// and compensates on ErrVersionConflict.
func (s *Service) Accept(ctx context.Context, voucherID, bloodBankID, storageID string) (*Voucher, error) {
	v, err := s.Load(ctx, voucherID)
	if err != nil {
		return nil, err
	}

	if v.IsBound() {
		return nil, ErrAlreadyBound
	}
	if !v.CanTransitionTo(StatusProcessing) {
		return nil, v.transitionError(StatusProcessing)
	}

	event := VoucherAccepted{
		VoucherID:   voucherID,
		BloodBankID: bloodBankID,
		StorageID:   storageID,
		AcceptedAt:  time.Now(),
	}

	storedEvent, err := s.eventStore.AppendExpected(ctx, voucherID, AggregateType, EventVoucherAccepted, event, v.Version)
	if err != nil {
		return nil, err
	}

	if err := v.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, v, AggregateType); err != nil {
		log.Printf("[Voucher] Failed to create snapshot for voucher %s: %v", v.ID, err)
	}

	return v, nil
}

// Complete finishes a bound voucher. Only the bound blood bank may complete
// it.
func (s *Service) Complete(ctx context.Context, voucherID, bloodBankID string) error {
	v, err := s.Load(ctx, voucherID)
	if err != nil {
		return err
	}

	if !v.CanTransitionTo(StatusCompleted) {
		return v.transitionError(StatusCompleted)
	}
	if !v.IsBound() {
		return ErrNotBound
	}
	if v.BoundBloodBankID != bloodBankID {
		return ErrWrongBank
	}

	event := VoucherCompleted{
		VoucherID:   voucherID,
		BloodBankID: bloodBankID,
		CompletedAt: time.Now(),
	}

	storedEvent, err := s.eventStore.AppendExpected(ctx, voucherID, AggregateType, EventVoucherCompleted, event, v.Version)
	if err != nil {
		return err
	}

	if err := v.ApplyEvent(*storedEvent); err != nil {
		return err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, v, AggregateType); err != nil {
		log.Printf("[Voucher] Failed to create snapshot for voucher %s: %v", v.ID, err)
	}

	return nil
}

// Reject cancels a voucher before completion and returns the voucher so the
// caller can restore stock if it was bound
func (s *Service) Reject(ctx context.Context, voucherID, reason string) (*Voucher, error) {
	v, err := s.Load(ctx, voucherID)
	if err != nil {
		return nil, err
	}

	if !v.CanTransitionTo(StatusCancelled) {
		return nil, v.transitionError(StatusCancelled)
	}

	event := VoucherRejected{
		VoucherID:  voucherID,
		Reason:     reason,
		RejectedAt: time.Now(),
	}

	storedEvent, err := s.eventStore.AppendExpected(ctx, voucherID, AggregateType, EventVoucherRejected, event, v.Version)
	if err != nil {
		return nil, err
	}

	if err := v.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, v, AggregateType); err != nil {
		log.Printf("[Voucher] Failed to create snapshot for voucher %s: %v", v.ID, err)
	}

	return v, nil
}
