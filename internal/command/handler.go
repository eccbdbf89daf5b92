package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/bloodnet-event-driven/internal/domain/bank"
	"github.com/example/bloodnet-event-driven/internal/domain/delivery"
	"github.com/example/bloodnet-event-driven/internal/domain/ledger"
	"github.com/example/bloodnet-event-driven/internal/domain/request"
	"github.com/example/bloodnet-event-driven/internal/domain/rewards"
	"github.com/example/bloodnet-event-driven/internal/domain/voucher"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/example/bloodnet-event-driven/internal/readmodel"
)

var (
	// ErrValidationFailed signals that the validator rejected the request;
	// the ValidationResult carries the individual violations
	ErrValidationFailed = errors.New("request validation failed")
	// ErrRequestNotReady is returned when scheduling a delivery for a
	// request that has not been accepted yet
	ErrRequestNotReady = errors.New("request must be PROCESSING to schedule a delivery")
	// ErrDeliveryExists is returned when a request already has a delivery
	ErrDeliveryExists = errors.New("request already has a delivery")
	// ErrUnknownTarget is returned for advance commands naming a state the
	// handler cannot drive to
	ErrUnknownTarget = errors.New("unknown target status")
)

type Handler struct {
	ledgerSvc   *ledger.Service
	requestSvc  *request.Service
	deliverySvc *delivery.Service
	voucherSvc  *voucher.Service
	bankSvc     *bank.Service
	rewardsSvc  *rewards.Service
	readStore   store.ReadStoreInterface
	ceilings    request.Ceilings
}

func NewHandler(
	ledgerSvc *ledger.Service,
	requestSvc *request.Service,
	deliverySvc *delivery.Service,
	voucherSvc *voucher.Service,
	bankSvc *bank.Service,
	rewardsSvc *rewards.Service,
	readStore store.ReadStoreInterface,
) *Handler {
	return &Handler{
		ledgerSvc:   ledgerSvc,
		requestSvc:  requestSvc,
		deliverySvc: deliverySvc,
		voucherSvc:  voucherSvc,
		bankSvc:     bankSvc,
		rewardsSvc:  rewardsSvc,
		readStore:   readStore,
		ceilings:    request.DefaultCeilings,
	}
}

// availabilityFor snapshots current ledger availability for every blood type
// in the draft, so the validator sees one consistent view
func (h *Handler) availabilityFor(ctx context.Context, bloodBankID string, items []request.Item) (request.Availability, error) {
	counts := make(map[string]int, len(items))
	for _, item := range items {
		if item.BloodType == "" {
			continue
		}
		if _, ok := counts[item.BloodType]; ok {
			continue
		}
		avail, err := h.ledgerSvc.Available(ctx, bloodBankID, item.BloodType)
		if err != nil {
			return nil, err
		}
		counts[item.BloodType] = avail
	}
	return func(bloodType string) int {
		return counts[bloodType]
	}, nil
}

// SubmitRequest validates a hospital request draft and records it as PENDING.
// All rule violations are collected and returned together.
func (h *Handler) SubmitRequest(ctx context.Context, cmd SubmitRequest) (*request.Request, request.ValidationResult, error) {
	draft := request.Draft{
		HospitalID:    cmd.HospitalID,
		BloodSourceID: cmd.BloodSourceID,
		Items:         cmd.Items,
		RequestDate:   cmd.RequestDate,
		DateNeeded:    cmd.DateNeeded,
	}

	available, err := h.availabilityFor(ctx, cmd.BloodSourceID, cmd.Items)
	if err != nil {
		return nil, request.ValidationResult{}, err
	}

	result := request.Validate(draft, available, h.ceilings)
	if !result.OK {
		return nil, result, ErrValidationFailed
	}

	req, err := h.requestSvc.Submit(ctx, cmd.HospitalID, cmd.BloodSourceID, cmd.Items, cmd.RequestDate, cmd.DateNeeded)
	if err != nil {
		return nil, result, err
	}
	return req, result, nil
}

// AdvanceRequest drives a request to the named status. The PENDING to
// PROCESSING edge re-runs validation against fresh availability; on failure
// the request stays PENDING and the violations are returned.
func (h *Handler) AdvanceRequest(ctx context.Context, cmd AdvanceRequest) (request.ValidationResult, error) {
	switch request.Status(cmd.TargetStatus) {
	case request.StatusProcessing:
		req, err := h.requestSvc.Load(ctx, cmd.RequestID)
		if err != nil {
			return request.ValidationResult{}, err
		}
		if !req.CanTransitionTo(request.StatusProcessing) {
			// let the aggregate produce the precise transition error
			return request.ValidationResult{}, h.requestSvc.Accept(ctx, cmd.RequestID)
		}

		available, err := h.availabilityFor(ctx, req.BloodSourceID, req.Items)
		if err != nil {
			return request.ValidationResult{}, err
		}
		result := request.Validate(req.Draft(), available, h.ceilings)
		if !result.OK {
			return result, ErrValidationFailed
		}
		return result, h.requestSvc.Accept(ctx, cmd.RequestID)

	case request.StatusCancelled:
		return request.ValidationResult{}, h.requestSvc.Cancel(ctx, cmd.RequestID, "")

	default:
		return request.ValidationResult{}, fmt.Errorf("%w: %s", ErrUnknownTarget, cmd.TargetStatus)
	}
}

// CancelRequest cancels a request
func (h *Handler) CancelRequest(ctx context.Context, cmd CancelRequest) error {
	return h.requestSvc.Cancel(ctx, cmd.RequestID, cmd.Reason)
}

// ScheduleDelivery creates a delivery for an accepted request
func (h *Handler) ScheduleDelivery(ctx context.Context, cmd ScheduleDelivery) (*delivery.Delivery, error) {
	req, err := h.requestSvc.Load(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != request.StatusProcessing {
		return nil, ErrRequestNotReady
	}

	// one delivery per request
	existing, err := h.readStore.GetAll("deliveries")
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if d, ok := e.(*readmodel.DeliveryReadModel); ok && d.RequestID == cmd.RequestID {
			return nil, ErrDeliveryExists
		}
	}

	return h.deliverySvc.Schedule(ctx, cmd.RequestID, cmd.ScheduledDate)
}

// AdvanceDelivery drives a delivery to the named status. Completion also
// fulfills the owning request as a second, separately committed step.
func (h *Handler) AdvanceDelivery(ctx context.Context, cmd AdvanceDelivery) error {
	switch delivery.Status(cmd.TargetStatus) {
	case delivery.StatusInTransit:
		return h.deliverySvc.Depart(ctx, cmd.DeliveryID)

	case delivery.StatusComplete:
		d, err := h.deliverySvc.Complete(ctx, cmd.DeliveryID)
		if err != nil {
			return err
		}
		if err := h.requestSvc.Fulfill(ctx, d.RequestID, d.ID); err != nil {
			log.Printf("[Command] Delivery %s completed but request %s fulfillment failed: %v", d.ID, d.RequestID, err)
			return fmt.Errorf("delivery completed but request fulfillment failed: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownTarget, cmd.TargetStatus)
	}
}

// AcceptVoucher binds a voucher to a blood bank storage and deducts exactly
// one unit of the voucher's blood type. A voucher that already carries a
// binding short-circuits before the ledger is touched, so the deduction
// happens at most once per voucher.
func (h *Handler) AcceptVoucher(ctx context.Context, cmd AcceptVoucher) (*voucher.Voucher, error) {
	v, err := h.voucherSvc.Load(ctx, cmd.VoucherID)
	if err != nil {
		return nil, err
	}
	if v.IsBound() {
		return nil, voucher.ErrAlreadyBound
	}

	if err := h.bankSvc.VerifyStorage(ctx, cmd.BloodBankID, cmd.StorageID); err != nil {
		return nil, err
	}

	reference := "voucher:" + cmd.VoucherID
	if err := h.ledgerSvc.Adjust(ctx, cmd.BloodBankID, v.BloodType, -1, reference); err != nil {
		// insufficient stock or version conflict: voucher untouched
		return nil, err
	}

	bound, err := h.voucherSvc.Accept(ctx, cmd.VoucherID, cmd.BloodBankID, cmd.StorageID)
	if err != nil {
		// a concurrent accept won the voucher stream; give the unit back
		if compErr := h.ledgerSvc.Adjust(ctx, cmd.BloodBankID, v.BloodType, 1, reference+":compensation"); compErr != nil {
			log.Printf("[Command] Failed to compensate ledger for voucher %s: %v", cmd.VoucherID, compErr)
		}
		return nil, err
	}
	return bound, nil
}

// CompleteVoucher confirms the physical handoff; only the bound bank may call
func (h *Handler) CompleteVoucher(ctx context.Context, cmd CompleteVoucher) error {
	return h.voucherSvc.Complete(ctx, cmd.VoucherID, cmd.BloodBankID)
}

// RejectVoucher cancels a voucher. If the voucher was already bound, the
// deducted unit goes back into the bound bank's stock.
func (h *Handler) RejectVoucher(ctx context.Context, cmd RejectVoucher) error {
	v, err := h.voucherSvc.Reject(ctx, cmd.VoucherID, cmd.Reason)
	if err != nil {
		return err
	}
	if v.IsBound() {
		reference := "voucher:" + cmd.VoucherID + ":rejected"
		if err := h.ledgerSvc.Adjust(ctx, v.BoundBloodBankID, v.BloodType, 1, reference); err != nil {
			log.Printf("[Command] Failed to restore stock for rejected voucher %s: %v", cmd.VoucherID, err)
		}
	}
	return nil
}

// RecordDonation books the collected bag into the bank's ledger and credits
// the donor's reward points (one command, two streams)
func (h *Handler) RecordDonation(ctx context.Context, cmd RecordDonation) (*ledger.BloodUnit, *rewards.Account, error) {
	unit, err := h.ledgerSvc.Receive(ctx, cmd.BloodBankID, cmd.BloodType, cmd.Units, cmd.Location, cmd.CollectedAt, cmd.ExpiresAt)
	if err != nil {
		return nil, nil, err
	}

	acct, err := h.rewardsSvc.Earn(ctx, cmd.DonorID, unit.ID, rewards.PointsPerDonation)
	if err != nil {
		return unit, nil, fmt.Errorf("donation recorded but points credit failed: %w", err)
	}
	return unit, acct, nil
}

// RedeemPoints debits the donor's balance and issues a PENDING voucher
func (h *Handler) RedeemPoints(ctx context.Context, cmd RedeemPoints) (*voucher.Voucher, *rewards.Account, error) {
	acct, err := h.rewardsSvc.Load(ctx, cmd.DonorID)
	if err != nil {
		return nil, nil, err
	}
	if acct.Balance < rewards.VoucherCost {
		return nil, nil, rewards.ErrInsufficientPoints
	}

	v, err := h.voucherSvc.Issue(ctx, cmd.DonorID, cmd.BloodType)
	if err != nil {
		return nil, nil, err
	}

	acct, err = h.rewardsSvc.Redeem(ctx, cmd.DonorID, v.ID, rewards.VoucherCost)
	if err != nil {
		// balance changed underneath us; withdraw the voucher again
		if _, rejErr := h.voucherSvc.Reject(ctx, v.ID, "points redemption failed"); rejErr != nil {
			log.Printf("[Command] Failed to withdraw voucher %s after redeem failure: %v", v.ID, rejErr)
		}
		return nil, nil, err
	}
	return v, acct, nil
}

// ReceiveStock books external stock into a bank's ledger
func (h *Handler) ReceiveStock(ctx context.Context, cmd ReceiveStock) (*ledger.BloodUnit, error) {
	return h.ledgerSvc.Receive(ctx, cmd.BloodBankID, cmd.BloodType, cmd.Units, cmd.Location, cmd.CollectedAt, cmd.ExpiresAt)
}

// AdjustInventory applies a manual delta to available stock
func (h *Handler) AdjustInventory(ctx context.Context, cmd AdjustInventory) error {
	return h.ledgerSvc.Adjust(ctx, cmd.BloodBankID, cmd.BloodType, cmd.Delta, cmd.Reference)
}

// MarkExpired expires overdue units and returns them for reporting
func (h *Handler) MarkExpired(ctx context.Context, cmd MarkExpired) ([]ledger.ExpiredUnit, error) {
	return h.ledgerSvc.MarkExpired(ctx, cmd.BloodBankID, cmd.BloodType, time.Now())
}

// RegisterBank registers a new blood bank
func (h *Handler) RegisterBank(ctx context.Context, cmd RegisterBank) (*bank.Bank, error) {
	return h.bankSvc.Register(ctx, cmd.Name, cmd.Slug, cmd.Address, cmd.ContactEmail)
}

// AddStorage adds a storage unit to a blood bank
func (h *Handler) AddStorage(ctx context.Context, cmd AddStorage) (*bank.Storage, error) {
	return h.bankSvc.AddStorage(ctx, cmd.BloodBankID, cmd.Name, cmd.Capacity)
}
