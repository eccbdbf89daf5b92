package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/bloodnet-event-driven/internal/domain/request"
	"github.com/example/bloodnet-event-driven/internal/domain/user"
	"github.com/example/bloodnet-event-driven/internal/domain/voucher"
	"github.com/example/bloodnet-event-driven/internal/email"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/example/bloodnet-event-driven/internal/readmodel"
)

// Handler processes events for sending notifications
type Handler struct {
	emailService *email.Service
	readStore    store.ReadStoreInterface
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service, readStore store.ReadStoreInterface) *Handler {
	return &Handler{
		emailService: emailSvc,
		readStore:    readStore,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.EventType {
	case request.EventRequestAccepted:
		return h.handleRequestAccepted(event)
	case voucher.EventVoucherAccepted:
		return h.handleVoucherAccepted(event)
	}

	return nil
}

func (h *Handler) handleRequestAccepted(event store.Event) error {
	var e request.RequestAccepted
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal RequestAccepted event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing RequestAccepted event for request %s", e.RequestID)

	reqData, exists, err := h.readStore.Get("requests", e.RequestID)
	if err != nil {
		log.Printf("[Notifier] Error getting request %s: %v", e.RequestID, err)
		return nil
	}
	if !exists {
		log.Printf("[Notifier] Request not found: %s", e.RequestID)
		return nil
	}

	req, ok := reqData.(*readmodel.RequestReadModel)
	if !ok {
		log.Printf("[Notifier] Invalid request data type for request: %s", e.RequestID)
		return nil
	}

	staff := h.findStaffByOrg(user.RoleHospital, req.HospitalID)
	if staff == nil {
		log.Printf("[Notifier] No hospital staff found for hospital: %s", req.HospitalID)
		return nil
	}

	bankName := req.BloodSourceID
	if bankData, exists, _ := h.readStore.Get("banks", req.BloodSourceID); exists {
		if bank, ok := bankData.(*readmodel.BankReadModel); ok {
			bankName = bank.Name
		}
	}

	emailItems := make([]email.RequestItem, len(req.Items))
	for i, item := range req.Items {
		emailItems[i] = email.RequestItem{
			BloodType: item.BloodType,
			Units:     item.UnitsRequested,
		}
	}

	if err := h.emailService.SendRequestAccepted(staff.Email, req.ID, bankName, emailItems); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", staff.Email, err)
		return err
	}

	log.Printf("[Notifier] Request accepted email sent to %s for request %s", staff.Email, req.ID)
	return nil
}

func (h *Handler) handleVoucherAccepted(event store.Event) error {
	var e voucher.VoucherAccepted
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal VoucherAccepted event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing VoucherAccepted event for voucher %s", e.VoucherID)

	vData, exists, err := h.readStore.Get("vouchers", e.VoucherID)
	if err != nil {
		log.Printf("[Notifier] Error getting voucher %s: %v", e.VoucherID, err)
		return nil
	}
	if !exists {
		log.Printf("[Notifier] Voucher not found: %s", e.VoucherID)
		return nil
	}

	v, ok := vData.(*readmodel.VoucherReadModel)
	if !ok {
		log.Printf("[Notifier] Invalid voucher data type for voucher: %s", e.VoucherID)
		return nil
	}

	donorData, exists, err := h.readStore.Get("users", v.DonorID)
	if err != nil || !exists {
		log.Printf("[Notifier] Donor not found: %s", v.DonorID)
		return nil
	}

	donor, ok := donorData.(*readmodel.UserReadModel)
	if !ok {
		log.Printf("[Notifier] Invalid user data type for donor: %s", v.DonorID)
		return nil
	}

	bankName := e.BloodBankID
	if bankData, exists, _ := h.readStore.Get("banks", e.BloodBankID); exists {
		if bank, ok := bankData.(*readmodel.BankReadModel); ok {
			bankName = bank.Name
		}
	}

	if err := h.emailService.SendVoucherAccepted(donor.Email, v.Code, bankName); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", donor.Email, err)
		return err
	}

	log.Printf("[Notifier] Voucher accepted email sent to %s for voucher %s", donor.Email, v.ID)
	return nil
}

// findStaffByOrg scans the users collection for an active staff account of
// the given role and organization
func (h *Handler) findStaffByOrg(role, orgID string) *readmodel.UserReadModel {
	items, err := h.readStore.GetAll("users")
	if err != nil {
		log.Printf("[Notifier] Error listing users: %v", err)
		return nil
	}
	for _, item := range items {
		u, ok := item.(*readmodel.UserReadModel)
		if !ok {
			continue
		}
		if u.Role == role && u.OrgID == orgID && u.IsActive {
			return u
		}
	}
	return nil
}
