package query

import (
	"log"
	"sort"

	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
)

type Handler struct {
	readStore store.ReadStoreInterface
}

func NewHandler(readStore store.ReadStoreInterface) *Handler {
	return &Handler{readStore: readStore}
}

// Requests
func (h *Handler) GetRequest(id string) (*RequestReadModel, bool) {
	data, ok, err := h.readStore.Get("requests", id)
	if err != nil {
		log.Printf("[Query] Error getting request %s: %v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*RequestReadModel), true
}

func (h *Handler) ListRequestsByHospital(hospitalID string) []*RequestReadModel {
	items, err := h.readStore.GetAll("requests")
	if err != nil {
		log.Printf("[Query] Error listing requests: %v", err)
		return nil
	}
	requests := make([]*RequestReadModel, 0)
	for _, item := range items {
		r := item.(*RequestReadModel)
		if r.HospitalID == hospitalID {
			requests = append(requests, r)
		}
	}
	return requests
}

// ListAllRequests returns all requests (for bank operators and admins)
func (h *Handler) ListAllRequests() []*RequestReadModel {
	items, err := h.readStore.GetAll("requests")
	if err != nil {
		log.Printf("[Query] Error listing all requests: %v", err)
		return nil
	}
	requests := make([]*RequestReadModel, 0, len(items))
	for _, item := range items {
		requests = append(requests, item.(*RequestReadModel))
	}
	return requests
}

// Deliveries
func (h *Handler) GetDelivery(id string) (*DeliveryReadModel, bool) {
	data, ok, err := h.readStore.Get("deliveries", id)
	if err != nil {
		log.Printf("[Query] Error getting delivery %s: %v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*DeliveryReadModel), true
}

func (h *Handler) GetDeliveryByRequest(requestID string) (*DeliveryReadModel, bool) {
	items, err := h.readStore.GetAll("deliveries")
	if err != nil {
		log.Printf("[Query] Error listing deliveries: %v", err)
		return nil, false
	}
	for _, item := range items {
		d := item.(*DeliveryReadModel)
		if d.RequestID == requestID {
			return d, true
		}
	}
	return nil, false
}

// Vouchers
func (h *Handler) GetVoucher(id string) (*VoucherReadModel, bool) {
	data, ok, err := h.readStore.Get("vouchers", id)
	if err != nil {
		log.Printf("[Query] Error getting voucher %s: %v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*VoucherReadModel), true
}

func (h *Handler) ListVouchersByDonor(donorID string) []*VoucherReadModel {
	items, err := h.readStore.GetAll("vouchers")
	if err != nil {
		log.Printf("[Query] Error listing vouchers: %v", err)
		return nil
	}
	vouchers := make([]*VoucherReadModel, 0)
	for _, item := range items {
		v := item.(*VoucherReadModel)
		if v.DonorID == donorID {
			vouchers = append(vouchers, v)
		}
	}
	return vouchers
}

// ListOpenVouchers returns vouchers a bank operator can still act on,
// including rejected ones so they never silently disappear from listings
func (h *Handler) ListOpenVouchers() []*VoucherReadModel {
	items, err := h.readStore.GetAll("vouchers")
	if err != nil {
		log.Printf("[Query] Error listing vouchers: %v", err)
		return nil
	}
	vouchers := make([]*VoucherReadModel, 0)
	for _, item := range items {
		v := item.(*VoucherReadModel)
		if v.Status != "COMPLETED" {
			vouchers = append(vouchers, v)
		}
	}
	return vouchers
}

// Inventory
func (h *Handler) GetInventory(ledgerID string) (*InventoryReadModel, bool) {
	data, ok, err := h.readStore.Get("inventory", ledgerID)
	if err != nil {
		log.Printf("[Query] Error getting inventory %s: %v", ledgerID, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*InventoryReadModel), true
}

// GetInventorySummary returns one row per tracked blood type for a bank,
// sorted by blood type for stable output
func (h *Handler) GetInventorySummary(bloodBankID string) []InventorySummary {
	items, err := h.readStore.GetAll("inventory")
	if err != nil {
		log.Printf("[Query] Error listing inventory: %v", err)
		return nil
	}
	summary := make([]InventorySummary, 0)
	for _, item := range items {
		inv := item.(*InventoryReadModel)
		if inv.BloodBankID != bloodBankID {
			continue
		}
		summary = append(summary, InventorySummary{
			BloodType: inv.BloodType,
			Available: inv.AvailableUnits,
			Total:     inv.TotalUnits,
		})
	}
	sort.Slice(summary, func(i, j int) bool {
		return summary[i].BloodType < summary[j].BloodType
	})
	return summary
}

// Banks
func (h *Handler) GetBank(id string) (*BankReadModel, bool) {
	data, ok, err := h.readStore.Get("banks", id)
	if err != nil {
		log.Printf("[Query] Error getting bank %s: %v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*BankReadModel), true
}

func (h *Handler) ListBanks() []*BankReadModel {
	items, err := h.readStore.GetAll("banks")
	if err != nil {
		log.Printf("[Query] Error listing banks: %v", err)
		return nil
	}
	banks := make([]*BankReadModel, 0, len(items))
	for _, item := range items {
		banks = append(banks, item.(*BankReadModel))
	}
	return banks
}

// Rewards
func (h *Handler) GetRewardBalance(donorID string) (*RewardReadModel, bool) {
	data, ok, err := h.readStore.Get("rewards", donorID)
	if err != nil {
		log.Printf("[Query] Error getting reward balance %s: %v", donorID, err)
		return nil, false
	}
	if !ok {
		// Donors with no history have a zero balance
		return &RewardReadModel{DonorID: donorID}, true
	}
	return data.(*RewardReadModel), true
}

// Users
func (h *Handler) GetUser(id string) (*UserReadModel, bool) {
	data, ok, err := h.readStore.Get("users", id)
	if err != nil {
		log.Printf("[Query] Error getting user %s: %v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*UserReadModel), true
}

func (h *Handler) GetUserByEmail(email string) (*UserReadModel, bool) {
	items, err := h.readStore.GetAll("users")
	if err != nil {
		log.Printf("[Query] Error listing users: %v", err)
		return nil, false
	}
	for _, item := range items {
		u := item.(*UserReadModel)
		if u.Email == email {
			return u, true
		}
	}
	return nil, false
}

// Sessions
func (h *Handler) GetSession(id string) (*SessionReadModel, bool) {
	data, ok, err := h.readStore.Get("sessions", id)
	if err != nil {
		log.Printf("[Query] Error getting session %s: %v", id, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*SessionReadModel), true
}
