package command

import (
	"time"

	"github.com/example/bloodnet-event-driven/internal/domain/request"
)

// SubmitRequest submits a hospital blood request
type SubmitRequest struct {
	HospitalID    string         `json:"hospital_id"`
	BloodSourceID string         `json:"blood_source_id"`
	Items         []request.Item `json:"items"`
	RequestDate   time.Time      `json:"request_date"`
	DateNeeded    time.Time      `json:"date_needed"`
}

// AdvanceRequest moves a request to its next state
type AdvanceRequest struct {
	RequestID    string `json:"request_id"`
	TargetStatus string `json:"target_status"`
}

// CancelRequest cancels a pending or processing request
type CancelRequest struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

// ScheduleDelivery creates a delivery for an accepted request
type ScheduleDelivery struct {
	RequestID     string    `json:"request_id"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

// AdvanceDelivery moves a delivery to its next state
type AdvanceDelivery struct {
	DeliveryID   string `json:"delivery_id"`
	TargetStatus string `json:"target_status"`
}

// AcceptVoucher binds a voucher to a blood bank storage and deducts one unit
type AcceptVoucher struct {
	VoucherID   string `json:"voucher_id"`
	BloodBankID string `json:"blood_bank_id"`
	StorageID   string `json:"storage_id"`
}

// CompleteVoucher confirms the physical handoff of a bound voucher
type CompleteVoucher struct {
	VoucherID   string `json:"voucher_id"`
	BloodBankID string `json:"blood_bank_id"`
}

// RejectVoucher cancels a voucher with a reason
type RejectVoucher struct {
	VoucherID string `json:"voucher_id"`
	Reason    string `json:"reason"`
}

// RecordDonation books a collected bag into stock and credits donor points
type RecordDonation struct {
	DonorID     string    `json:"donor_id"`
	BloodBankID string    `json:"blood_bank_id"`
	BloodType   string    `json:"blood_type"`
	Units       int       `json:"units"`
	Location    string    `json:"location"`
	CollectedAt time.Time `json:"collected_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RedeemPoints exchanges donor points for a blood voucher
type RedeemPoints struct {
	DonorID   string `json:"donor_id"`
	BloodType string `json:"blood_type"`
}

// ReceiveStock books external stock into a bank's ledger
type ReceiveStock struct {
	BloodBankID string    `json:"blood_bank_id"`
	BloodType   string    `json:"blood_type"`
	Units       int       `json:"units"`
	Location    string    `json:"location"`
	CollectedAt time.Time `json:"collected_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AdjustInventory applies a manual delta to a bank's available stock
type AdjustInventory struct {
	BloodBankID string `json:"blood_bank_id"`
	BloodType   string `json:"blood_type"`
	Delta       int    `json:"delta"`
	Reference   string `json:"reference"`
}

// MarkExpired expires overdue units for one (bank, blood type) pair
type MarkExpired struct {
	BloodBankID string `json:"blood_bank_id"`
	BloodType   string `json:"blood_type"`
}

// RegisterBank registers a new blood bank
type RegisterBank struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email"`
}

// AddStorage adds a storage unit to a blood bank
type AddStorage struct {
	BloodBankID string `json:"blood_bank_id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
}
