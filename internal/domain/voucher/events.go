package voucher

import "time"

const (
	EventVoucherIssued    = "VoucherIssued"
	EventVoucherAccepted  = "VoucherAccepted"
	EventVoucherCompleted = "VoucherCompleted"
	EventVoucherRejected  = "VoucherRejected"
)

type VoucherIssued struct {
	VoucherID string    `json:"voucher_id"`
	DonorID   string    `json:"donor_id"`
	BloodType string    `json:"blood_type"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
}

// VoucherAccepted binds the voucher to a blood bank and storage and records
// the single unit deducted from that bank's ledger
type VoucherAccepted struct {
	VoucherID   string    `json:"voucher_id"`
	BloodBankID string    `json:"blood_bank_id"`
	StorageID   string    `json:"storage_id"`
	AcceptedAt  time.Time `json:"accepted_at"`
}

type VoucherCompleted struct {
	VoucherID   string    `json:"voucher_id"`
	BloodBankID string    `json:"blood_bank_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type VoucherRejected struct {
	VoucherID  string    `json:"voucher_id"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}
