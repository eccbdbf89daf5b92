package rewards

import "time"

const (
	EventPointsEarned   = "PointsEarned"
	EventPointsRedeemed = "PointsRedeemed"
)

type PointsEarned struct {
	AccountID  string    `json:"account_id"`
	DonorID    string    `json:"donor_id"`
	Points     int       `json:"points"`
	DonationID string    `json:"donation_id"`
	EarnedAt   time.Time `json:"earned_at"`
}

type PointsRedeemed struct {
	AccountID  string    `json:"account_id"`
	DonorID    string    `json:"donor_id"`
	Points     int       `json:"points"`
	VoucherID  string    `json:"voucher_id"`
	RedeemedAt time.Time `json:"redeemed_at"`
}
