package ledger

import "time"

const (
	EventStockReceived     = "StockReceived"
	EventStockAdjusted     = "StockAdjusted"
	EventStockDeducted     = "StockDeducted"
	EventUnitsExpired      = "UnitsExpired"
	EventUnitStatusChanged = "UnitStatusChanged"
	EventUnitRemoved       = "UnitRemoved"
)

type StockReceived struct {
	BloodBankID string    `json:"blood_bank_id"`
	BloodType   string    `json:"blood_type"`
	UnitID      string    `json:"unit_id"`
	Units       int       `json:"units"`
	Location    string    `json:"location"`
	CollectedAt time.Time `json:"collected_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	ReceivedAt  time.Time `json:"received_at"`
}

// StockAdjusted records a positive correction, booked as its own unit
type StockAdjusted struct {
	BloodBankID string    `json:"blood_bank_id"`
	BloodType   string    `json:"blood_type"`
	UnitID      string    `json:"unit_id"`
	Units       int       `json:"units"`
	Reference   string    `json:"reference,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	AdjustedAt  time.Time `json:"adjusted_at"`
}

// UnitDraw is one unit's share of a deduction
type UnitDraw struct {
	UnitID string `json:"unit_id"`
	Units  int    `json:"units"`
}

// StockDeducted records a decrement, broken down per drawn unit
type StockDeducted struct {
	BloodBankID string     `json:"blood_bank_id"`
	BloodType   string     `json:"blood_type"`
	Units       int        `json:"units"`
	Draws       []UnitDraw `json:"draws"`
	Reference   string     `json:"reference,omitempty"`
	DeductedAt  time.Time  `json:"deducted_at"`
}

// ExpiredUnit is one unit flagged by an expiry sweep
type ExpiredUnit struct {
	UnitID    string    `json:"unit_id"`
	Units     int       `json:"units"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UnitsExpired struct {
	BloodBankID string        `json:"blood_bank_id"`
	BloodType   string        `json:"blood_type"`
	Expired     []ExpiredUnit `json:"expired"`
	TotalUnits  int           `json:"total_units"`
	ExpiredAt   time.Time     `json:"expired_at"`
}

// UnitStatusChanged carries the unit size and prior status so projections
// can keep counts without replaying the stream
type UnitStatusChanged struct {
	BloodBankID string    `json:"blood_bank_id"`
	BloodType   string    `json:"blood_type"`
	UnitID      string    `json:"unit_id"`
	Units       int       `json:"units"`
	Status      string    `json:"status"`
	PrevStatus  string    `json:"prev_status"`
	ChangedAt   time.Time `json:"changed_at"`
}

type UnitRemoved struct {
	BloodBankID string    `json:"blood_bank_id"`
	BloodType   string    `json:"blood_type"`
	UnitID      string    `json:"unit_id"`
	Units       int       `json:"units"`
	Status      string    `json:"status"`
	RemovedAt   time.Time `json:"removed_at"`
}
