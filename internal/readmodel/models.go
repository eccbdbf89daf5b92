package readmodel

import "time"

// RequestItemReadModel represents one blood type line of a hospital request
type RequestItemReadModel struct {
	BloodType      string `json:"blood_type"`
	UnitsRequested int    `json:"units_requested"`
}

// RequestReadModel is the read model for hospital blood requests
type RequestReadModel struct {
	ID            string                 `json:"id"`
	HospitalID    string                 `json:"hospital_id"`
	BloodSourceID string                 `json:"blood_source_id"`
	Items         []RequestItemReadModel `json:"items"`
	RequestDate   time.Time              `json:"request_date"`
	DateNeeded    time.Time              `json:"date_needed"`
	Status        string                 `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// DeliveryReadModel is the read model for deliveries
type DeliveryReadModel struct {
	ID            string     `json:"id"`
	RequestID     string     `json:"request_id"`
	Status        string     `json:"status"`
	ScheduledDate time.Time  `json:"scheduled_date"`
	DepartedAt    *time.Time `json:"departed_at,omitempty"`
	DeliveredDate *time.Time `json:"delivered_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// VoucherReadModel is the read model for donor reward vouchers
type VoucherReadModel struct {
	ID               string    `json:"id"`
	DonorID          string    `json:"donor_id"`
	BloodType        string    `json:"blood_type"`
	Code             string    `json:"code"`
	Status           string    `json:"status"`
	BoundBloodBankID string    `json:"bound_blood_bank_id,omitempty"`
	BoundStorageID   string    `json:"bound_storage_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// InventoryReadModel is the read model for one (blood bank, blood type) ledger
type InventoryReadModel struct {
	LedgerID       string    `json:"ledger_id"`
	BloodBankID    string    `json:"blood_bank_id"`
	BloodType      string    `json:"blood_type"`
	AvailableUnits int       `json:"available_units"`
	TotalUnits     int       `json:"total_units"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InventorySummary is one row of a blood bank's inventory overview
type InventorySummary struct {
	BloodType string `json:"blood_type"`
	Available int    `json:"available"`
	Total     int    `json:"total"`
}

// StorageReadModel represents a storage location inside a blood bank
type StorageReadModel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// BankReadModel is the read model for blood banks
type BankReadModel struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Slug         string             `json:"slug"`
	Address      string             `json:"address"`
	ContactEmail string             `json:"contact_email"`
	Storages     []StorageReadModel `json:"storages"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// RewardReadModel is the read model for donor reward balances
type RewardReadModel struct {
	DonorID        string    `json:"donor_id"`
	Points         int       `json:"points"`
	LifetimePoints int       `json:"lifetime_points"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserReadModel is the read model for users
type UserReadModel struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	OrgID        string    `json:"org_id,omitempty"`
	BloodType    string    `json:"blood_type,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionReadModel is the read model for user sessions
type SessionReadModel struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	IPAddress        string    `json:"ip_address"`
	UserAgent        string    `json:"user_agent"`
}
