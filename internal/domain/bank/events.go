package bank

import "time"

const (
	EventBankRegistered = "BankRegistered"
	EventBankUpdated    = "BankUpdated"
	EventStorageAdded   = "StorageAdded"
	EventStorageRemoved = "StorageRemoved"
)

type BankRegistered struct {
	BankID       string    `json:"bank_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Address      string    `json:"address"`
	ContactEmail string    `json:"contact_email"`
	RegisteredAt time.Time `json:"registered_at"`
}

type BankUpdated struct {
	BankID       string    `json:"bank_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Address      string    `json:"address"`
	ContactEmail string    `json:"contact_email"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StorageAdded struct {
	BankID    string    `json:"bank_id"`
	StorageID string    `json:"storage_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	AddedAt   time.Time `json:"added_at"`
}

type StorageRemoved struct {
	BankID    string    `json:"bank_id"`
	StorageID string    `json:"storage_id"`
	RemovedAt time.Time `json:"removed_at"`
}
