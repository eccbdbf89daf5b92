package query

// Re-export read models from readmodel package for backward compatibility
import "github.com/example/bloodnet-event-driven/internal/readmodel"

type RequestItemReadModel = readmodel.RequestItemReadModel
type RequestReadModel = readmodel.RequestReadModel
type DeliveryReadModel = readmodel.DeliveryReadModel
type VoucherReadModel = readmodel.VoucherReadModel
type InventoryReadModel = readmodel.InventoryReadModel
type InventorySummary = readmodel.InventorySummary
type StorageReadModel = readmodel.StorageReadModel
type BankReadModel = readmodel.BankReadModel
type RewardReadModel = readmodel.RewardReadModel
type UserReadModel = readmodel.UserReadModel
type SessionReadModel = readmodel.SessionReadModel
