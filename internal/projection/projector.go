package projection

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/bloodnet-event-driven/internal/domain/bank"
	"github.com/example/bloodnet-event-driven/internal/domain/delivery"
	"github.com/example/bloodnet-event-driven/internal/domain/ledger"
	"github.com/example/bloodnet-event-driven/internal/domain/request"
	"github.com/example/bloodnet-event-driven/internal/domain/rewards"
	"github.com/example/bloodnet-event-driven/internal/domain/user"
	"github.com/example/bloodnet-event-driven/internal/domain/voucher"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/example/bloodnet-event-driven/internal/readmodel"
)

type Projector struct {
	readStore store.ReadStoreInterface
}

func NewProjector(readStore store.ReadStoreInterface) *Projector {
	return &Projector{readStore: readStore}
}

func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	log.Printf("[Projector] Received event: %s (aggregate: %s)", event.EventType, event.AggregateType)

	switch event.AggregateType {
	case ledger.AggregateType:
		return p.handleLedgerEvent(event)
	case request.AggregateType:
		return p.handleRequestEvent(event)
	case delivery.AggregateType:
		return p.handleDeliveryEvent(event)
	case voucher.AggregateType:
		return p.handleVoucherEvent(event)
	case bank.AggregateType:
		return p.handleBankEvent(event)
	case rewards.AggregateType:
		return p.handleRewardsEvent(event)
	case user.AggregateType:
		return p.handleUserEvent(event)
	}

	return nil
}

// adjustInventory applies count deltas to one ledger row, creating it on
// first sight
func (p *Projector) adjustInventory(ledgerID, bloodBankID, bloodType string, availableDelta, totalDelta int) {
	_, ok, err := p.readStore.Get("inventory", ledgerID)
	if err != nil {
		log.Printf("[Projector] Error reading inventory %s: %v", ledgerID, err)
		return
	}
	if !ok {
		p.readStore.Set("inventory", ledgerID, &readmodel.InventoryReadModel{
			LedgerID:       ledgerID,
			BloodBankID:    bloodBankID,
			BloodType:      bloodType,
			AvailableUnits: availableDelta,
			TotalUnits:     totalDelta,
		})
		return
	}
	p.readStore.Update("inventory", ledgerID, func(current any) any {
		inv := current.(*readmodel.InventoryReadModel)
		inv.AvailableUnits += availableDelta
		inv.TotalUnits += totalDelta
		return inv
	})
}

func (p *Projector) handleLedgerEvent(event store.Event) error {
	switch event.EventType {
	case ledger.EventStockReceived:
		var e ledger.StockReceived
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.adjustInventory(event.AggregateID, e.BloodBankID, e.BloodType, e.Units, e.Units)

	case ledger.EventStockAdjusted:
		var e ledger.StockAdjusted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.adjustInventory(event.AggregateID, e.BloodBankID, e.BloodType, e.Units, e.Units)

	case ledger.EventStockDeducted:
		var e ledger.StockDeducted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.adjustInventory(event.AggregateID, e.BloodBankID, e.BloodType, -e.Units, -e.Units)

	case ledger.EventUnitsExpired:
		var e ledger.UnitsExpired
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		// expired stock stays in the fridge until removed, so only the
		// available count drops
		p.adjustInventory(event.AggregateID, e.BloodBankID, e.BloodType, -e.TotalUnits, 0)

	case ledger.EventUnitStatusChanged:
		var e ledger.UnitStatusChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		availableDelta := 0
		if e.PrevStatus == string(ledger.StatusAvailable) && e.Status != string(ledger.StatusAvailable) {
			availableDelta = -e.Units
		}
		if e.PrevStatus != string(ledger.StatusAvailable) && e.Status == string(ledger.StatusAvailable) {
			availableDelta = e.Units
		}
		if availableDelta != 0 {
			p.adjustInventory(event.AggregateID, e.BloodBankID, e.BloodType, availableDelta, 0)
		}

	case ledger.EventUnitRemoved:
		var e ledger.UnitRemoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		availableDelta := 0
		if e.Status == string(ledger.StatusAvailable) {
			availableDelta = -e.Units
		}
		p.adjustInventory(event.AggregateID, e.BloodBankID, e.BloodType, availableDelta, -e.Units)
	}

	return nil
}

func (p *Projector) handleRequestEvent(event store.Event) error {
	switch event.EventType {
	case request.EventRequestSubmitted:
		var e request.RequestSubmitted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		items := make([]readmodel.RequestItemReadModel, 0, len(e.Items))
		for _, item := range e.Items {
			items = append(items, readmodel.RequestItemReadModel{
				BloodType:      item.BloodType,
				UnitsRequested: item.UnitsRequested,
			})
		}
		p.readStore.Set("requests", e.RequestID, &readmodel.RequestReadModel{
			ID:            e.RequestID,
			HospitalID:    e.HospitalID,
			BloodSourceID: e.BloodSourceID,
			Items:         items,
			RequestDate:   e.RequestDate,
			DateNeeded:    e.DateNeeded,
			Status:        string(request.StatusPending),
			CreatedAt:     e.SubmittedAt,
			UpdatedAt:     e.SubmittedAt,
		})

	case request.EventRequestAccepted:
		var e request.RequestAccepted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("requests", e.RequestID, func(current any) any {
			r := current.(*readmodel.RequestReadModel)
			r.Status = string(request.StatusProcessing)
			r.UpdatedAt = e.AcceptedAt
			return r
		})

	case request.EventRequestFulfilled:
		var e request.RequestFulfilled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("requests", e.RequestID, func(current any) any {
			r := current.(*readmodel.RequestReadModel)
			r.Status = string(request.StatusFulfilled)
			r.UpdatedAt = e.FulfilledAt
			return r
		})

	case request.EventRequestCancelled:
		var e request.RequestCancelled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("requests", e.RequestID, func(current any) any {
			r := current.(*readmodel.RequestReadModel)
			r.Status = string(request.StatusCancelled)
			r.UpdatedAt = e.CancelledAt
			return r
		})
	}

	return nil
}

func (p *Projector) handleDeliveryEvent(event store.Event) error {
	switch event.EventType {
	case delivery.EventDeliveryScheduled:
		var e delivery.DeliveryScheduled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set("deliveries", e.DeliveryID, &readmodel.DeliveryReadModel{
			ID:            e.DeliveryID,
			RequestID:     e.RequestID,
			Status:        string(delivery.StatusScheduled),
			ScheduledDate: e.ScheduledDate,
			CreatedAt:     e.ScheduledAt,
			UpdatedAt:     e.ScheduledAt,
		})

	case delivery.EventDeliveryDeparted:
		var e delivery.DeliveryDeparted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("deliveries", e.DeliveryID, func(current any) any {
			d := current.(*readmodel.DeliveryReadModel)
			d.Status = string(delivery.StatusInTransit)
			t := e.DepartedAt
			d.DepartedAt = &t
			d.UpdatedAt = e.DepartedAt
			return d
		})

	case delivery.EventDeliveryCompleted:
		var e delivery.DeliveryCompleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("deliveries", e.DeliveryID, func(current any) any {
			d := current.(*readmodel.DeliveryReadModel)
			d.Status = string(delivery.StatusComplete)
			t := e.DeliveredAt
			d.DeliveredDate = &t
			d.UpdatedAt = e.DeliveredAt
			return d
		})
	}

	return nil
}

func (p *Projector) handleVoucherEvent(event store.Event) error {
	switch event.EventType {
	case voucher.EventVoucherIssued:
		var e voucher.VoucherIssued
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set("vouchers", e.VoucherID, &readmodel.VoucherReadModel{
			ID:        e.VoucherID,
			DonorID:   e.DonorID,
			BloodType: e.BloodType,
			Code:      e.Code,
			Status:    string(voucher.StatusPending),
			CreatedAt: e.IssuedAt,
			UpdatedAt: e.IssuedAt,
		})

	case voucher.EventVoucherAccepted:
		var e voucher.VoucherAccepted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("vouchers", e.VoucherID, func(current any) any {
			v := current.(*readmodel.VoucherReadModel)
			v.Status = string(voucher.StatusProcessing)
			v.BoundBloodBankID = e.BloodBankID
			v.BoundStorageID = e.StorageID
			v.UpdatedAt = e.AcceptedAt
			return v
		})

	case voucher.EventVoucherCompleted:
		var e voucher.VoucherCompleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("vouchers", e.VoucherID, func(current any) any {
			v := current.(*readmodel.VoucherReadModel)
			v.Status = string(voucher.StatusCompleted)
			v.UpdatedAt = e.CompletedAt
			return v
		})

	case voucher.EventVoucherRejected:
		var e voucher.VoucherRejected
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		// rejected vouchers stay listed, never deleted
		p.readStore.Update("vouchers", e.VoucherID, func(current any) any {
			v := current.(*readmodel.VoucherReadModel)
			v.Status = string(voucher.StatusCancelled)
			v.UpdatedAt = e.RejectedAt
			return v
		})
	}

	return nil
}

func (p *Projector) handleBankEvent(event store.Event) error {
	switch event.EventType {
	case bank.EventBankRegistered:
		var e bank.BankRegistered
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set("banks", e.BankID, &readmodel.BankReadModel{
			ID:           e.BankID,
			Name:         e.Name,
			Slug:         e.Slug,
			Address:      e.Address,
			ContactEmail: e.ContactEmail,
			Storages:     []readmodel.StorageReadModel{},
			CreatedAt:    e.RegisteredAt,
			UpdatedAt:    e.RegisteredAt,
		})

	case bank.EventBankUpdated:
		var e bank.BankUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("banks", e.BankID, func(current any) any {
			b := current.(*readmodel.BankReadModel)
			b.Name = e.Name
			b.Slug = e.Slug
			b.Address = e.Address
			b.ContactEmail = e.ContactEmail
			b.UpdatedAt = e.UpdatedAt
			return b
		})

	case bank.EventStorageAdded:
		var e bank.StorageAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("banks", e.BankID, func(current any) any {
			b := current.(*readmodel.BankReadModel)
			b.Storages = append(b.Storages, readmodel.StorageReadModel{
				ID:       e.StorageID,
				Name:     e.Name,
				Capacity: e.Capacity,
			})
			b.UpdatedAt = e.AddedAt
			return b
		})

	case bank.EventStorageRemoved:
		var e bank.StorageRemoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("banks", e.BankID, func(current any) any {
			b := current.(*readmodel.BankReadModel)
			storages := make([]readmodel.StorageReadModel, 0, len(b.Storages))
			for _, st := range b.Storages {
				if st.ID != e.StorageID {
					storages = append(storages, st)
				}
			}
			b.Storages = storages
			b.UpdatedAt = e.RemovedAt
			return b
		})
	}

	return nil
}

func (p *Projector) handleRewardsEvent(event store.Event) error {
	switch event.EventType {
	case rewards.EventPointsEarned:
		var e rewards.PointsEarned
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		_, ok, err := p.readStore.Get("rewards", e.DonorID)
		if err != nil {
			return err
		}
		if !ok {
			p.readStore.Set("rewards", e.DonorID, &readmodel.RewardReadModel{
				DonorID:        e.DonorID,
				Points:         e.Points,
				LifetimePoints: e.Points,
				UpdatedAt:      e.EarnedAt,
			})
			return nil
		}
		p.readStore.Update("rewards", e.DonorID, func(current any) any {
			r := current.(*readmodel.RewardReadModel)
			r.Points += e.Points
			r.LifetimePoints += e.Points
			r.UpdatedAt = e.EarnedAt
			return r
		})

	case rewards.EventPointsRedeemed:
		var e rewards.PointsRedeemed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("rewards", e.DonorID, func(current any) any {
			r := current.(*readmodel.RewardReadModel)
			r.Points -= e.Points
			r.UpdatedAt = e.RedeemedAt
			return r
		})
	}

	return nil
}

func (p *Projector) handleUserEvent(event store.Event) error {
	switch event.EventType {
	case user.EventUserCreated:
		var e user.UserCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set("users", e.UserID, &readmodel.UserReadModel{
			ID:           e.UserID,
			Email:        e.Email,
			PasswordHash: e.PasswordHash,
			Name:         e.Name,
			Role:         e.Role,
			OrgID:        e.OrgID,
			BloodType:    e.BloodType,
			IsActive:     true,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.CreatedAt,
		})

	case user.EventUserUpdated:
		var e user.UserUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("users", e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.Name = e.Name
			u.UpdatedAt = e.UpdatedAt
			return u
		})

	case user.EventUserPasswordChanged:
		var e user.UserPasswordChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("users", e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.PasswordHash = e.PasswordHash
			u.UpdatedAt = e.ChangedAt
			return u
		})

	case user.EventUserDeactivated:
		var e user.UserDeactivated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("users", e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.IsActive = false
			u.UpdatedAt = e.DeactivatedAt
			return u
		})

	case user.EventUserActivated:
		var e user.UserActivated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update("users", e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.IsActive = true
			u.UpdatedAt = e.ActivatedAt
			return u
		})
	}

	return nil
}
