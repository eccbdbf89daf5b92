package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/example/bloodnet-event-driven/internal/domain/aggregate"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "Ledger"

// defaultShelfLife is applied to adjustment units that carry no collection data
const defaultShelfLife = 42 * 24 * time.Hour

type UnitStatus string

const (
	StatusAvailable   UnitStatus = "available"
	StatusQuarantined UnitStatus = "quarantined"
	StatusCritical    UnitStatus = "critical"
	StatusExpired     UnitStatus = "expired"
)

var (
	ErrUnknownBloodType  = errors.New("blood type is not tracked for this blood bank")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrUnitNotFound      = errors.New("blood unit not found")
	ErrInvalidStatus     = errors.New("invalid unit status")
)

// BloodUnit is one collected bag (or pooled batch) in a blood bank's stock
type BloodUnit struct {
	ID          string     `json:"id"`
	Units       int        `json:"units"`
	Location    string     `json:"location"`
	CollectedAt time.Time  `json:"collected_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Status      UnitStatus `json:"status"`
}

// Ledger tracks one blood type of one blood bank. AvailableUnits always
// equals the sum of units with status available; Adjust is the only path
// that changes the counts.
type Ledger struct {
	ID             string               `json:"id"`
	BloodBankID    string               `json:"blood_bank_id"`
	BloodType      string               `json:"blood_type"`
	Units          map[string]BloodUnit `json:"units"`
	AvailableUnits int                  `json:"available_units"`
	TotalUnits     int                  `json:"total_units"`
	Version        int                  `json:"version"`
}

// Aggregate interface implementation
func (l *Ledger) GetID() string    { return l.ID }
func (l *Ledger) GetVersion() int  { return l.Version }
func (l *Ledger) SetVersion(v int) { l.Version = v }

// GetLedgerID returns the aggregate ID for one (blood bank, blood type) pair
func GetLedgerID(bloodBankID, bloodType string) string {
	return "ledger-" + bloodBankID + "-" + bloodType
}

// ApplyEvent applies a single event to the ledger state
func (l *Ledger) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventStockReceived:
		var data StockReceived
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		l.initFrom(event.AggregateID, data.BloodBankID, data.BloodType)
		l.Units[data.UnitID] = BloodUnit{
			ID:          data.UnitID,
			Units:       data.Units,
			Location:    data.Location,
			CollectedAt: data.CollectedAt,
			ExpiresAt:   data.ExpiresAt,
			Status:      StatusAvailable,
		}
		l.AvailableUnits += data.Units
		l.TotalUnits += data.Units

	case EventStockAdjusted:
		var data StockAdjusted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		l.initFrom(event.AggregateID, data.BloodBankID, data.BloodType)
		l.Units[data.UnitID] = BloodUnit{
			ID:          data.UnitID,
			Units:       data.Units,
			CollectedAt: data.CollectedAt,
			ExpiresAt:   data.ExpiresAt,
			Status:      StatusAvailable,
		}
		l.AvailableUnits += data.Units
		l.TotalUnits += data.Units

	case EventStockDeducted:
		var data StockDeducted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		for _, draw := range data.Draws {
			unit, ok := l.Units[draw.UnitID]
			if !ok {
				continue
			}
			unit.Units -= draw.Units
			if unit.Units <= 0 {
				delete(l.Units, draw.UnitID)
			} else {
				l.Units[draw.UnitID] = unit
			}
			l.AvailableUnits -= draw.Units
			l.TotalUnits -= draw.Units
		}

	case EventUnitsExpired:
		var data UnitsExpired
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		for _, exp := range data.Expired {
			unit, ok := l.Units[exp.UnitID]
			if !ok || unit.Status != StatusAvailable {
				continue
			}
			l.AvailableUnits -= unit.Units
			unit.Status = StatusExpired
			l.Units[exp.UnitID] = unit
		}

	case EventUnitStatusChanged:
		var data UnitStatusChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		unit, ok := l.Units[data.UnitID]
		if !ok {
			break
		}
		from, to := unit.Status, UnitStatus(data.Status)
		if from == StatusAvailable && to != StatusAvailable {
			l.AvailableUnits -= unit.Units
		}
		if from != StatusAvailable && to == StatusAvailable {
			l.AvailableUnits += unit.Units
		}
		unit.Status = to
		l.Units[data.UnitID] = unit

	case EventUnitRemoved:
		var data UnitRemoved
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		unit, ok := l.Units[data.UnitID]
		if !ok {
			break
		}
		if unit.Status == StatusAvailable {
			l.AvailableUnits -= unit.Units
		}
		l.TotalUnits -= unit.Units
		delete(l.Units, data.UnitID)
	}
	l.Version = event.Version
	return nil
}

func (l *Ledger) initFrom(aggregateID, bloodBankID, bloodType string) {
	if l.Units == nil {
		l.Units = make(map[string]BloodUnit)
	}
	if l.ID == "" {
		l.ID = aggregateID
		l.BloodBankID = bloodBankID
		l.BloodType = bloodType
	}
}

// availableFIFO returns available units ordered oldest collection first
func (l *Ledger) availableFIFO() []BloodUnit {
	units := make([]BloodUnit, 0, len(l.Units))
	for _, u := range l.Units {
		if u.Status == StatusAvailable {
			units = append(units, u)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].CollectedAt.Equal(units[j].CollectedAt) {
			return units[i].ID < units[j].ID
		}
		return units[i].CollectedAt.Before(units[j].CollectedAt)
	})
	return units
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load rebuilds a ledger; found is false when the pair has no history
func (s *Service) Load(ctx context.Context, bloodBankID, bloodType string) (*Ledger, bool, error) {
	ledgerID := GetLedgerID(bloodBankID, bloodType)
	return aggregate.Load(ctx, s.eventStore, ledgerID, func() *Ledger {
		return &Ledger{}
	})
}

// Available returns the current available unit count. Blood types with no
// recorded stock report zero; reads never fail on unknown types.
func (s *Service) Available(ctx context.Context, bloodBankID, bloodType string) (int, error) {
	led, found, err := s.Load(ctx, bloodBankID, bloodType)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return led.AvailableUnits, nil
}

// Receive books a new blood unit into stock
func (s *Service) Receive(ctx context.Context, bloodBankID, bloodType string, units int, location string, collectedAt, expiresAt time.Time) (*BloodUnit, error) {
	if units <= 0 {
		return nil, ErrInvalidQuantity
	}

	led, _, err := s.Load(ctx, bloodBankID, bloodType)
	if err != nil {
		return nil, err
	}

	event := StockReceived{
		BloodBankID: bloodBankID,
		BloodType:   bloodType,
		UnitID:      uuid.New().String(),
		Units:       units,
		Location:    location,
		CollectedAt: collectedAt,
		ExpiresAt:   expiresAt,
		ReceivedAt:  time.Now(),
	}

	ledgerID := GetLedgerID(bloodBankID, bloodType)
	storedEvent, err := s.eventStore.Append(ctx, ledgerID, AggregateType, EventStockReceived, event)
	if err != nil {
		return nil, err
	}

	if err := led.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, led, AggregateType); err != nil {
		log.Printf("[Ledger] Failed to create snapshot for %s: %v", ledgerID, err)
	}

	unit := led.Units[event.UnitID]
	return &unit, nil
}

// Adjust applies a delta to the available count. It is the only mutation
// path for the aggregates; negative deltas draw down the oldest-collected
// available units first and fail as a whole when stock is insufficient.
// The append is conditioned on the loaded version so that two callers
// cannot both pass the stock check and both decrement.
func (s *Service) Adjust(ctx context.Context, bloodBankID, bloodType string, delta int, reference string) error {
	if delta == 0 {
		return ErrInvalidQuantity
	}

	led, found, err := s.Load(ctx, bloodBankID, bloodType)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknownBloodType
	}

	ledgerID := GetLedgerID(bloodBankID, bloodType)

	var eventType string
	var data any
	if delta > 0 {
		now := time.Now()
		eventType = EventStockAdjusted
		data = StockAdjusted{
			BloodBankID: bloodBankID,
			BloodType:   bloodType,
			UnitID:      uuid.New().String(),
			Units:       delta,
			Reference:   reference,
			CollectedAt: now,
			ExpiresAt:   now.Add(defaultShelfLife),
			AdjustedAt:  now,
		}
	} else {
		need := -delta
		if need > led.AvailableUnits {
			return ErrInsufficientStock
		}
		eventType = EventStockDeducted
		data = StockDeducted{
			BloodBankID: bloodBankID,
			BloodType:   bloodType,
			Units:       need,
			Draws:       planDraws(led, need),
			Reference:   reference,
			DeductedAt:  time.Now(),
		}
	}

	storedEvent, err := s.eventStore.AppendExpected(ctx, ledgerID, AggregateType, eventType, data, led.Version)
	if err != nil {
		return err
	}

	if err := led.ApplyEvent(*storedEvent); err != nil {
		return err
	}
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, led, AggregateType); err != nil {
		log.Printf("[Ledger] Failed to create snapshot for %s: %v", ledgerID, err)
	}

	return nil
}

// planDraws allocates a deduction across available units, FIFO by
// collection date so the oldest stock leaves the fridge first
func planDraws(led *Ledger, need int) []UnitDraw {
	var draws []UnitDraw
	for _, unit := range led.availableFIFO() {
		if need == 0 {
			break
		}
		take := unit.Units
		if take > need {
			take = need
		}
		draws = append(draws, UnitDraw{UnitID: unit.ID, Units: take})
		need -= take
	}
	return draws
}

// MarkExpired flags available units whose expiry date has passed and
// subtracts them from the available count. Running it again on unchanged
// data finds nothing and emits no event.
func (s *Service) MarkExpired(ctx context.Context, bloodBankID, bloodType string, now time.Time) ([]ExpiredUnit, error) {
	led, found, err := s.Load(ctx, bloodBankID, bloodType)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownBloodType
	}

	var expired []ExpiredUnit
	total := 0
	for _, unit := range led.availableFIFO() {
		if unit.ExpiresAt.Before(now) {
			expired = append(expired, ExpiredUnit{
				UnitID:    unit.ID,
				Units:     unit.Units,
				ExpiresAt: unit.ExpiresAt,
			})
			total += unit.Units
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}

	event := UnitsExpired{
		BloodBankID: bloodBankID,
		BloodType:   bloodType,
		Expired:     expired,
		TotalUnits:  total,
		ExpiredAt:   now,
	}

	ledgerID := GetLedgerID(bloodBankID, bloodType)
	storedEvent, err := s.eventStore.AppendExpected(ctx, ledgerID, AggregateType, EventUnitsExpired, event, led.Version)
	if err != nil {
		return nil, err
	}

	if err := led.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, led, AggregateType); err != nil {
		log.Printf("[Ledger] Failed to create snapshot for %s: %v", ledgerID, err)
	}

	return expired, nil
}

// SetUnitStatus records an operator correction on a single unit
// (quarantine, critical flag, back to available)
func (s *Service) SetUnitStatus(ctx context.Context, bloodBankID, bloodType, unitID string, status UnitStatus) error {
	switch status {
	case StatusAvailable, StatusQuarantined, StatusCritical, StatusExpired:
	default:
		return ErrInvalidStatus
	}

	led, found, err := s.Load(ctx, bloodBankID, bloodType)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknownBloodType
	}
	unit, ok := led.Units[unitID]
	if !ok {
		return ErrUnitNotFound
	}

	event := UnitStatusChanged{
		BloodBankID: bloodBankID,
		BloodType:   bloodType,
		UnitID:      unitID,
		Units:       unit.Units,
		Status:      string(status),
		PrevStatus:  string(unit.Status),
		ChangedAt:   time.Now(),
	}

	ledgerID := GetLedgerID(bloodBankID, bloodType)
	storedEvent, err := s.eventStore.AppendExpected(ctx, ledgerID, AggregateType, EventUnitStatusChanged, event, led.Version)
	if err != nil {
		return err
	}
	return led.ApplyEvent(*storedEvent)
}

// RemoveUnit deletes a unit from stock entirely (manual correction)
func (s *Service) RemoveUnit(ctx context.Context, bloodBankID, bloodType, unitID string) error {
	led, found, err := s.Load(ctx, bloodBankID, bloodType)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknownBloodType
	}
	unit, ok := led.Units[unitID]
	if !ok {
		return ErrUnitNotFound
	}

	event := UnitRemoved{
		BloodBankID: bloodBankID,
		BloodType:   bloodType,
		UnitID:      unitID,
		Units:       unit.Units,
		Status:      string(unit.Status),
		RemovedAt:   time.Now(),
	}

	ledgerID := GetLedgerID(bloodBankID, bloodType)
	storedEvent, err := s.eventStore.AppendExpected(ctx, ledgerID, AggregateType, EventUnitRemoved, event, led.Version)
	if err != nil {
		return err
	}
	return led.ApplyEvent(*storedEvent)
}
