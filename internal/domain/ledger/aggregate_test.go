package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedgerService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func seedUnit(es *mocks.MockEventStore, bankID, bloodType, unitID string, units int, collectedAt, expiresAt time.Time) {
	_ = es.AddEvent(GetLedgerID(bankID, bloodType), AggregateType, EventStockReceived, StockReceived{
		BloodBankID: bankID,
		BloodType:   bloodType,
		UnitID:      unitID,
		Units:       units,
		Location:    "fridge-1",
		CollectedAt: collectedAt,
		ExpiresAt:   expiresAt,
		ReceivedAt:  collectedAt,
	})
}

// ============================================
// Receive Tests
// ============================================

func TestService_Receive_Success(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	collected := time.Now()
	expires := collected.Add(42 * 24 * time.Hour)

	unit, err := service.Receive(ctx, "bank-1", "O+", 5, "fridge-1", collected, expires)

	require.NoError(t, err)
	assert.NotEmpty(t, unit.ID)
	assert.Equal(t, 5, unit.Units)
	assert.Equal(t, "fridge-1", unit.Location)
	assert.Equal(t, StatusAvailable, unit.Status)

	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventStockReceived, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
	assert.Equal(t, GetLedgerID("bank-1", "O+"), eventStore.AppendCalls[0].AggregateID)
}

func TestService_Receive_ZeroUnits(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	unit, err := service.Receive(ctx, "bank-1", "O+", 0, "fridge-1", time.Now(), time.Now())

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Nil(t, unit)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_Receive_NegativeUnits(t *testing.T) {
	service, _ := newTestLedgerService()
	ctx := context.Background()

	unit, err := service.Receive(ctx, "bank-1", "O+", -3, "fridge-1", time.Now(), time.Now())

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Nil(t, unit)
}

func TestService_Receive_AccumulatesAcrossCalls(t *testing.T) {
	service, _ := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	_, err := service.Receive(ctx, "bank-1", "A+", 3, "fridge-1", now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = service.Receive(ctx, "bank-1", "A+", 4, "fridge-2", now, now.Add(time.Hour))
	require.NoError(t, err)

	available, err := service.Available(ctx, "bank-1", "A+")
	require.NoError(t, err)
	assert.Equal(t, 7, available)
}

// ============================================
// Available Tests
// ============================================

func TestService_Available_UnknownTypeReportsZero(t *testing.T) {
	service, _ := newTestLedgerService()
	ctx := context.Background()

	available, err := service.Available(ctx, "bank-1", "AB-")

	require.NoError(t, err)
	assert.Zero(t, available)
}

// ============================================
// Adjust Tests
// ============================================

func TestService_Adjust_PositiveDelta(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 5, now, now.Add(time.Hour))

	err := service.Adjust(ctx, "bank-1", "O+", 3, "manual correction")

	require.NoError(t, err)
	assert.Len(t, eventStore.AppendCalls, 1)
	call := eventStore.AppendCalls[0]
	assert.Equal(t, EventStockAdjusted, call.EventType)
	assert.Equal(t, 1, call.ExpectedVersion)

	available, err := service.Available(ctx, "bank-1", "O+")
	require.NoError(t, err)
	assert.Equal(t, 8, available)
}

func TestService_Adjust_NegativeDelta_DrawsFIFO(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-old", 3, now.Add(-48*time.Hour), now.Add(time.Hour))
	seedUnit(eventStore, "bank-1", "O+", "unit-new", 5, now, now.Add(time.Hour))

	err := service.Adjust(ctx, "bank-1", "O+", -4, "voucher:v-1")

	require.NoError(t, err)
	require.Len(t, eventStore.AppendCalls, 1)
	data := eventStore.AppendCalls[0].Data.(StockDeducted)
	require.Len(t, data.Draws, 2)
	// Oldest collection drained first
	assert.Equal(t, "unit-old", data.Draws[0].UnitID)
	assert.Equal(t, 3, data.Draws[0].Units)
	assert.Equal(t, "unit-new", data.Draws[1].UnitID)
	assert.Equal(t, 1, data.Draws[1].Units)

	available, err := service.Available(ctx, "bank-1", "O+")
	require.NoError(t, err)
	assert.Equal(t, 4, available)
}

func TestService_Adjust_InsufficientStock(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 2, now, now.Add(time.Hour))

	err := service.Adjust(ctx, "bank-1", "O+", -3, "voucher:v-1")

	assert.ErrorIs(t, err, ErrInsufficientStock)
	// No deduction event was appended; the count is untouched
	assert.Empty(t, eventStore.AppendCalls)
	available, err := service.Available(ctx, "bank-1", "O+")
	require.NoError(t, err)
	assert.Equal(t, 2, available)
}

func TestService_Adjust_ExactDrain(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "B+", "unit-1", 4, now, now.Add(time.Hour))

	err := service.Adjust(ctx, "bank-1", "B+", -4, "")

	require.NoError(t, err)
	available, err := service.Available(ctx, "bank-1", "B+")
	require.NoError(t, err)
	assert.Zero(t, available)
}

func TestService_Adjust_ZeroDelta(t *testing.T) {
	service, _ := newTestLedgerService()
	ctx := context.Background()

	err := service.Adjust(ctx, "bank-1", "O+", 0, "")

	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestService_Adjust_UnknownBloodType(t *testing.T) {
	service, _ := newTestLedgerService()
	ctx := context.Background()

	err := service.Adjust(ctx, "bank-1", "AB-", -1, "")

	assert.ErrorIs(t, err, ErrUnknownBloodType)
}

func TestService_Adjust_VersionConflict(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 5, now, now.Add(time.Hour))

	// Another writer advances the stream between load and append
	eventStore.AppendCallback = func(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
		return nil, store.ErrVersionConflict
	}

	err := service.Adjust(ctx, "bank-1", "O+", -1, "")

	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

// ============================================
// MarkExpired Tests
// ============================================

func TestService_MarkExpired_FlagsPastExpiry(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-stale", 3, now.Add(-72*time.Hour), now.Add(-time.Hour))
	seedUnit(eventStore, "bank-1", "O+", "unit-fresh", 5, now, now.Add(48*time.Hour))

	expired, err := service.MarkExpired(ctx, "bank-1", "O+", now)

	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "unit-stale", expired[0].UnitID)
	assert.Equal(t, 3, expired[0].Units)

	// Expired stock leaves the available count but stays in the fridge
	led, found, err := service.Load(ctx, "bank-1", "O+")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5, led.AvailableUnits)
	assert.Equal(t, 8, led.TotalUnits)
	assert.Equal(t, StatusExpired, led.Units["unit-stale"].Status)
}

func TestService_MarkExpired_Idempotent(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-stale", 3, now.Add(-72*time.Hour), now.Add(-time.Hour))

	expired, err := service.MarkExpired(ctx, "bank-1", "O+", now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Len(t, eventStore.AppendCalls, 1)

	// Second sweep finds nothing and emits no event
	expired, err = service.MarkExpired(ctx, "bank-1", "O+", now)
	require.NoError(t, err)
	assert.Nil(t, expired)
	assert.Len(t, eventStore.AppendCalls, 1)
}

func TestService_MarkExpired_NothingToExpire(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-fresh", 5, now, now.Add(48*time.Hour))

	expired, err := service.MarkExpired(ctx, "bank-1", "O+", now)

	require.NoError(t, err)
	assert.Nil(t, expired)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_MarkExpired_UnknownBloodType(t *testing.T) {
	service, _ := newTestLedgerService()
	ctx := context.Background()

	_, err := service.MarkExpired(ctx, "bank-1", "AB-", time.Now())

	assert.ErrorIs(t, err, ErrUnknownBloodType)
}

// ============================================
// SetUnitStatus / RemoveUnit Tests
// ============================================

func TestService_SetUnitStatus_Quarantine(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 4, now, now.Add(time.Hour))

	err := service.SetUnitStatus(ctx, "bank-1", "O+", "unit-1", StatusQuarantined)

	require.NoError(t, err)
	data := eventStore.AppendCalls[0].Data.(UnitStatusChanged)
	assert.Equal(t, 4, data.Units)
	assert.Equal(t, string(StatusAvailable), data.PrevStatus)
	assert.Equal(t, string(StatusQuarantined), data.Status)

	available, err := service.Available(ctx, "bank-1", "O+")
	require.NoError(t, err)
	assert.Zero(t, available)
}

func TestService_SetUnitStatus_BackToAvailable(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 4, now, now.Add(time.Hour))
	require.NoError(t, service.SetUnitStatus(ctx, "bank-1", "O+", "unit-1", StatusQuarantined))

	err := service.SetUnitStatus(ctx, "bank-1", "O+", "unit-1", StatusAvailable)

	require.NoError(t, err)
	available, err := service.Available(ctx, "bank-1", "O+")
	require.NoError(t, err)
	assert.Equal(t, 4, available)
}

func TestService_SetUnitStatus_InvalidStatus(t *testing.T) {
	service, _ := newTestLedgerService()
	ctx := context.Background()

	err := service.SetUnitStatus(ctx, "bank-1", "O+", "unit-1", UnitStatus("frozen"))

	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_SetUnitStatus_UnitNotFound(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 4, now, now.Add(time.Hour))

	err := service.SetUnitStatus(ctx, "bank-1", "O+", "no-such-unit", StatusCritical)

	assert.ErrorIs(t, err, ErrUnitNotFound)
}

func TestService_RemoveUnit_Success(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 4, now, now.Add(time.Hour))
	seedUnit(eventStore, "bank-1", "O+", "unit-2", 2, now, now.Add(time.Hour))

	err := service.RemoveUnit(ctx, "bank-1", "O+", "unit-1")

	require.NoError(t, err)
	led, found, err := service.Load(ctx, "bank-1", "O+")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, led.AvailableUnits)
	assert.Equal(t, 2, led.TotalUnits)
	assert.NotContains(t, led.Units, "unit-1")
}

func TestService_RemoveUnit_NotFound(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 4, now, now.Add(time.Hour))

	err := service.RemoveUnit(ctx, "bank-1", "O+", "ghost")

	assert.ErrorIs(t, err, ErrUnitNotFound)
}

// ============================================
// Error Path Tests
// ============================================

func TestService_Receive_EventStoreError(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	eventStore.AppendErr = errors.New("database error")

	unit, err := service.Receive(ctx, "bank-1", "O+", 3, "fridge-1", time.Now(), time.Now())

	assert.Error(t, err)
	assert.Nil(t, unit)
}

func TestService_Adjust_EventStoreError(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	now := time.Now()
	seedUnit(eventStore, "bank-1", "O+", "unit-1", 5, now, now.Add(time.Hour))
	eventStore.AppendErr = errors.New("database error")

	err := service.Adjust(ctx, "bank-1", "O+", -1, "")

	assert.Error(t, err)
}

// ============================================
// Snapshot Tests
// ============================================

func TestService_SnapshotCreatedAtThreshold(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	bankID, bloodType := "bank-1", "O+"
	now := time.Now()
	for i := 0; i < 9; i++ {
		seedUnit(eventStore, bankID, bloodType, "unit-"+string(rune('a'+i)), 1, now, now.Add(time.Hour))
	}

	// The 10th event triggers a snapshot
	_, err := service.Receive(ctx, bankID, bloodType, 1, "fridge-1", now, now.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, eventStore.SaveSnapshotCalls, 1)
	snap := eventStore.SaveSnapshotCalls[0].Snapshot
	assert.Equal(t, GetLedgerID(bankID, bloodType), snap.AggregateID)
	assert.Equal(t, 10, snap.Version)
}

func TestService_LoadFromSnapshot(t *testing.T) {
	service, eventStore := newTestLedgerService()
	ctx := context.Background()

	ledgerID := GetLedgerID("bank-1", "O+")
	state := Ledger{
		ID:          ledgerID,
		BloodBankID: "bank-1",
		BloodType:   "O+",
		Units: map[string]BloodUnit{
			"unit-1": {ID: "unit-1", Units: 6, Status: StatusAvailable, ExpiresAt: time.Now().Add(time.Hour)},
		},
		AvailableUnits: 6,
		TotalUnits:     6,
		Version:        10,
	}
	stateJSON, _ := json.Marshal(state)
	eventStore.SetSnapshot(&store.Snapshot{
		AggregateID:   ledgerID,
		AggregateType: AggregateType,
		Version:       10,
		State:         stateJSON,
	})

	available, err := service.Available(ctx, "bank-1", "O+")

	require.NoError(t, err)
	assert.Equal(t, 6, available)
}
