package rewards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/bloodnet-event-driven/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRewardsService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func seedPoints(es *mocks.MockEventStore, donorID string, points int) {
	accountID := GetAccountID(donorID)
	_ = es.AddEvent(accountID, AggregateType, EventPointsEarned, PointsEarned{
		AccountID:  accountID,
		DonorID:    donorID,
		Points:     points,
		DonationID: "donation-1",
		EarnedAt:   time.Now(),
	})
}

// ============================================
// Load Tests
// ============================================

func TestService_Load_NoHistory(t *testing.T) {
	service, _ := newTestRewardsService()
	ctx := context.Background()

	acct, err := service.Load(ctx, "donor-1")

	require.NoError(t, err)
	assert.Equal(t, GetAccountID("donor-1"), acct.ID)
	assert.Equal(t, "donor-1", acct.DonorID)
	assert.Zero(t, acct.Balance)
	assert.Zero(t, acct.LifetimePoints)
}

func TestGetAccountID(t *testing.T) {
	assert.Equal(t, "rewards-donor-1", GetAccountID("donor-1"))
}

// ============================================
// Earn Tests
// ============================================

func TestService_Earn_Success(t *testing.T) {
	service, eventStore := newTestRewardsService()
	ctx := context.Background()

	acct, err := service.Earn(ctx, "donor-1", "donation-1", PointsPerDonation)

	require.NoError(t, err)
	assert.Equal(t, PointsPerDonation, acct.Balance)
	assert.Equal(t, PointsPerDonation, acct.LifetimePoints)

	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventPointsEarned, eventStore.AppendCalls[0].EventType)
	data := eventStore.AppendCalls[0].Data.(PointsEarned)
	assert.Equal(t, "donation-1", data.DonationID)
}

func TestService_Earn_Accumulates(t *testing.T) {
	service, _ := newTestRewardsService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := service.Earn(ctx, "donor-1", "donation", PointsPerDonation)
		require.NoError(t, err)
	}

	acct, err := service.Load(ctx, "donor-1")
	require.NoError(t, err)
	assert.Equal(t, 5*PointsPerDonation, acct.Balance)
	assert.Equal(t, 5*PointsPerDonation, acct.LifetimePoints)
}

func TestService_Earn_InvalidPoints(t *testing.T) {
	service, eventStore := newTestRewardsService()
	ctx := context.Background()

	acct, err := service.Earn(ctx, "donor-1", "donation-1", 0)

	assert.ErrorIs(t, err, ErrInvalidPoints)
	assert.Nil(t, acct)
	assert.Empty(t, eventStore.AppendCalls)
}

// ============================================
// Redeem Tests
// ============================================

func TestService_Redeem_Success(t *testing.T) {
	service, eventStore := newTestRewardsService()
	ctx := context.Background()

	seedPoints(eventStore, "donor-1", 600)

	acct, err := service.Redeem(ctx, "donor-1", "voucher-1", VoucherCost)

	require.NoError(t, err)
	assert.Equal(t, 100, acct.Balance)
	// Redemption never touches lifetime points
	assert.Equal(t, 600, acct.LifetimePoints)

	assert.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventPointsRedeemed, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, 1, eventStore.AppendCalls[0].ExpectedVersion)
	data := eventStore.AppendCalls[0].Data.(PointsRedeemed)
	assert.Equal(t, "voucher-1", data.VoucherID)
}

func TestService_Redeem_ExactBalance(t *testing.T) {
	service, eventStore := newTestRewardsService()
	ctx := context.Background()

	seedPoints(eventStore, "donor-1", VoucherCost)

	acct, err := service.Redeem(ctx, "donor-1", "voucher-1", VoucherCost)

	require.NoError(t, err)
	assert.Zero(t, acct.Balance)
}

func TestService_Redeem_InsufficientPoints(t *testing.T) {
	service, eventStore := newTestRewardsService()
	ctx := context.Background()

	seedPoints(eventStore, "donor-1", 400)

	acct, err := service.Redeem(ctx, "donor-1", "voucher-1", VoucherCost)

	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Nil(t, acct)
	assert.Empty(t, eventStore.AppendCalls)

	// Balance untouched
	loaded, err := service.Load(ctx, "donor-1")
	require.NoError(t, err)
	assert.Equal(t, 400, loaded.Balance)
}

func TestService_Redeem_NoHistory(t *testing.T) {
	service, _ := newTestRewardsService()
	ctx := context.Background()

	_, err := service.Redeem(ctx, "donor-unknown", "voucher-1", VoucherCost)

	assert.ErrorIs(t, err, ErrInsufficientPoints)
}

func TestService_Redeem_InvalidPoints(t *testing.T) {
	service, _ := newTestRewardsService()
	ctx := context.Background()

	_, err := service.Redeem(ctx, "donor-1", "voucher-1", -100)

	assert.ErrorIs(t, err, ErrInvalidPoints)
}

// ============================================
// Full Earn/Redeem Cycle
// ============================================

func TestRewardsCycle_EarnThenRedeem(t *testing.T) {
	service, _ := newTestRewardsService()
	ctx := context.Background()

	// Five donations fund one voucher
	for i := 0; i < 5; i++ {
		_, err := service.Earn(ctx, "donor-1", "donation", PointsPerDonation)
		require.NoError(t, err)
	}

	acct, err := service.Redeem(ctx, "donor-1", "voucher-1", VoucherCost)
	require.NoError(t, err)
	assert.Zero(t, acct.Balance)

	// A second voucher needs five more donations
	_, err = service.Redeem(ctx, "donor-1", "voucher-2", VoucherCost)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
}

// ============================================
// Error Path Tests
// ============================================

func TestService_Earn_EventStoreError(t *testing.T) {
	service, eventStore := newTestRewardsService()
	ctx := context.Background()

	eventStore.AppendErr = errors.New("database error")

	acct, err := service.Earn(ctx, "donor-1", "donation-1", PointsPerDonation)

	assert.Error(t, err)
	assert.Nil(t, acct)
}

func TestService_Redeem_EventStoreError(t *testing.T) {
	service, eventStore := newTestRewardsService()
	ctx := context.Background()

	seedPoints(eventStore, "donor-1", 600)
	eventStore.AppendErr = errors.New("database error")

	_, err := service.Redeem(ctx, "donor-1", "voucher-1", VoucherCost)

	assert.Error(t, err)
}
