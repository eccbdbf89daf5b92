package query

import (
	"testing"

	"github.com/example/bloodnet-event-driven/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueryHandler() (*Handler, *mocks.MockReadStore) {
	readStore := mocks.NewMockReadStore()
	handler := NewHandler(readStore)
	return handler, readStore
}

// ============================================
// Request Query Tests
// ============================================

func TestHandler_GetRequest_Found(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("requests", "req-1", &RequestReadModel{ID: "req-1", HospitalID: "hospital-1", Status: "PENDING"})

	r, ok := handler.GetRequest("req-1")

	require.True(t, ok)
	assert.Equal(t, "req-1", r.ID)
	assert.Equal(t, "PENDING", r.Status)
}

func TestHandler_GetRequest_NotFound(t *testing.T) {
	handler, _ := newTestQueryHandler()

	r, ok := handler.GetRequest("no-such-request")

	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestHandler_ListRequestsByHospital(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("requests", "req-1", &RequestReadModel{ID: "req-1", HospitalID: "hospital-1"})
	readStore.SetData("requests", "req-2", &RequestReadModel{ID: "req-2", HospitalID: "hospital-2"})
	readStore.SetData("requests", "req-3", &RequestReadModel{ID: "req-3", HospitalID: "hospital-1"})

	requests := handler.ListRequestsByHospital("hospital-1")

	assert.Len(t, requests, 2)
	for _, r := range requests {
		assert.Equal(t, "hospital-1", r.HospitalID)
	}
}

func TestHandler_ListAllRequests(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("requests", "req-1", &RequestReadModel{ID: "req-1", HospitalID: "hospital-1"})
	readStore.SetData("requests", "req-2", &RequestReadModel{ID: "req-2", HospitalID: "hospital-2"})

	assert.Len(t, handler.ListAllRequests(), 2)
}

func TestHandler_ListRequests_Empty(t *testing.T) {
	handler, _ := newTestQueryHandler()

	assert.Empty(t, handler.ListRequestsByHospital("hospital-1"))
	assert.Empty(t, handler.ListAllRequests())
}

// ============================================
// Delivery Query Tests
// ============================================

func TestHandler_GetDelivery_Found(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("deliveries", "del-1", &DeliveryReadModel{ID: "del-1", RequestID: "req-1", Status: "SCHEDULED"})

	d, ok := handler.GetDelivery("del-1")

	require.True(t, ok)
	assert.Equal(t, "req-1", d.RequestID)
}

func TestHandler_GetDeliveryByRequest(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("deliveries", "del-1", &DeliveryReadModel{ID: "del-1", RequestID: "req-1"})
	readStore.SetData("deliveries", "del-2", &DeliveryReadModel{ID: "del-2", RequestID: "req-2"})

	d, ok := handler.GetDeliveryByRequest("req-2")

	require.True(t, ok)
	assert.Equal(t, "del-2", d.ID)

	_, ok = handler.GetDeliveryByRequest("req-99")
	assert.False(t, ok)
}

// ============================================
// Voucher Query Tests
// ============================================

func TestHandler_ListVouchersByDonor(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("vouchers", "v-1", &VoucherReadModel{ID: "v-1", DonorID: "donor-1", Status: "PENDING"})
	readStore.SetData("vouchers", "v-2", &VoucherReadModel{ID: "v-2", DonorID: "donor-2", Status: "PENDING"})

	vouchers := handler.ListVouchersByDonor("donor-1")

	require.Len(t, vouchers, 1)
	assert.Equal(t, "v-1", vouchers[0].ID)
}

func TestHandler_ListOpenVouchers_ExcludesCompleted(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("vouchers", "v-1", &VoucherReadModel{ID: "v-1", Status: "PENDING"})
	readStore.SetData("vouchers", "v-2", &VoucherReadModel{ID: "v-2", Status: "PROCESSING"})
	readStore.SetData("vouchers", "v-3", &VoucherReadModel{ID: "v-3", Status: "COMPLETED"})
	readStore.SetData("vouchers", "v-4", &VoucherReadModel{ID: "v-4", Status: "CANCELLED"})

	vouchers := handler.ListOpenVouchers()

	// Cancelled vouchers stay visible; completed ones drop out
	assert.Len(t, vouchers, 3)
	for _, v := range vouchers {
		assert.NotEqual(t, "COMPLETED", v.Status)
	}
}

// ============================================
// Inventory Query Tests
// ============================================

func TestHandler_GetInventory(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("inventory", "ledger-bank-1-O+", &InventoryReadModel{
		LedgerID:       "ledger-bank-1-O+",
		BloodBankID:    "bank-1",
		BloodType:      "O+",
		AvailableUnits: 7,
		TotalUnits:     9,
	})

	inv, ok := handler.GetInventory("ledger-bank-1-O+")

	require.True(t, ok)
	assert.Equal(t, 7, inv.AvailableUnits)
	assert.Equal(t, 9, inv.TotalUnits)
}

func TestHandler_GetInventorySummary_FiltersAndSorts(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("inventory", "ledger-bank-1-O+", &InventoryReadModel{BloodBankID: "bank-1", BloodType: "O+", AvailableUnits: 7, TotalUnits: 9})
	readStore.SetData("inventory", "ledger-bank-1-A+", &InventoryReadModel{BloodBankID: "bank-1", BloodType: "A+", AvailableUnits: 3, TotalUnits: 3})
	readStore.SetData("inventory", "ledger-bank-2-O+", &InventoryReadModel{BloodBankID: "bank-2", BloodType: "O+", AvailableUnits: 1, TotalUnits: 1})

	summary := handler.GetInventorySummary("bank-1")

	require.Len(t, summary, 2)
	assert.Equal(t, "A+", summary[0].BloodType)
	assert.Equal(t, 3, summary[0].Available)
	assert.Equal(t, "O+", summary[1].BloodType)
	assert.Equal(t, 7, summary[1].Available)
}

func TestHandler_GetInventorySummary_UnknownBank(t *testing.T) {
	handler, _ := newTestQueryHandler()

	assert.Empty(t, handler.GetInventorySummary("bank-99"))
}

// ============================================
// Bank Query Tests
// ============================================

func TestHandler_GetBank_AndList(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("banks", "bank-1", &BankReadModel{ID: "bank-1", Name: "Central", Slug: "central"})
	readStore.SetData("banks", "bank-2", &BankReadModel{ID: "bank-2", Name: "North", Slug: "north"})

	b, ok := handler.GetBank("bank-1")
	require.True(t, ok)
	assert.Equal(t, "Central", b.Name)

	assert.Len(t, handler.ListBanks(), 2)
}

// ============================================
// Rewards Query Tests
// ============================================

func TestHandler_GetRewardBalance_Found(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("rewards", "donor-1", &RewardReadModel{DonorID: "donor-1", Points: 300, LifetimePoints: 800})

	r, ok := handler.GetRewardBalance("donor-1")

	require.True(t, ok)
	assert.Equal(t, 300, r.Points)
	assert.Equal(t, 800, r.LifetimePoints)
}

func TestHandler_GetRewardBalance_NoHistoryIsZero(t *testing.T) {
	handler, _ := newTestQueryHandler()

	r, ok := handler.GetRewardBalance("donor-new")

	// Donors without history read as a zero balance, not a miss
	require.True(t, ok)
	assert.Equal(t, "donor-new", r.DonorID)
	assert.Zero(t, r.Points)
}

// ============================================
// User Query Tests
// ============================================

func TestHandler_GetUser(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("users", "user-1", &UserReadModel{ID: "user-1", Email: "a@example.com", Role: "donor"})

	u, ok := handler.GetUser("user-1")

	require.True(t, ok)
	assert.Equal(t, "a@example.com", u.Email)
}

func TestHandler_GetUserByEmail(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("users", "user-1", &UserReadModel{ID: "user-1", Email: "a@example.com"})
	readStore.SetData("users", "user-2", &UserReadModel{ID: "user-2", Email: "b@example.com"})

	u, ok := handler.GetUserByEmail("b@example.com")
	require.True(t, ok)
	assert.Equal(t, "user-2", u.ID)

	_, ok = handler.GetUserByEmail("missing@example.com")
	assert.False(t, ok)
}

// ============================================
// Session Query Tests
// ============================================

func TestHandler_GetSession(t *testing.T) {
	handler, readStore := newTestQueryHandler()

	readStore.SetData("sessions", "session-1", &SessionReadModel{ID: "session-1", UserID: "user-1"})

	s, ok := handler.GetSession("session-1")
	require.True(t, ok)
	assert.Equal(t, "user-1", s.UserID)

	_, ok = handler.GetSession("missing")
	assert.False(t, ok)
}
