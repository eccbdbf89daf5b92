package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresReadStore_ImplementsReadStoreInterface(t *testing.T) {
	var rs ReadStoreInterface = NewPostgresReadStore(nil)
	assert.NotNil(t, rs)
}

func TestPostgresReadStore_UnknownCollection(t *testing.T) {
	// The dispatch switches ignore collections they don't know about, so
	// none of these touch the database.
	rs := NewPostgresReadStore(nil)

	rs.Set("unknown", "id-1", struct{}{})

	_, found, err := rs.Get("unknown", "id-1")
	require.NoError(t, err)
	assert.False(t, found)

	items, err := rs.GetAll("unknown")
	require.NoError(t, err)
	assert.Nil(t, items)

	rs.Delete("unknown", "id-1")

	assert.False(t, rs.Update("unknown", "id-1", func(current any) any { return current }))
}

func TestReadTables_CoverAllCollections(t *testing.T) {
	expected := map[string]string{
		"requests":   "read_requests",
		"deliveries": "read_deliveries",
		"vouchers":   "read_vouchers",
		"inventory":  "read_inventory",
		"banks":      "read_banks",
		"rewards":    "read_rewards",
		"users":      "read_users",
		"sessions":   "user_sessions",
	}
	assert.Equal(t, expected, readTables)
}
