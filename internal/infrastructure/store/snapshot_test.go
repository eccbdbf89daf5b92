package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Struct(t *testing.T) {
	state := map[string]interface{}{
		"id":     "req-123",
		"status": "PROCESSING",
	}
	stateJSON, err := json.Marshal(state)
	require.NoError(t, err)

	snapshot := Snapshot{
		AggregateID:   "req-123",
		AggregateType: "BloodRequest",
		Version:       10,
		State:         stateJSON,
		CreatedAt:     time.Now(),
	}

	assert.Equal(t, "req-123", snapshot.AggregateID)
	assert.Equal(t, "BloodRequest", snapshot.AggregateType)
	assert.Equal(t, 10, snapshot.Version)
	assert.NotEmpty(t, snapshot.State)
	assert.NotZero(t, snapshot.CreatedAt)
}

func TestSnapshot_JSONMarshalUnmarshal(t *testing.T) {
	state := map[string]interface{}{
		"id":     "req-123",
		"status": "PROCESSING",
	}
	stateJSON, err := json.Marshal(state)
	require.NoError(t, err)

	original := Snapshot{
		AggregateID:   "req-123",
		AggregateType: "BloodRequest",
		Version:       10,
		State:         stateJSON,
		CreatedAt:     time.Now().Truncate(time.Second),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Snapshot
	err = json.Unmarshal(data, &restored)
	require.NoError(t, err)

	assert.Equal(t, original.AggregateID, restored.AggregateID)
	assert.Equal(t, original.AggregateType, restored.AggregateType)
	assert.Equal(t, original.Version, restored.Version)
	assert.JSONEq(t, string(original.State), string(restored.State))
}

func TestSnapshotThreshold(t *testing.T) {
	assert.Equal(t, 10, SnapshotThreshold)
}

func TestSnapshot_StateContainsValidJSON(t *testing.T) {
	type LedgerState struct {
		ID          string `json:"id"`
		BloodBankID string `json:"blood_bank_id"`
		BloodType   string `json:"blood_type"`
		Available   int    `json:"available"`
	}

	originalState := LedgerState{
		ID:          "ledger-bank-1-O+",
		BloodBankID: "bank-1",
		BloodType:   "O+",
		Available:   7,
	}

	stateJSON, err := json.Marshal(originalState)
	require.NoError(t, err)

	snapshot := &Snapshot{
		AggregateID:   "ledger-bank-1-O+",
		AggregateType: "Ledger",
		Version:       10,
		State:         stateJSON,
		CreatedAt:     time.Now(),
	}

	var restoredState LedgerState
	err = json.Unmarshal(snapshot.State, &restoredState)
	require.NoError(t, err)

	assert.Equal(t, originalState.ID, restoredState.ID)
	assert.Equal(t, originalState.BloodBankID, restoredState.BloodBankID)
	assert.Equal(t, originalState.BloodType, restoredState.BloodType)
	assert.Equal(t, originalState.Available, restoredState.Available)
}
