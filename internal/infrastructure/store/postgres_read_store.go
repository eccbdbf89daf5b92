package store

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"

	"github.com/example/bloodnet-event-driven/internal/readmodel"
)

// PostgresReadStore implements ReadStoreInterface using PostgreSQL
type PostgresReadStore struct {
	db *sql.DB
	mu sync.RWMutex // serializes read-modify-write cycles in Update
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.setUnsafe(collection, id, data)
}

func (rs *PostgresReadStore) setUnsafe(collection, id string, data any) {
	switch collection {
	case "requests":
		rs.setRequest(id, data.(*readmodel.RequestReadModel))
	case "deliveries":
		rs.setDelivery(id, data.(*readmodel.DeliveryReadModel))
	case "vouchers":
		rs.setVoucher(id, data.(*readmodel.VoucherReadModel))
	case "inventory":
		rs.setInventory(id, data.(*readmodel.InventoryReadModel))
	case "banks":
		rs.setBank(id, data.(*readmodel.BankReadModel))
	case "rewards":
		rs.setReward(id, data.(*readmodel.RewardReadModel))
	case "users":
		rs.setUser(id, data.(*readmodel.UserReadModel))
	case "sessions":
		rs.setSession(id, data.(*readmodel.SessionReadModel))
	}
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.getUnsafe(collection, id)
}

func (rs *PostgresReadStore) getUnsafe(collection, id string) (any, bool, error) {
	switch collection {
	case "requests":
		return rs.getRequest(id)
	case "deliveries":
		return rs.getDelivery(id)
	case "vouchers":
		return rs.getVoucher(id)
	case "inventory":
		return rs.getInventory(id)
	case "banks":
		return rs.getBank(id)
	case "rewards":
		return rs.getReward(id)
	case "users":
		return rs.getUser(id)
	case "sessions":
		return rs.getSession(id)
	}
	return nil, false, nil
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(collection string) ([]any, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	switch collection {
	case "requests":
		return rs.getAllRequests()
	case "deliveries":
		return rs.getAllDeliveries()
	case "vouchers":
		return rs.getAllVouchers()
	case "inventory":
		return rs.getAllInventory()
	case "banks":
		return rs.getAllBanks()
	case "rewards":
		return rs.getAllRewards()
	case "users":
		return rs.getAllUsers()
	case "sessions":
		return rs.getAllSessions()
	}
	return nil, nil
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	tableName, ok := readTables[collection]
	if !ok {
		return
	}

	_, err := rs.db.Exec("DELETE FROM "+tableName+" WHERE id = $1", id)
	if err != nil {
		log.Printf("[PostgresReadStore] Error deleting from %s: %v", collection, err)
	}
}

var readTables = map[string]string{
	"requests":   "read_requests",
	"deliveries": "read_deliveries",
	"vouchers":   "read_vouchers",
	"inventory":  "read_inventory",
	"banks":      "read_banks",
	"rewards":    "read_rewards",
	"users":      "read_users",
	"sessions":   "user_sessions",
}

// Update modifies a read model using an update function
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	current, found, err := rs.getUnsafe(collection, id)
	if err != nil || !found {
		return false
	}

	rs.setUnsafe(collection, id, updateFn(current))
	return true
}

// --- requests ---

func (rs *PostgresReadStore) setRequest(id string, m *readmodel.RequestReadModel) {
	items, _ := json.Marshal(m.Items)
	_, err := rs.db.Exec(
		`INSERT INTO read_requests (id, hospital_id, blood_source_id, items, request_date, date_needed, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE
		 SET hospital_id = EXCLUDED.hospital_id,
		     blood_source_id = EXCLUDED.blood_source_id,
		     items = EXCLUDED.items,
		     request_date = EXCLUDED.request_date,
		     date_needed = EXCLUDED.date_needed,
		     status = EXCLUDED.status,
		     updated_at = EXCLUDED.updated_at`,
		id, m.HospitalID, m.BloodSourceID, items, m.RequestDate, m.DateNeeded, m.Status, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting request %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getRequest(id string) (any, bool, error) {
	var m readmodel.RequestReadModel
	var items []byte
	err := rs.db.QueryRow(
		`SELECT id, hospital_id, blood_source_id, items, request_date, date_needed, status, created_at, updated_at
		 FROM read_requests WHERE id = $1`, id,
	).Scan(&m.ID, &m.HospitalID, &m.BloodSourceID, &items, &m.RequestDate, &m.DateNeeded, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(items, &m.Items); err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllRequests() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, hospital_id, blood_source_id, items, request_date, date_needed, status, created_at, updated_at
		 FROM read_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.RequestReadModel
		var items []byte
		if err := rows.Scan(&m.ID, &m.HospitalID, &m.BloodSourceID, &items, &m.RequestDate, &m.DateNeeded, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			continue
		}
		if err := json.Unmarshal(items, &m.Items); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// --- deliveries ---

func (rs *PostgresReadStore) setDelivery(id string, m *readmodel.DeliveryReadModel) {
	_, err := rs.db.Exec(
		`INSERT INTO read_deliveries (id, request_id, status, scheduled_date, departed_at, delivered_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		 SET request_id = EXCLUDED.request_id,
		     status = EXCLUDED.status,
		     scheduled_date = EXCLUDED.scheduled_date,
		     departed_at = EXCLUDED.departed_at,
		     delivered_date = EXCLUDED.delivered_date,
		     updated_at = EXCLUDED.updated_at`,
		id, m.RequestID, m.Status, m.ScheduledDate, m.DepartedAt, m.DeliveredDate, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting delivery %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getDelivery(id string) (any, bool, error) {
	var m readmodel.DeliveryReadModel
	err := rs.db.QueryRow(
		`SELECT id, request_id, status, scheduled_date, departed_at, delivered_date, created_at, updated_at
		 FROM read_deliveries WHERE id = $1`, id,
	).Scan(&m.ID, &m.RequestID, &m.Status, &m.ScheduledDate, &m.DepartedAt, &m.DeliveredDate, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllDeliveries() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, request_id, status, scheduled_date, departed_at, delivered_date, created_at, updated_at
		 FROM read_deliveries ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.DeliveryReadModel
		if err := rows.Scan(&m.ID, &m.RequestID, &m.Status, &m.ScheduledDate, &m.DepartedAt, &m.DeliveredDate, &m.CreatedAt, &m.UpdatedAt); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// --- vouchers ---

func (rs *PostgresReadStore) setVoucher(id string, m *readmodel.VoucherReadModel) {
	_, err := rs.db.Exec(
		`INSERT INTO read_vouchers (id, donor_id, blood_type, code, status, bound_blood_bank_id, bound_storage_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status,
		     bound_blood_bank_id = EXCLUDED.bound_blood_bank_id,
		     bound_storage_id = EXCLUDED.bound_storage_id,
		     updated_at = EXCLUDED.updated_at`,
		id, m.DonorID, m.BloodType, m.Code, m.Status, m.BoundBloodBankID, m.BoundStorageID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting voucher %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getVoucher(id string) (any, bool, error) {
	var m readmodel.VoucherReadModel
	err := rs.db.QueryRow(
		`SELECT id, donor_id, blood_type, code, status, bound_blood_bank_id, bound_storage_id, created_at, updated_at
		 FROM read_vouchers WHERE id = $1`, id,
	).Scan(&m.ID, &m.DonorID, &m.BloodType, &m.Code, &m.Status, &m.BoundBloodBankID, &m.BoundStorageID, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllVouchers() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, donor_id, blood_type, code, status, bound_blood_bank_id, bound_storage_id, created_at, updated_at
		 FROM read_vouchers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.VoucherReadModel
		if err := rows.Scan(&m.ID, &m.DonorID, &m.BloodType, &m.Code, &m.Status, &m.BoundBloodBankID, &m.BoundStorageID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// --- inventory ---

func (rs *PostgresReadStore) setInventory(id string, m *readmodel.InventoryReadModel) {
	_, err := rs.db.Exec(
		`INSERT INTO read_inventory (id, blood_bank_id, blood_type, available_units, total_units, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET available_units = EXCLUDED.available_units,
		     total_units = EXCLUDED.total_units,
		     updated_at = EXCLUDED.updated_at`,
		id, m.BloodBankID, m.BloodType, m.AvailableUnits, m.TotalUnits, m.UpdatedAt,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting inventory %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getInventory(id string) (any, bool, error) {
	var m readmodel.InventoryReadModel
	err := rs.db.QueryRow(
		`SELECT id, blood_bank_id, blood_type, available_units, total_units, updated_at
		 FROM read_inventory WHERE id = $1`, id,
	).Scan(&m.LedgerID, &m.BloodBankID, &m.BloodType, &m.AvailableUnits, &m.TotalUnits, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllInventory() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, blood_bank_id, blood_type, available_units, total_units, updated_at
		 FROM read_inventory ORDER BY blood_bank_id, blood_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.InventoryReadModel
		if err := rows.Scan(&m.LedgerID, &m.BloodBankID, &m.BloodType, &m.AvailableUnits, &m.TotalUnits, &m.UpdatedAt); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// --- banks ---

func (rs *PostgresReadStore) setBank(id string, m *readmodel.BankReadModel) {
	storages, _ := json.Marshal(m.Storages)
	_, err := rs.db.Exec(
		`INSERT INTO read_banks (id, name, slug, address, contact_email, storages, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     slug = EXCLUDED.slug,
		     address = EXCLUDED.address,
		     contact_email = EXCLUDED.contact_email,
		     storages = EXCLUDED.storages,
		     updated_at = EXCLUDED.updated_at`,
		id, m.Name, m.Slug, m.Address, m.ContactEmail, storages, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting bank %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getBank(id string) (any, bool, error) {
	var m readmodel.BankReadModel
	var storages []byte
	err := rs.db.QueryRow(
		`SELECT id, name, slug, address, contact_email, storages, created_at, updated_at
		 FROM read_banks WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Slug, &m.Address, &m.ContactEmail, &storages, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(storages, &m.Storages); err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllBanks() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, name, slug, address, contact_email, storages, created_at, updated_at
		 FROM read_banks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.BankReadModel
		var storages []byte
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.Address, &m.ContactEmail, &storages, &m.CreatedAt, &m.UpdatedAt); err != nil {
			continue
		}
		if err := json.Unmarshal(storages, &m.Storages); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// --- rewards ---

func (rs *PostgresReadStore) setReward(id string, m *readmodel.RewardReadModel) {
	_, err := rs.db.Exec(
		`INSERT INTO read_rewards (id, donor_id, points, lifetime_points, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET points = EXCLUDED.points,
		     lifetime_points = EXCLUDED.lifetime_points,
		     updated_at = EXCLUDED.updated_at`,
		id, m.DonorID, m.Points, m.LifetimePoints, m.UpdatedAt,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting reward %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getReward(id string) (any, bool, error) {
	var m readmodel.RewardReadModel
	err := rs.db.QueryRow(
		`SELECT donor_id, points, lifetime_points, updated_at FROM read_rewards WHERE id = $1`, id,
	).Scan(&m.DonorID, &m.Points, &m.LifetimePoints, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllRewards() ([]any, error) {
	rows, err := rs.db.Query(`SELECT donor_id, points, lifetime_points, updated_at FROM read_rewards`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.RewardReadModel
		if err := rows.Scan(&m.DonorID, &m.Points, &m.LifetimePoints, &m.UpdatedAt); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// --- users ---

func (rs *PostgresReadStore) setUser(id string, m *readmodel.UserReadModel) {
	_, err := rs.db.Exec(
		`INSERT INTO read_users (id, email, password_hash, name, role, org_id, blood_type, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email,
		     password_hash = EXCLUDED.password_hash,
		     name = EXCLUDED.name,
		     role = EXCLUDED.role,
		     org_id = EXCLUDED.org_id,
		     blood_type = EXCLUDED.blood_type,
		     is_active = EXCLUDED.is_active,
		     updated_at = EXCLUDED.updated_at`,
		id, m.Email, m.PasswordHash, m.Name, m.Role, m.OrgID, m.BloodType, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting user %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getUser(id string) (any, bool, error) {
	var m readmodel.UserReadModel
	err := rs.db.QueryRow(
		`SELECT id, email, password_hash, name, role, org_id, blood_type, is_active, created_at, updated_at
		 FROM read_users WHERE id = $1`, id,
	).Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Name, &m.Role, &m.OrgID, &m.BloodType, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllUsers() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, email, password_hash, name, role, org_id, blood_type, is_active, created_at, updated_at
		 FROM read_users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.UserReadModel
		if err := rows.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Name, &m.Role, &m.OrgID, &m.BloodType, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// --- sessions ---

func (rs *PostgresReadStore) setSession(id string, m *readmodel.SessionReadModel) {
	_, err := rs.db.Exec(
		`INSERT INTO user_sessions (id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET refresh_token_hash = EXCLUDED.refresh_token_hash,
		     expires_at = EXCLUDED.expires_at`,
		id, m.UserID, m.RefreshTokenHash, m.ExpiresAt, m.CreatedAt, m.IPAddress, m.UserAgent,
	)
	if err != nil {
		log.Printf("[PostgresReadStore] Error setting session %s: %v", id, err)
	}
}

func (rs *PostgresReadStore) getSession(id string) (any, bool, error) {
	var m readmodel.SessionReadModel
	err := rs.db.QueryRow(
		`SELECT id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent
		 FROM user_sessions WHERE id = $1`, id,
	).Scan(&m.ID, &m.UserID, &m.RefreshTokenHash, &m.ExpiresAt, &m.CreatedAt, &m.IPAddress, &m.UserAgent)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func (rs *PostgresReadStore) getAllSessions() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent
		 FROM user_sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var m readmodel.SessionReadModel
		if err := rows.Scan(&m.ID, &m.UserID, &m.RefreshTokenHash, &m.ExpiresAt, &m.CreatedAt, &m.IPAddress, &m.UserAgent); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}
