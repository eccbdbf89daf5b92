package bank

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/example/bloodnet-event-driven/internal/domain/aggregate"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "BloodBank"

var (
	ErrBankNotFound    = errors.New("blood bank not found")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidSlug     = errors.New("invalid slug format")
	ErrStorageNotFound = errors.New("storage not found in blood bank")
	ErrDuplicateName   = errors.New("storage with this name already exists")
)

// slugRegex validates slug format (lowercase letters, numbers, hyphens)
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Storage is one refrigerated storage unit inside a blood bank
type Storage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Bank represents a registered blood bank and its storages
type Bank struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Address      string    `json:"address"`
	ContactEmail string    `json:"contact_email"`
	Storages     []Storage `json:"storages"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// Aggregate interface implementation
func (b *Bank) GetID() string    { return b.ID }
func (b *Bank) GetVersion() int  { return b.Version }
func (b *Bank) SetVersion(v int) { b.Version = v }

// HasStorage reports whether the given storage belongs to this bank
func (b *Bank) HasStorage(storageID string) bool {
	for _, st := range b.Storages {
		if st.ID == storageID {
			return true
		}
	}
	return false
}

// ApplyEvent applies a single event to the bank state
func (b *Bank) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventBankRegistered:
		var data BankRegistered
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		b.ID = data.BankID
		b.Name = data.Name
		b.Slug = data.Slug
		b.Address = data.Address
		b.ContactEmail = data.ContactEmail
		b.CreatedAt = data.RegisteredAt
		b.UpdatedAt = data.RegisteredAt
	case EventBankUpdated:
		var data BankUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		b.Name = data.Name
		b.Slug = data.Slug
		b.Address = data.Address
		b.ContactEmail = data.ContactEmail
		b.UpdatedAt = data.UpdatedAt
	case EventStorageAdded:
		var data StorageAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		b.Storages = append(b.Storages, Storage{
			ID:       data.StorageID,
			Name:     data.Name,
			Capacity: data.Capacity,
		})
		b.UpdatedAt = data.AddedAt
	case EventStorageRemoved:
		var data StorageRemoved
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		for i, st := range b.Storages {
			if st.ID == data.StorageID {
				b.Storages = append(b.Storages[:i], b.Storages[i+1:]...)
				break
			}
		}
		b.UpdatedAt = data.RemovedAt
	}
	b.Version = event.Version
	return nil
}

// Service handles blood bank domain operations
type Service struct {
	eventStore store.EventStoreInterface
}

// NewService creates a new bank service
func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load rebuilds a bank by replaying events
func (s *Service) Load(ctx context.Context, bankID string) (*Bank, error) {
	b, found, err := aggregate.Load(ctx, s.eventStore, bankID, func() *Bank {
		return &Bank{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrBankNotFound
	}
	return b, nil
}

// Register creates a new blood bank
func (s *Service) Register(ctx context.Context, name, slug, address, contactEmail string) (*Bank, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	// Generate slug from name if not provided
	if slug == "" {
		slug = generateSlug(name)
	}

	if !slugRegex.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	bankID := uuid.New().String()
	now := time.Now()

	event := BankRegistered{
		BankID:       bankID,
		Name:         name,
		Slug:         slug,
		Address:      address,
		ContactEmail: contactEmail,
		RegisteredAt: now,
	}

	storedEvent, err := s.eventStore.Append(ctx, bankID, AggregateType, EventBankRegistered, event)
	if err != nil {
		return nil, err
	}

	return &Bank{
		ID:           bankID,
		Name:         name,
		Slug:         slug,
		Address:      address,
		ContactEmail: contactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      storedEvent.Version,
	}, nil
}

// Update updates a blood bank's details
func (s *Service) Update(ctx context.Context, bankID, name, slug, address, contactEmail string) error {
	if name == "" {
		return ErrInvalidName
	}

	b, err := s.Load(ctx, bankID)
	if err != nil {
		return err
	}

	if slug == "" {
		slug = generateSlug(name)
	}

	if !slugRegex.MatchString(slug) {
		return ErrInvalidSlug
	}

	event := BankUpdated{
		BankID:       bankID,
		Name:         name,
		Slug:         slug,
		Address:      address,
		ContactEmail: contactEmail,
		UpdatedAt:    time.Now(),
	}

	_, err = s.eventStore.AppendExpected(ctx, bankID, AggregateType, EventBankUpdated, event, b.Version)
	return err
}

// AddStorage registers a new storage unit inside the bank
func (s *Service) AddStorage(ctx context.Context, bankID, name string, capacity int) (*Storage, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	b, err := s.Load(ctx, bankID)
	if err != nil {
		return nil, err
	}

	for _, st := range b.Storages {
		if st.Name == name {
			return nil, ErrDuplicateName
		}
	}

	storageID := uuid.New().String()
	event := StorageAdded{
		BankID:    bankID,
		StorageID: storageID,
		Name:      name,
		Capacity:  capacity,
		AddedAt:   time.Now(),
	}

	_, err = s.eventStore.AppendExpected(ctx, bankID, AggregateType, EventStorageAdded, event, b.Version)
	if err != nil {
		return nil, err
	}

	return &Storage{ID: storageID, Name: name, Capacity: capacity}, nil
}

// RemoveStorage removes a storage unit from the bank
func (s *Service) RemoveStorage(ctx context.Context, bankID, storageID string) error {
	b, err := s.Load(ctx, bankID)
	if err != nil {
		return err
	}

	if !b.HasStorage(storageID) {
		return ErrStorageNotFound
	}

	event := StorageRemoved{
		BankID:    bankID,
		StorageID: storageID,
		RemovedAt: time.Now(),
	}

	_, err = s.eventStore.AppendExpected(ctx, bankID, AggregateType, EventStorageRemoved, event, b.Version)
	return err
}

// VerifyStorage checks that the storage belongs to the bank
func (s *Service) VerifyStorage(ctx context.Context, bankID, storageID string) error {
	b, err := s.Load(ctx, bankID)
	if err != nil {
		return err
	}
	if !b.HasStorage(storageID) {
		return ErrStorageNotFound
	}
	return nil
}

// generateSlug creates a URL-friendly slug from a name
func generateSlug(name string) string {
	// Convert to lowercase
	slug := strings.ToLower(name)
	// Replace spaces and underscores with hyphens
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	// Remove any characters that aren't alphanumeric or hyphens
	reg := regexp.MustCompile(`[^a-z0-9-]`)
	slug = reg.ReplaceAllString(slug, "")
	// Remove multiple consecutive hyphens
	reg = regexp.MustCompile(`-+`)
	slug = reg.ReplaceAllString(slug, "-")
	// Trim hyphens from start and end
	slug = strings.Trim(slug, "-")
	return slug
}
