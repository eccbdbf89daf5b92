package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/bloodnet-event-driven/internal/domain/aggregate"
	"github.com/example/bloodnet-event-driven/internal/infrastructure/store"
)

const AggregateType = "RewardAccount"

// PointsPerDonation is credited for each recorded donation
const PointsPerDonation = 100

// VoucherCost is the points price of one blood voucher
const VoucherCost = 500

var (
	ErrInvalidPoints      = errors.New("points must be positive")
	ErrInsufficientPoints = errors.New("insufficient points balance")
)

// Account is a donor's reward points balance
type Account struct {
	ID             string    `json:"id"`
	DonorID        string    `json:"donor_id"`
	Balance        int       `json:"balance"`
	LifetimePoints int       `json:"lifetime_points"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int       `json:"version"`
}

// Aggregate interface implementation
func (a *Account) GetID() string    { return a.ID }
func (a *Account) GetVersion() int  { return a.Version }
func (a *Account) SetVersion(v int) { a.Version = v }

// GetAccountID returns the reward account ID for a donor (using donorID as
// accountID for simplicity)
func GetAccountID(donorID string) string {
	return "rewards-" + donorID
}

// ApplyEvent applies a single event to the account state
func (a *Account) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventPointsEarned:
		var data PointsEarned
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		a.ID = data.AccountID
		a.DonorID = data.DonorID
		a.Balance += data.Points
		a.LifetimePoints += data.Points
		a.UpdatedAt = data.EarnedAt
	case EventPointsRedeemed:
		var data PointsRedeemed
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		a.Balance -= data.Points
		a.UpdatedAt = data.RedeemedAt
	}
	a.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Load rebuilds a reward account by replaying events. A donor with no
// history gets a zero-balance account.
func (s *Service) Load(ctx context.Context, donorID string) (*Account, error) {
	accountID := GetAccountID(donorID)
	acct, found, err := aggregate.Load(ctx, s.eventStore, accountID, func() *Account {
		return &Account{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return &Account{ID: accountID, DonorID: donorID}, nil
	}
	return acct, nil
}

// Earn credits points for a recorded donation
func (s *Service) Earn(ctx context.Context, donorID, donationID string, points int) (*Account, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	acct, err := s.Load(ctx, donorID)
	if err != nil {
		return nil, err
	}

	event := PointsEarned{
		AccountID:  acct.ID,
		DonorID:    donorID,
		Points:     points,
		DonationID: donationID,
		EarnedAt:   time.Now(),
	}

	storedEvent, err := s.eventStore.Append(ctx, acct.ID, AggregateType, EventPointsEarned, event)
	if err != nil {
		return nil, err
	}

	if err := acct.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, acct, AggregateType); err != nil {
		log.Printf("[Rewards] Failed to create snapshot for account %s: %v", acct.ID, err)
	}

	return acct, nil
}

// Redeem debits points for a voucher. Fails when the balance is short and
// guards the balance check with the account's version.
func (s *Service) Redeem(ctx context.Context, donorID, voucherID string, points int) (*Account, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	acct, err := s.Load(ctx, donorID)
	if err != nil {
		return nil, err
	}

	if acct.Balance < points {
		return nil, ErrInsufficientPoints
	}

	event := PointsRedeemed{
		AccountID:  acct.ID,
		DonorID:    donorID,
		Points:     points,
		VoucherID:  voucherID,
		RedeemedAt: time.Now(),
	}

	storedEvent, err := s.eventStore.AppendExpected(ctx, acct.ID, AggregateType, EventPointsRedeemed, event, acct.Version)
	if err != nil {
		return nil, err
	}

	if err := acct.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, acct, AggregateType); err != nil {
		log.Printf("[Rewards] Failed to create snapshot for account %s: %v", acct.ID, err)
	}

	return acct, nil
}
