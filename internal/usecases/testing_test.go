package usecases

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
)

// feedStub records published events. Safe for concurrent use because
// decisions can publish from multiple goroutines in the race tests.
type feedStub struct {
	mu     sync.Mutex
	events []entities.ChangeEvent
}

func (f *feedStub) Publish(event entities.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *feedStub) published() []entities.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.ChangeEvent(nil), f.events...)
}

// identityStub records deletion calls and optionally fails them.
type identityStub struct {
	deleted []string
	err     error
}

func (i *identityStub) DeleteIdentity(_ context.Context, userID string) error {
	if i.err != nil {
		return i.err
	}
	i.deleted = append(i.deleted, userID)
	return nil
}

type testEnv struct {
	gateway       *store.MemoryGateway
	coordinator   *Coordinator
	feed          *feedStub
	identity      *identityStub
	profiles      *ProfileService
	deposits      *DepositService
	verifications *VerificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := store.NewMemoryGateway()
	coordinator := NewCoordinator(logger, gateway)
	feed := &feedStub{}
	identity := &identityStub{}

	return &testEnv{
		gateway:       gateway,
		coordinator:   coordinator,
		feed:          feed,
		identity:      identity,
		profiles:      NewProfileService(logger, gateway, coordinator, identity, feed),
		deposits:      NewDepositService(logger, gateway, coordinator, feed),
		verifications: NewVerificationService(logger, gateway, coordinator, feed),
	}
}

func (e *testEnv) seedProfile(id string, total, available string) entities.Profile {
	profile := entities.Profile{
		ID:               id,
		Name:             "Alice Example",
		Email:            id + "@example.com",
		Currency:         "USD",
		TotalBalance:     decimal.RequireFromString(total),
		AvailableBalance: decimal.RequireFromString(available),
		AccountStatus:    "Active",
		KYCStatus:        entities.KYCUnverified,
		ReferralList:     []string{},
	}
	e.gateway.Seed(store.CollectionProfiles, store.Record{ID: id, Fields: profile.Fields()})
	return profile
}

func (e *testEnv) seedDeposit(id, userID, amount string, status entities.DepositStatus, age time.Duration) entities.Deposit {
	deposit := entities.Deposit{
		ID:         id,
		UserID:     userID,
		Method:     "Bitcoin",
		Type:       "crypto",
		Amount:     decimal.RequireFromString(amount),
		Status:     status,
		ReceiptURL: "https://receipts.example.com/" + id,
		CreatedAt:  time.Now().UTC().Add(-age).Truncate(time.Microsecond),
	}
	e.gateway.Seed(store.CollectionDeposits, store.Record{ID: id, Fields: deposit.Fields()})
	return deposit
}

func (e *testEnv) seedVerification(id, userID string) entities.Verification {
	verification := entities.Verification{
		ID:           id,
		UserID:       userID,
		DocumentURLs: []string{"https://docs.example.com/" + id + "/passport.jpg"},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	e.gateway.Seed(store.CollectionVerifications, store.Record{ID: id, Fields: verification.Fields()})
	return verification
}

func (e *testEnv) storedProfile(t *testing.T, id string) entities.Profile {
	t.Helper()

	record, err := e.gateway.GetOne(context.Background(), store.CollectionProfiles, id)
	require.NoError(t, err)
	return entities.ProfileFromFields(record.ID, record.Version, record.Fields)
}

func (e *testEnv) storedDeposit(t *testing.T, id string) entities.Deposit {
	t.Helper()

	record, err := e.gateway.GetOne(context.Background(), store.CollectionDeposits, id)
	require.NoError(t, err)
	return entities.DepositFromFields(record.ID, record.Version, record.Fields)
}
