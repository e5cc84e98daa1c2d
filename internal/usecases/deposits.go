package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitrust/admin-backend/internal/core/ports"
	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
)

// DepositService handles the deposit review screens and decisions.
type DepositService struct {
	logger      *slog.Logger
	gateway     store.Gateway
	coordinator *Coordinator
	feed        ports.EventPublisher
}

func NewDepositService(
	logger *slog.Logger,
	gateway store.Gateway,
	coordinator *Coordinator,
	feed ports.EventPublisher,
) *DepositService {
	return &DepositService{
		logger:      logger,
		gateway:     gateway,
		coordinator: coordinator,
		feed:        feed,
	}
}

func (s *DepositService) List(ctx context.Context) ([]entities.DepositWithOwner, error) {
	records, err := s.gateway.GetMany(ctx, store.CollectionDeposits, store.Filter{
		OrderBy:    "created_at",
		Descending: true,
		Limit:      ports.MaxListRows,
	})
	if err != nil {
		return nil, err
	}

	deposits := make([]entities.DepositWithOwner, 0, len(records))
	for _, record := range records {
		deposit := entities.DepositFromFields(record.ID, record.Version, record.Fields)
		deposits = append(deposits, s.withOwner(ctx, deposit))
	}
	return deposits, nil
}

func (s *DepositService) Get(ctx context.Context, id string) (*entities.DepositWithOwner, error) {
	record, err := s.gateway.GetOne(ctx, store.CollectionDeposits, id)
	if err != nil {
		return nil, err
	}

	deposit := s.withOwner(ctx, entities.DepositFromFields(record.ID, record.Version, record.Fields))
	return &deposit, nil
}

func (s *DepositService) Confirm(ctx context.Context, id string) (*entities.DepositDecision, error) {
	return s.decide(ctx, DepositConfirmation, id)
}

func (s *DepositService) Reject(ctx context.Context, id string) (*entities.DepositDecision, error) {
	return s.decide(ctx, DepositRejection, id)
}

func (s *DepositService) decide(ctx context.Context, op Operation, id string) (*entities.DepositDecision, error) {
	outcome, err := s.coordinator.Execute(ctx, op, Params{ID: id})
	if err != nil {
		return nil, err
	}

	depositRecord, ok := outcome.First(store.CollectionDeposits)
	if !ok {
		return nil, fmt.Errorf("%w: %s committed no deposit", store.ErrBackend, op.Name)
	}
	decision := entities.DepositDecision{
		Deposit: entities.DepositFromFields(depositRecord.ID, depositRecord.Version, depositRecord.Fields),
	}

	// Rejection leaves the profile untouched, so the outcome may carry the
	// deposit alone.
	if profileRecord, ok := outcome.First(store.CollectionProfiles); ok {
		decision.Profile = entities.ProfileFromFields(profileRecord.ID, profileRecord.Version, profileRecord.Fields)
	}

	s.feed.Publish(entities.ChangeEvent{
		Operation:  op.Name,
		Collection: store.CollectionDeposits,
		ID:         id,
		At:         outcome.CommittedAt,
	})

	return &decision, nil
}

// ListStale returns deposits that have been pending longer than the given
// age, newest last. Used by the watcher to nudge admins.
func (s *DepositService) ListStale(ctx context.Context, olderThan time.Duration) ([]entities.Deposit, error) {
	records, err := s.gateway.GetMany(ctx, store.CollectionDeposits, store.Filter{
		Eq:      map[string]any{"status": string(entities.DepositPending)},
		OrderBy: "created_at",
	})
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)

	var stale []entities.Deposit
	for _, record := range records {
		deposit := entities.DepositFromFields(record.ID, record.Version, record.Fields)
		if deposit.CreatedAt.Before(cutoff) {
			stale = append(stale, deposit)
		}
	}
	return stale, nil
}

func (s *DepositService) CountPending(ctx context.Context) (int, error) {
	records, err := s.gateway.GetMany(ctx, store.CollectionDeposits, store.Filter{
		Eq: map[string]any{"status": string(entities.DepositPending)},
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// withOwner joins the owning profile's contact details onto a deposit. A
// missing owner renders as N/A rather than failing the listing, matching
// how the review screens behave.
func (s *DepositService) withOwner(ctx context.Context, deposit entities.Deposit) entities.DepositWithOwner {
	row := entities.DepositWithOwner{Deposit: deposit, OwnerName: "N/A", OwnerEmail: "N/A"}

	record, err := s.gateway.GetOne(ctx, store.CollectionProfiles, deposit.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load deposit owner",
			"deposit", deposit.ID, "user_id", deposit.UserID, "error", err)
		return row
	}

	profile := entities.ProfileFromFields(record.ID, record.Version, record.Fields)
	row.OwnerName = profile.Name
	row.OwnerEmail = profile.Email
	return row
}
