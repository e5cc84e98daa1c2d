package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bitrust/admin-backend/internal/core/ports"
	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
)

// VerificationService handles the KYC review screens.
type VerificationService struct {
	logger      *slog.Logger
	gateway     store.Gateway
	coordinator *Coordinator
	feed        ports.EventPublisher
}

func NewVerificationService(
	logger *slog.Logger,
	gateway store.Gateway,
	coordinator *Coordinator,
	feed ports.EventPublisher,
) *VerificationService {
	return &VerificationService{
		logger:      logger,
		gateway:     gateway,
		coordinator: coordinator,
		feed:        feed,
	}
}

func (s *VerificationService) List(ctx context.Context) ([]entities.VerificationWithOwner, error) {
	records, err := s.gateway.GetMany(ctx, store.CollectionVerifications, store.Filter{
		OrderBy:    "created_at",
		Descending: true,
		Limit:      ports.MaxListRows,
	})
	if err != nil {
		return nil, err
	}

	verifications := make([]entities.VerificationWithOwner, 0, len(records))
	for _, record := range records {
		verification := entities.VerificationFromFields(record.ID, record.Version, record.Fields)
		verifications = append(verifications, s.withOwner(ctx, verification))
	}
	return verifications, nil
}

func (s *VerificationService) Get(ctx context.Context, id string) (*entities.VerificationWithOwner, error) {
	record, err := s.gateway.GetOne(ctx, store.CollectionVerifications, id)
	if err != nil {
		return nil, err
	}

	verification := s.withOwner(ctx, entities.VerificationFromFields(record.ID, record.Version, record.Fields))
	return &verification, nil
}

// Verify marks the submitting profile as KYC-verified and returns its new
// state. The submission rows stay behind for audit until the user is
// deleted.
func (s *VerificationService) Verify(ctx context.Context, id string) (*entities.Profile, error) {
	outcome, err := s.coordinator.Execute(ctx, KycVerification, Params{ID: id})
	if err != nil {
		return nil, err
	}

	record, ok := outcome.First(store.CollectionProfiles)
	if !ok {
		return nil, fmt.Errorf("%w: kyc verification committed no profile", store.ErrBackend)
	}
	profile := entities.ProfileFromFields(record.ID, record.Version, record.Fields)

	s.feed.Publish(entities.ChangeEvent{
		Operation:  KycVerification.Name,
		Collection: store.CollectionVerifications,
		ID:         id,
		At:         outcome.CommittedAt,
	})

	return &profile, nil
}

func (s *VerificationService) Count(ctx context.Context) (int, error) {
	records, err := s.gateway.GetMany(ctx, store.CollectionVerifications, store.Filter{})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *VerificationService) withOwner(ctx context.Context, verification entities.Verification) entities.VerificationWithOwner {
	row := entities.VerificationWithOwner{
		Verification: verification,
		OwnerName:    "N/A",
		OwnerEmail:   "N/A",
		KYCStatus:    entities.KYCUnverified,
	}

	record, err := s.gateway.GetOne(ctx, store.CollectionProfiles, verification.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load verification owner",
			"verification", verification.ID, "user_id", verification.UserID, "error", err)
		return row
	}

	profile := entities.ProfileFromFields(record.ID, record.Version, record.Fields)
	row.OwnerName = profile.Name
	row.OwnerEmail = profile.Email
	row.KYCStatus = profile.KYCStatus
	return row
}
