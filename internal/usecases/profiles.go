package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bitrust/admin-backend/internal/core/ports"
	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
)

// ProfileService handles the admin user screens: listing, editing, creating
// and deleting profiles. Every mutation goes through the coordinator.
type ProfileService struct {
	logger      *slog.Logger
	gateway     store.Gateway
	coordinator *Coordinator
	identity    ports.IdentityAdmin
	feed        ports.EventPublisher
}

func NewProfileService(
	logger *slog.Logger,
	gateway store.Gateway,
	coordinator *Coordinator,
	identity ports.IdentityAdmin,
	feed ports.EventPublisher,
) *ProfileService {
	return &ProfileService{
		logger:      logger,
		gateway:     gateway,
		coordinator: coordinator,
		identity:    identity,
		feed:        feed,
	}
}

func (s *ProfileService) List(ctx context.Context) ([]entities.Profile, error) {
	records, err := s.gateway.GetMany(ctx, store.CollectionProfiles, store.Filter{
		OrderBy: "name",
		Limit:   ports.MaxListRows,
	})
	if err != nil {
		return nil, err
	}

	profiles := make([]entities.Profile, 0, len(records))
	for _, record := range records {
		profiles = append(profiles, entities.ProfileFromFields(record.ID, record.Version, record.Fields))
	}
	return profiles, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*entities.Profile, error) {
	record, err := s.gateway.GetOne(ctx, store.CollectionProfiles, id)
	if err != nil {
		return nil, err
	}

	profile := entities.ProfileFromFields(record.ID, record.Version, record.Fields)
	return &profile, nil
}

// Create inserts a new profile. Signup normally happens in the end-user app;
// this covers admin-created accounts.
func (s *ProfileService) Create(ctx context.Context, profile entities.Profile) (*entities.Profile, error) {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.Currency == "" {
		profile.Currency = "USD"
	}
	if profile.KYCStatus == "" {
		profile.KYCStatus = entities.KYCUnverified
	}
	if profile.AccountStatus == "" {
		profile.AccountStatus = "Active"
	}
	if profile.ReferralList == nil {
		profile.ReferralList = []string{}
	}

	if err := checkBalanceInvariants(profile); err != nil {
		return nil, err
	}

	commitAt, err := s.gateway.WriteBatch(ctx, []store.WriteOp{{
		Collection: store.CollectionProfiles,
		Kind:       store.OpInsert,
		ID:         profile.ID,
		Payload:    profile.Fields(),
	}})
	if err != nil {
		return nil, err
	}
	profile.UpdatedAt = commitAt

	s.logger.InfoContext(ctx, "Profile created", "id", profile.ID, "email", profile.Email)
	s.feed.Publish(entities.ChangeEvent{
		Operation:  "profile_create",
		Collection: store.CollectionProfiles,
		ID:         profile.ID,
		At:         commitAt,
	})

	return &profile, nil
}

func (s *ProfileService) Update(ctx context.Context, id string, patch entities.ProfilePatch) (*entities.Profile, error) {
	changes := patch.Changes()
	if len(changes) == 0 {
		return s.Get(ctx, id)
	}

	outcome, err := s.coordinator.Execute(ctx, ProfileUpdate, Params{ID: id, Patch: changes})
	if err != nil {
		return nil, err
	}

	record, ok := outcome.First(store.CollectionProfiles)
	if !ok {
		return nil, fmt.Errorf("%w: profile update committed no profile", store.ErrBackend)
	}
	profile := entities.ProfileFromFields(record.ID, record.Version, record.Fields)

	s.feed.Publish(entities.ChangeEvent{
		Operation:  ProfileUpdate.Name,
		Collection: store.CollectionProfiles,
		ID:         id,
		At:         outcome.CommittedAt,
	})

	return &profile, nil
}

// Delete removes the profile and its verification rows in one batch, then
// asks the identity provider to drop the login. The identity call cannot
// join the store transaction; it runs only after a successful commit and a
// failure there is surfaced while the store deletion stands (retrying the
// identity delete is idempotent).
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	outcome, err := s.coordinator.Execute(ctx, UserDeletion, Params{ID: id})
	if err != nil {
		return err
	}

	s.feed.Publish(entities.ChangeEvent{
		Operation:  UserDeletion.Name,
		Collection: store.CollectionProfiles,
		ID:         id,
		At:         outcome.CommittedAt,
	})

	if err = s.identity.DeleteIdentity(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Profile removed but identity deletion failed",
			"id", id, "error", err)
		return fmt.Errorf("profile removed but identity deletion failed: %w", err)
	}

	return nil
}

func (s *ProfileService) Count(ctx context.Context) (int, error) {
	records, err := s.gateway.GetMany(ctx, store.CollectionProfiles, store.Filter{})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
