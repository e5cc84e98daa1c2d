package ports

import (
	"context"
	"time"

	"github.com/bitrust/admin-backend/internal/entities"
)

// ProfileService manages the admin-facing user records.
type ProfileService interface {
	List(ctx context.Context) ([]entities.Profile, error)
	Get(ctx context.Context, id string) (*entities.Profile, error)
	Create(ctx context.Context, profile entities.Profile) (*entities.Profile, error)
	Update(ctx context.Context, id string, patch entities.ProfilePatch) (*entities.Profile, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// DepositService manages funding requests and their admin decisions.
type DepositService interface {
	List(ctx context.Context) ([]entities.DepositWithOwner, error)
	Get(ctx context.Context, id string) (*entities.DepositWithOwner, error)
	Confirm(ctx context.Context, id string) (*entities.DepositDecision, error)
	Reject(ctx context.Context, id string) (*entities.DepositDecision, error)
	ListStale(ctx context.Context, olderThan time.Duration) ([]entities.Deposit, error)
	CountPending(ctx context.Context) (int, error)
}

// VerificationService manages KYC submissions and their review.
type VerificationService interface {
	List(ctx context.Context) ([]entities.VerificationWithOwner, error)
	Get(ctx context.Context, id string) (*entities.VerificationWithOwner, error)
	Verify(ctx context.Context, id string) (*entities.Profile, error)
	Count(ctx context.Context) (int, error)
}

// EventPublisher pushes change events to connected admin sessions.
type EventPublisher interface {
	Publish(event entities.ChangeEvent)
}

// IdentityAdmin is the identity provider's admin API. Deleting an identity
// is delegated here after the store's own deletion has committed.
type IdentityAdmin interface {
	DeleteIdentity(ctx context.Context, userID string) error
}
