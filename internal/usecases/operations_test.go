package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"

	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
)

func TestDepositConfirmationCreditsBalances(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "50.00")
	env.seedDeposit("dep-1", "user-1", "25.50", entities.DepositPending, time.Hour)

	decision, err := env.deposits.Confirm(ctx, "dep-1")
	require.NoError(t, err)

	require.Equal(t, entities.DepositCompleted, decision.Deposit.Status)
	require.True(t, decision.Profile.TotalBalance.Equal(decimal.RequireFromString("125.50")),
		"total balance got %s", decision.Profile.TotalBalance)
	require.True(t, decision.Profile.AvailableBalance.Equal(decimal.RequireFromString("75.50")),
		"available balance got %s", decision.Profile.AvailableBalance)

	// Both rows carry the same commit timestamp as their new version.
	require.Equal(t, decision.Deposit.UpdatedAt, decision.Profile.UpdatedAt)

	// The reported state matches what the store actually holds.
	stored := env.storedProfile(t, "user-1")
	require.True(t, stored.TotalBalance.Equal(decision.Profile.TotalBalance))
	require.Equal(t, decision.Profile.UpdatedAt, stored.UpdatedAt)
	require.Equal(t, entities.DepositCompleted, env.storedDeposit(t, "dep-1").Status)

	events := env.feed.published()
	require.Len(t, events, 1)
	require.Equal(t, "deposit_confirmation", events[0].Operation)
	require.Equal(t, "dep-1", events[0].ID)
}

func TestDepositConfirmationRequiresPending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "50.00")
	env.seedDeposit("dep-1", "user-1", "25.00", entities.DepositCompleted, time.Hour)

	_, err := env.deposits.Confirm(ctx, "dep-1")
	require.ErrorIs(t, err, ErrPreconditionFailed)

	// A failed precondition must not have written anything.
	stored := env.storedProfile(t, "user-1")
	require.True(t, stored.TotalBalance.Equal(decimal.RequireFromString("100.00")))
	require.Empty(t, env.feed.published())
}

func TestDepositConfirmationIsNotRepeatable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "0", "0")
	env.seedDeposit("dep-1", "user-1", "10.00", entities.DepositPending, time.Hour)

	_, err := env.deposits.Confirm(ctx, "dep-1")
	require.NoError(t, err)

	_, err = env.deposits.Confirm(ctx, "dep-1")
	require.ErrorIs(t, err, ErrPreconditionFailed, "second confirmation must not credit again")

	stored := env.storedProfile(t, "user-1")
	require.True(t, stored.TotalBalance.Equal(decimal.RequireFromString("10.00")),
		"amount credited exactly once, got %s", stored.TotalBalance)
}

func TestDepositConfirmationUnknownDeposit(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.deposits.Confirm(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentConfirmationsCreditOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "100.00")
	env.seedDeposit("dep-1", "user-1", "40.00", entities.DepositPending, time.Hour)

	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.deposits.Confirm(ctx, "dep-1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// Losers either lost the version race or re-read the already
		// completed deposit.
		if !errors.Is(err, store.ErrConflict) && !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one confirmation may win")

	stored := env.storedProfile(t, "user-1")
	require.True(t, stored.TotalBalance.Equal(decimal.RequireFromString("140.00")),
		"amount credited exactly once, got %s", stored.TotalBalance)
}

func TestDepositRejectionLeavesBalances(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "50.00")
	env.seedDeposit("dep-1", "user-1", "25.00", entities.DepositPending, time.Hour)

	decision, err := env.deposits.Reject(ctx, "dep-1")
	require.NoError(t, err)
	require.Equal(t, entities.DepositRejected, decision.Deposit.Status)
	require.Empty(t, decision.Profile.ID, "rejection does not touch the profile")

	stored := env.storedProfile(t, "user-1")
	require.True(t, stored.TotalBalance.Equal(decimal.RequireFromString("100.00")))
	require.True(t, stored.AvailableBalance.Equal(decimal.RequireFromString("50.00")))
}

func TestUserDeletionCascade(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "50.00")
	env.seedVerification("ver-1", "user-1")
	env.seedVerification("ver-2", "user-1")
	env.seedDeposit("dep-1", "user-1", "25.00", entities.DepositCompleted, time.Hour)
	env.seedDeposit("dep-2", "user-1", "10.00", entities.DepositRejected, time.Hour)

	// Another user's rows must be untouched.
	env.seedProfile("user-2", "10.00", "10.00")
	env.seedVerification("ver-3", "user-2")

	require.NoError(t, env.profiles.Delete(ctx, "user-1"))

	_, err := env.gateway.GetOne(ctx, store.CollectionProfiles, "user-1")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = env.gateway.GetOne(ctx, store.CollectionVerifications, "ver-1")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = env.gateway.GetOne(ctx, store.CollectionVerifications, "ver-2")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Settled deposits stay behind as history.
	require.Equal(t, entities.DepositCompleted, env.storedDeposit(t, "dep-1").Status)
	require.Equal(t, entities.DepositRejected, env.storedDeposit(t, "dep-2").Status)

	_, err = env.gateway.GetOne(ctx, store.CollectionVerifications, "ver-3")
	require.NoError(t, err)

	require.Equal(t, []string{"user-1"}, env.identity.deleted)
}

func TestUserDeletionBlockedByPendingDeposit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "50.00")
	env.seedVerification("ver-1", "user-1")
	env.seedDeposit("dep-1", "user-1", "25.00", entities.DepositPending, time.Hour)

	err := env.profiles.Delete(ctx, "user-1")
	require.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = env.gateway.GetOne(ctx, store.CollectionProfiles, "user-1")
	require.NoError(t, err, "blocked deletion must leave the profile in place")
	_, err = env.gateway.GetOne(ctx, store.CollectionVerifications, "ver-1")
	require.NoError(t, err)
	require.Empty(t, env.identity.deleted, "identity provider must not be called")
}

func TestKycVerificationMarksProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "0", "0")
	env.seedVerification("ver-1", "user-1")

	profile, err := env.verifications.Verify(ctx, "ver-1")
	require.NoError(t, err)
	require.Equal(t, entities.KYCVerified, profile.KYCStatus)
	require.Equal(t, entities.KYCVerified, env.storedProfile(t, "user-1").KYCStatus)

	// The submission stays behind for audit.
	_, err = env.gateway.GetOne(ctx, store.CollectionVerifications, "ver-1")
	require.NoError(t, err)

	// Verifying an already verified profile is refused.
	_, err = env.verifications.Verify(ctx, "ver-1")
	require.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestKycVerificationWithoutOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedVerification("ver-1", "ghost")

	_, err := env.verifications.Verify(context.Background(), "ver-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestProfileUpdateAppliesPatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "50.00")

	updated, err := env.profiles.Update(ctx, "user-1", entities.ProfilePatch{
		Name:         pointy.String("Renamed User"),
		BonusBalance: pointy.Pointer(decimal.RequireFromString("5.00")),
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed User", updated.Name)
	require.True(t, updated.BonusBalance.Equal(decimal.RequireFromString("5.00")))

	stored := env.storedProfile(t, "user-1")
	require.Equal(t, "Renamed User", stored.Name)
	require.Equal(t, updated.UpdatedAt, stored.UpdatedAt)
}

func TestProfileUpdateKeepsBalanceInvariants(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProfile("user-1", "100.00", "50.00")

	// available above total
	_, err := env.profiles.Update(ctx, "user-1", entities.ProfilePatch{
		AvailableBalance: pointy.Pointer(decimal.RequireFromString("150.00")),
	})
	require.ErrorIs(t, err, ErrPreconditionFailed)

	// negative balance
	_, err = env.profiles.Update(ctx, "user-1", entities.ProfilePatch{
		BonusBalance: pointy.Pointer(decimal.RequireFromString("-1.00")),
	})
	require.ErrorIs(t, err, ErrPreconditionFailed)

	stored := env.storedProfile(t, "user-1")
	require.True(t, stored.AvailableBalance.Equal(decimal.RequireFromString("50.00")))
	require.True(t, stored.BonusBalance.IsZero())
}
