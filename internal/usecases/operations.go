package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
)

// The operation definitions. Each is a pure declaration consumed by the
// Coordinator; none of them touches the gateway outside its Reads step.

// DepositConfirmation credits a pending deposit to the owner's balances and
// marks it completed, as one atomic unit.
var DepositConfirmation = Operation{
	Name:  "deposit_confirmation",
	Reads: readDepositWithOwner,
	Precondition: func(state *State, params Params) error {
		deposit := stateDeposit(state, params.ID)
		if deposit.Status != entities.DepositPending {
			return fmt.Errorf("%w: deposit %s is %s, not pending", ErrPreconditionFailed, deposit.ID, deposit.Status)
		}
		if !deposit.Amount.IsPositive() {
			return fmt.Errorf("%w: deposit %s has non-positive amount %s", ErrPreconditionFailed, deposit.ID, deposit.Amount)
		}
		return nil
	},
	Writes: func(state *State, params Params) ([]store.WriteOp, error) {
		deposit := stateDeposit(state, params.ID)
		profileRecord := state.Record(store.CollectionProfiles, deposit.UserID)
		profile := entities.ProfileFromFields(profileRecord.ID, profileRecord.Version, profileRecord.Fields)

		return []store.WriteOp{
			{
				Collection: store.CollectionProfiles,
				Kind:       store.OpUpdate,
				ID:         profile.ID,
				Version:    profileRecord.Version,
				Payload: map[string]any{
					"total_balance":     profile.TotalBalance.Add(deposit.Amount),
					"available_balance": profile.AvailableBalance.Add(deposit.Amount),
				},
			},
			{
				Collection: store.CollectionDeposits,
				Kind:       store.OpUpdate,
				ID:         deposit.ID,
				Version:    stateVersion(state, store.CollectionDeposits, deposit.ID),
				Payload:    map[string]any{"status": string(entities.DepositCompleted)},
			},
		}, nil
	},
}

// DepositRejection closes a pending deposit without touching balances.
var DepositRejection = Operation{
	Name:  "deposit_rejection",
	Reads: readDepositWithOwner,
	Precondition: func(state *State, params Params) error {
		deposit := stateDeposit(state, params.ID)
		if deposit.Status != entities.DepositPending {
			return fmt.Errorf("%w: deposit %s is %s, not pending", ErrPreconditionFailed, deposit.ID, deposit.Status)
		}
		return nil
	},
	Writes: func(state *State, params Params) ([]store.WriteOp, error) {
		return []store.WriteOp{{
			Collection: store.CollectionDeposits,
			Kind:       store.OpUpdate,
			ID:         params.ID,
			Version:    stateVersion(state, store.CollectionDeposits, params.ID),
			Payload:    map[string]any{"status": string(entities.DepositRejected)},
		}}, nil
	},
}

// UserDeletion removes a profile and its verification submissions. Deletion
// is blocked while any deposit of the user is still pending: an open
// financial obligation has to be resolved first, it never cascades away.
// Completed and rejected deposits stay behind as immutable history.
var UserDeletion = Operation{
	Name: "user_deletion",
	Reads: func(ctx context.Context, gateway store.Gateway, params Params) (*State, error) {
		state := newState()

		profile, err := gateway.GetOne(ctx, store.CollectionProfiles, params.ID)
		if err != nil {
			return nil, err
		}
		state.put(store.CollectionProfiles, profile)

		byUser := store.Filter{Eq: map[string]any{"user_id": params.ID}}

		verifications, err := gateway.GetMany(ctx, store.CollectionVerifications, byUser)
		if err != nil {
			return nil, err
		}
		state.putList(store.CollectionVerifications, verifications)

		deposits, err := gateway.GetMany(ctx, store.CollectionDeposits, byUser)
		if err != nil {
			return nil, err
		}
		state.putList(store.CollectionDeposits, deposits)

		return state, nil
	},
	Precondition: func(state *State, params Params) error {
		for _, record := range state.List(store.CollectionDeposits) {
			deposit := entities.DepositFromFields(record.ID, record.Version, record.Fields)
			if deposit.Status == entities.DepositPending {
				return fmt.Errorf("%w: user %s has pending deposit %s", ErrPreconditionFailed, params.ID, deposit.ID)
			}
		}
		return nil
	},
	Writes: func(state *State, params Params) ([]store.WriteOp, error) {
		var ops []store.WriteOp
		for _, record := range state.List(store.CollectionVerifications) {
			ops = append(ops, store.WriteOp{
				Collection: store.CollectionVerifications,
				Kind:       store.OpDelete,
				ID:         record.ID,
				Version:    record.Version,
			})
		}
		ops = append(ops, store.WriteOp{
			Collection: store.CollectionProfiles,
			Kind:       store.OpDelete,
			ID:         params.ID,
			Version:    stateVersion(state, store.CollectionProfiles, params.ID),
		})
		return ops, nil
	},
}

// KycVerification marks the profile behind a submission as verified.
var KycVerification = Operation{
	Name: "kyc_verification",
	Reads: func(ctx context.Context, gateway store.Gateway, params Params) (*State, error) {
		state := newState()

		verification, err := gateway.GetOne(ctx, store.CollectionVerifications, params.ID)
		if err != nil {
			return nil, err
		}
		state.put(store.CollectionVerifications, verification)

		userID := entities.VerificationFromFields(verification.ID, verification.Version, verification.Fields).UserID
		profile, err := gateway.GetOne(ctx, store.CollectionProfiles, userID)
		if err != nil {
			return nil, err
		}
		state.put(store.CollectionProfiles, profile)

		return state, nil
	},
	Precondition: func(state *State, params Params) error {
		verification := stateVerification(state, params.ID)
		profile := stateProfile(state, verification.UserID)
		if profile.KYCStatus == entities.KYCVerified {
			return fmt.Errorf("%w: profile %s is already verified", ErrPreconditionFailed, profile.ID)
		}
		return nil
	},
	Writes: func(state *State, params Params) ([]store.WriteOp, error) {
		verification := stateVerification(state, params.ID)
		return []store.WriteOp{{
			Collection: store.CollectionProfiles,
			Kind:       store.OpUpdate,
			ID:         verification.UserID,
			Version:    stateVersion(state, store.CollectionProfiles, verification.UserID),
			Payload:    map[string]any{"kyc_status": string(entities.KYCVerified)},
		}}, nil
	},
}

// ProfileUpdate applies an admin edit under the same version guard as every
// other mutation, and keeps the balance invariants checked.
var ProfileUpdate = Operation{
	Name: "profile_update",
	Reads: func(ctx context.Context, gateway store.Gateway, params Params) (*State, error) {
		state := newState()
		profile, err := gateway.GetOne(ctx, store.CollectionProfiles, params.ID)
		if err != nil {
			return nil, err
		}
		state.put(store.CollectionProfiles, profile)
		return state, nil
	},
	Precondition: func(state *State, params Params) error {
		record := state.Record(store.CollectionProfiles, params.ID)
		patched := record.Clone()
		for k, v := range params.Patch {
			patched.Fields[k] = v
		}
		return checkBalanceInvariants(entities.ProfileFromFields(patched.ID, patched.Version, patched.Fields))
	},
	Writes: func(state *State, params Params) ([]store.WriteOp, error) {
		return []store.WriteOp{{
			Collection: store.CollectionProfiles,
			Kind:       store.OpUpdate,
			ID:         params.ID,
			Version:    stateVersion(state, store.CollectionProfiles, params.ID),
			Payload:    params.Patch,
		}}, nil
	},
}

func readDepositWithOwner(ctx context.Context, gateway store.Gateway, params Params) (*State, error) {
	state := newState()

	deposit, err := gateway.GetOne(ctx, store.CollectionDeposits, params.ID)
	if err != nil {
		return nil, err
	}
	state.put(store.CollectionDeposits, deposit)

	userID := entities.DepositFromFields(deposit.ID, deposit.Version, deposit.Fields).UserID
	profile, err := gateway.GetOne(ctx, store.CollectionProfiles, userID)
	if err != nil {
		return nil, err
	}
	state.put(store.CollectionProfiles, profile)

	return state, nil
}

func checkBalanceInvariants(profile entities.Profile) error {
	balances := map[string]decimal.Decimal{
		"total_balance":      profile.TotalBalance,
		"available_balance":  profile.AvailableBalance,
		"profit_balance":     profile.ProfitBalance,
		"bonus_balance":      profile.BonusBalance,
		"pending_withdrawal": profile.PendingWithdrawal,
	}
	for name, value := range balances {
		if value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrPreconditionFailed, name)
		}
	}
	if profile.TotalBalance.LessThan(profile.AvailableBalance) {
		return fmt.Errorf("%w: total_balance must not drop below available_balance", ErrPreconditionFailed)
	}
	return nil
}

func stateDeposit(state *State, id string) entities.Deposit {
	record := state.Record(store.CollectionDeposits, id)
	return entities.DepositFromFields(record.ID, record.Version, record.Fields)
}

func stateProfile(state *State, id string) entities.Profile {
	record := state.Record(store.CollectionProfiles, id)
	return entities.ProfileFromFields(record.ID, record.Version, record.Fields)
}

func stateVerification(state *State, id string) entities.Verification {
	record := state.Record(store.CollectionVerifications, id)
	return entities.VerificationFromFields(record.ID, record.Version, record.Fields)
}

func stateVersion(state *State, collection, id string) (version time.Time) {
	if record := state.Record(collection, id); record != nil {
		version = record.Version
	}
	return version
}
