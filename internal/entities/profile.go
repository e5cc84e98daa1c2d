package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYCStatus is the verification state carried on a profile. Verification
// submissions themselves have no status column; this field is the single
// source of truth.
type KYCStatus string

const (
	KYCUnverified KYCStatus = "Unverified"
	KYCPending    KYCStatus = "Pending"
	KYCVerified   KYCStatus = "Verified"
)

// Profile is the admin-manageable user record, including financial balances
// and KYC state. Balances are non-negative decimals; TotalBalance must never
// drop below AvailableBalance.
type Profile struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Username          string          `json:"username"`
	Email             string          `json:"email"`
	PhoneNumber       string          `json:"phone_number"`
	Country           string          `json:"country"`
	Currency          string          `json:"currency"`
	TotalBalance      decimal.Decimal `json:"total_balance"`
	AvailableBalance  decimal.Decimal `json:"available_balance"`
	ProfitBalance     decimal.Decimal `json:"profit_balance"`
	BonusBalance      decimal.Decimal `json:"bonus_balance"`
	PendingWithdrawal decimal.Decimal `json:"pending_withdrawal"`
	AccountType       string          `json:"account_type"`
	AccountStatus     string          `json:"account_status"`
	EmailVerified     bool            `json:"email_verified"`
	KYCStatus         KYCStatus       `json:"kyc_status"`
	Level             string          `json:"level"`
	ReferralList      []string        `json:"referral_list"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProfileFromFields decodes a profile from gateway record fields.
func ProfileFromFields(id string, version time.Time, fields map[string]any) Profile {
	return Profile{
		ID:                id,
		Name:              fieldString(fields, "name"),
		Username:          fieldString(fields, "username"),
		Email:             fieldString(fields, "email"),
		PhoneNumber:       fieldString(fields, "phone_number"),
		Country:           fieldString(fields, "country"),
		Currency:          fieldString(fields, "currency"),
		TotalBalance:      fieldDecimal(fields, "total_balance"),
		AvailableBalance:  fieldDecimal(fields, "available_balance"),
		ProfitBalance:     fieldDecimal(fields, "profit_balance"),
		BonusBalance:      fieldDecimal(fields, "bonus_balance"),
		PendingWithdrawal: fieldDecimal(fields, "pending_withdrawal"),
		AccountType:       fieldString(fields, "account_type"),
		AccountStatus:     fieldString(fields, "account_status"),
		EmailVerified:     fieldBool(fields, "email_verified"),
		KYCStatus:         KYCStatus(fieldString(fields, "kyc_status")),
		Level:             fieldString(fields, "level"),
		ReferralList:      fieldStrings(fields, "referral_list"),
		UpdatedAt:         version,
	}
}

// Fields encodes the profile into gateway record fields.
func (p Profile) Fields() map[string]any {
	return map[string]any{
		"name":               p.Name,
		"username":           p.Username,
		"email":              p.Email,
		"phone_number":       p.PhoneNumber,
		"country":            p.Country,
		"currency":           p.Currency,
		"total_balance":      p.TotalBalance,
		"available_balance":  p.AvailableBalance,
		"profit_balance":     p.ProfitBalance,
		"bonus_balance":      p.BonusBalance,
		"pending_withdrawal": p.PendingWithdrawal,
		"account_type":       p.AccountType,
		"account_status":     p.AccountStatus,
		"email_verified":     p.EmailVerified,
		"kyc_status":         string(p.KYCStatus),
		"level":              p.Level,
		"referral_list":      p.ReferralList,
	}
}

// ProfilePatch carries an admin edit. Nil fields are left untouched.
type ProfilePatch struct {
	Name              *string          `json:"name,omitempty"`
	Username          *string          `json:"username,omitempty"`
	Email             *string          `json:"email,omitempty"`
	PhoneNumber       *string          `json:"phone_number,omitempty"`
	Country           *string          `json:"country,omitempty"`
	Currency          *string          `json:"currency,omitempty"`
	TotalBalance      *decimal.Decimal `json:"total_balance,omitempty"`
	AvailableBalance  *decimal.Decimal `json:"available_balance,omitempty"`
	ProfitBalance     *decimal.Decimal `json:"profit_balance,omitempty"`
	BonusBalance      *decimal.Decimal `json:"bonus_balance,omitempty"`
	PendingWithdrawal *decimal.Decimal `json:"pending_withdrawal,omitempty"`
	AccountType       *string          `json:"account_type,omitempty"`
	AccountStatus     *string          `json:"account_status,omitempty"`
	EmailVerified     *bool            `json:"email_verified,omitempty"`
	KYCStatus         *KYCStatus       `json:"kyc_status,omitempty"`
	Level             *string          `json:"level,omitempty"`
	ReferralList      *[]string        `json:"referral_list,omitempty"`
}

// Changes returns the patched columns as gateway payload fields.
func (p ProfilePatch) Changes() map[string]any {
	changes := make(map[string]any)

	setString := func(key string, v *string) {
		if v != nil {
			changes[key] = *v
		}
	}
	setDecimal := func(key string, v *decimal.Decimal) {
		if v != nil {
			changes[key] = *v
		}
	}

	setString("name", p.Name)
	setString("username", p.Username)
	setString("email", p.Email)
	setString("phone_number", p.PhoneNumber)
	setString("country", p.Country)
	setString("currency", p.Currency)
	setDecimal("total_balance", p.TotalBalance)
	setDecimal("available_balance", p.AvailableBalance)
	setDecimal("profit_balance", p.ProfitBalance)
	setDecimal("bonus_balance", p.BonusBalance)
	setDecimal("pending_withdrawal", p.PendingWithdrawal)
	setString("account_type", p.AccountType)
	setString("account_status", p.AccountStatus)
	setString("level", p.Level)

	if p.EmailVerified != nil {
		changes["email_verified"] = *p.EmailVerified
	}
	if p.KYCStatus != nil {
		changes["kyc_status"] = string(*p.KYCStatus)
	}
	if p.ReferralList != nil {
		changes["referral_list"] = *p.ReferralList
	}

	return changes
}
