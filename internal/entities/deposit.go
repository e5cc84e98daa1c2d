package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositStatus transitions only pending→completed or pending→rejected,
// never back.
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositCompleted DepositStatus = "completed"
	DepositRejected  DepositStatus = "rejected"
)

// Deposit is a user funding request awaiting admin review. Amount is
// strictly positive; the receipt is stored externally and referenced by URL.
type Deposit struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Method     string          `json:"method"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Status     DepositStatus   `json:"status"`
	ReceiptURL string          `json:"receipt_url"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DepositFromFields decodes a deposit from gateway record fields.
func DepositFromFields(id string, version time.Time, fields map[string]any) Deposit {
	return Deposit{
		ID:         id,
		UserID:     fieldString(fields, "user_id"),
		Method:     fieldString(fields, "method"),
		Type:       fieldString(fields, "type"),
		Amount:     fieldDecimal(fields, "amount"),
		Status:     DepositStatus(fieldString(fields, "status")),
		ReceiptURL: fieldString(fields, "receipt_url"),
		CreatedAt:  fieldTime(fields, "created_at"),
		UpdatedAt:  version,
	}
}

// Fields encodes the deposit into gateway record fields.
func (d Deposit) Fields() map[string]any {
	return map[string]any{
		"user_id":     d.UserID,
		"method":      d.Method,
		"type":        d.Type,
		"amount":      d.Amount,
		"status":      string(d.Status),
		"receipt_url": d.ReceiptURL,
		"created_at":  d.CreatedAt,
	}
}

// DepositWithOwner is the list-view row joining the owning profile's
// contact details onto the deposit.
type DepositWithOwner struct {
	Deposit
	OwnerName  string `json:"name"`
	OwnerEmail string `json:"email"`
}

// DepositDecision is the outcome of confirming or rejecting a deposit: the
// deposit and the owning profile as committed, so callers can refresh their
// view without a re-read.
type DepositDecision struct {
	Deposit Deposit `json:"deposit"`
	Profile Profile `json:"profile"`
}
