package entities

import "time"

// Verification is a KYC document submission. It carries no status of its
// own; the outcome lives on the owning profile's kyc_status.
type Verification struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	DocumentURLs []string  `json:"document_urls"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VerificationFromFields decodes a verification from gateway record fields.
func VerificationFromFields(id string, version time.Time, fields map[string]any) Verification {
	return Verification{
		ID:           id,
		UserID:       fieldString(fields, "user_id"),
		DocumentURLs: fieldStrings(fields, "document_urls"),
		CreatedAt:    fieldTime(fields, "created_at"),
		UpdatedAt:    version,
	}
}

// Fields encodes the verification into gateway record fields.
func (v Verification) Fields() map[string]any {
	return map[string]any{
		"user_id":       v.UserID,
		"document_urls": v.DocumentURLs,
		"created_at":    v.CreatedAt,
	}
}

// VerificationWithOwner is the list-view row joining the owning profile's
// details onto the submission.
type VerificationWithOwner struct {
	Verification
	OwnerName  string    `json:"name"`
	OwnerEmail string    `json:"email"`
	KYCStatus  KYCStatus `json:"kyc_status"`
}
