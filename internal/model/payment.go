package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// RefKind names the provider namespace an external reference belongs to.
// A payment carries exactly one of the two reference columns.
type RefKind string

const (
	RefCardIntent  RefKind = "card_intent"
	RefWalletOrder RefKind = "wallet_order"
)

// Column returns the payments column holding references of this kind.
func (k RefKind) Column() string {
	if k == RefWalletOrder {
		return "wallet_order_id"
	}
	return "card_intent_id"
}

// Reference is a provider-assigned external id used to correlate
// provider callbacks with the local payment record.
type Reference struct {
	Kind RefKind
	ID   string
}

type Payment struct {
	ID           string `gorm:"primaryKey;size:64;not null"`
	BuyerID      string `gorm:"size:64;index;not null"`
	CourseID     string `gorm:"size:64;index;not null"`
	InstructorID string `gorm:"size:64;index;not null"`

	Amount   int64  `gorm:"not null"` // minor currency units
	Currency string `gorm:"size:8;not null"`

	Provider      string  `gorm:"size:32;not null"`
	CardIntentID  *string `gorm:"size:128;uniqueIndex"`
	WalletOrderID *string `gorm:"size:128;uniqueIndex"`

	Status PaymentStatus `gorm:"size:16;index;not null"`

	// Fee and PayeeAmount are computed once at creation and frozen.
	// Invariant: Amount = Fee + PayeeAmount.
	Fee         int64 `gorm:"not null"`
	PayeeAmount int64 `gorm:"not null"`

	// Populated only when the provider settles in a different currency
	// than the course price.
	ConvertedAmount   *int64
	ConvertedCurrency *string `gorm:"size:8"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalRef returns the populated reference, if any.
func (p *Payment) ExternalRef() (Reference, bool) {
	if p.CardIntentID != nil {
		return Reference{Kind: RefCardIntent, ID: *p.CardIntentID}, true
	}
	if p.WalletOrderID != nil {
		return Reference{Kind: RefWalletOrder, ID: *p.WalletOrderID}, true
	}
	return Reference{}, false
}
