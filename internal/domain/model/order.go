package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // payment created on gateway side, awaiting webhook
	OrderStatusSucceeded OrderStatus = "succeeded" // paid and provisioned; terminal
	OrderStatusFailed    OrderStatus = "failed"    // paid but provisioning failed, or payment failed
	OrderStatusRefunded  OrderStatus = "refunded"  // refunded by operator
)

// Order records one purchase attempt. PaymentID is the gateway's payment id
// and is unique and immutable once created; it is the idempotency key for
// webhook reconciliation. ShortUUID (the provider's subscription handle) is
// set if and only if the order succeeded.
type Order struct {
	ID          int64
	PaymentID   string
	TelegramID  int64
	PlanID      string
	PlanName    string
	Amount      int64 // minor currency units (kopeks), to avoid float errors
	Status      OrderStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	Username    *string // provisioned panel username
	ShortUUID   *string // provider subscription handle
	ReferrerID  *int64
}

// TrialGrant marks that a user consumed the free trial. Existence is a
// permanent flag; rows are never mutated or deleted.
type TrialGrant struct {
	TelegramID int64
	CreatedAt  time.Time
}

// ReferralEdge credits one user's bonus to another user's invitation.
// A referred user has at most one referrer, first-wins.
type ReferralEdge struct {
	ReferrerID int64
	ReferredID int64
	OrderID    *int64
	CreatedAt  time.Time
}

// BlockEntry marks a user as blocked. Absence means not blocked.
type BlockEntry struct {
	TelegramID int64
	Reason     string
	CreatedAt  time.Time
}
