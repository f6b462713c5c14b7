package model

// PaymentNotification is the reconciliation engine's view of one gateway
// webhook delivery, already lifted out of the JSON envelope.
type PaymentNotification struct {
	PaymentID  string
	Status     string // gateway status: pending | waiting_for_capture | succeeded | canceled
	TelegramID int64
	PlanID     string
	ReferrerID *int64
}

const NotificationStatusSucceeded = "succeeded"
