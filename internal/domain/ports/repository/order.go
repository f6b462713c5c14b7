package repository

import (
	"context"
	"time"

	"telegram-vpn-storefront/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderRepository interface {
	// Create inserts a pending order. The insert is idempotent on payment_id:
	// a duplicate insert is a no-op and returns the existing row's id.
	Create(ctx context.Context, tx Tx, o *model.Order) (int64, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Order, error)
	// IsSucceeded is the cheap duplicate short-circuit for the webhook path.
	IsSucceeded(ctx context.Context, tx Tx, paymentID string) (bool, error)
	// MarkSucceededIfPending atomically promotes a pending order to succeeded,
	// recording the provisioned username, the provider handle and the
	// completion timestamp. Returns false when no pending row matched, which
	// is the durable at-most-once guard against duplicate deliveries.
	MarkSucceededIfPending(ctx context.Context, tx Tx, paymentID, username, shortUUID string, completedAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, tx Tx, paymentID string, status model.OrderStatus) (bool, error)
	ListByTelegramID(ctx context.Context, tx Tx, telegramID int64) ([]*model.Order, error)
}

// -----------------------------
// Trials
// -----------------------------

type TrialRepository interface {
	// Add records trial consumption; a duplicate insert is a harmless no-op
	// returning false.
	Add(ctx context.Context, tx Tx, telegramID int64) (bool, error)
	HasUsed(ctx context.Context, tx Tx, telegramID int64) (bool, error)
}

// -----------------------------
// Referrals
// -----------------------------

type ReferralRepository interface {
	// Add records a referral edge. A referred user keeps its first referrer;
	// subsequent inserts for the same referred user return false.
	Add(ctx context.Context, tx Tx, referrerID, referredID int64, orderID *int64) (bool, error)
	HasReferrer(ctx context.Context, tx Tx, referredID int64) (bool, error)
}

// -----------------------------
// Blocks
// -----------------------------

type BlockRepository interface {
	Block(ctx context.Context, tx Tx, telegramID int64, reason string) error
	Unblock(ctx context.Context, tx Tx, telegramID int64) (bool, error)
	IsBlocked(ctx context.Context, tx Tx, telegramID int64) (bool, error)
}

// -----------------------------
// Stats (read-only aggregates over the tables above)
// -----------------------------

type StatsRepository interface {
	Totals(ctx context.Context, tx Tx) (*model.StatsTotals, error)
	ChartData(ctx context.Context, tx Tx, days int) (*model.ChartData, error)
}
