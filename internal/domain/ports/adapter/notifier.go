package adapter

import (
	"context"

	"telegram-vpn-storefront/internal/domain/model"
)

// Notifier delivers best-effort chat messages to users. Delivery failures are
// the caller's to log and swallow; they never affect order state.
type Notifier interface {
	NotifyPurchaseSuccess(ctx context.Context, telegramID int64, plan *model.Plan, subscriptionURL string) error
	NotifyPurchaseFailure(ctx context.Context, telegramID int64, planName string) error
	NotifyReferralBonus(ctx context.Context, referrerID int64, bonusDays int) error
}
