package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of sending. Used when no bot token is configured,
// typically in local development.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) NotifyPurchaseSuccess(_ context.Context, telegramID int64, plan *model.Plan, subscriptionURL string) error {
	n.log.Info().Int64("tg_id", telegramID).Str("plan", plan.ID).Str("url", subscriptionURL).
		Msg("noop notifier: purchase success")
	return nil
}

func (n *NoopNotifier) NotifyPurchaseFailure(_ context.Context, telegramID int64, planName string) error {
	n.log.Info().Int64("tg_id", telegramID).Str("plan", planName).
		Msg("noop notifier: purchase failure")
	return nil
}

func (n *NoopNotifier) NotifyReferralBonus(_ context.Context, referrerID int64, bonusDays int) error {
	n.log.Info().Int64("tg_id", referrerID).Int("bonus_days", bonusDays).
		Msg("noop notifier: referral bonus")
	return nil
}
