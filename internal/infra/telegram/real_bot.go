// Package telegram delivers purchase and referral notifications to users.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/config"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*RealBotNotifier)(nil)

// RealBotNotifier sends chat messages through the Bot API. It is fire and
// forget from the caller's point of view: a returned error is for logging,
// never for changing order state.
type RealBotNotifier struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewRealBotNotifier(cfg *config.BotConfig, logger *zerolog.Logger) (*RealBotNotifier, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("bot token is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &RealBotNotifier{bot: bot, log: logger}, nil
}

// API exposes the underlying client so the update handler can share one
// authenticated session with the notifier.
func (n *RealBotNotifier) API() *tgbotapi.BotAPI { return n.bot }

func (n *RealBotNotifier) NotifyPurchaseSuccess(ctx context.Context, telegramID int64, plan *model.Plan, subscriptionURL string) error {
	text := fmt.Sprintf(`✅ *Оплата прошла успешно!*

Ваша VPN подписка активирована.

*Тариф:* %s
*Срок:* %d дней

*Ссылка для подписки:*
`+"`%s`"+`

📲 *Как использовать:*
1. Скопируйте ссылку выше
2. Откройте приложение VPN (Clash, V2Ray, Shadowrocket, Streisand и др.)
3. Добавьте подписку по ссылке

Приятного использования! 🚀`, plan.Name, plan.DurationDays, subscriptionURL)
	return n.send(ctx, telegramID, text)
}

func (n *RealBotNotifier) NotifyPurchaseFailure(ctx context.Context, telegramID int64, planName string) error {
	text := fmt.Sprintf("❌ *Оплата получена, но возникла ошибка при активации подписки.*\n\n"+
		"Тариф: %s\n\n"+
		"Обратитесь в поддержку, мы исправим ситуацию в ближайшее время.", planName)
	return n.send(ctx, telegramID, text)
}

func (n *RealBotNotifier) NotifyReferralBonus(ctx context.Context, referrerID int64, bonusDays int) error {
	text := fmt.Sprintf("🎉 Ваш реферал оплатил подписку! Вам добавлено +%d дней к подписке.", bonusDays)
	return n.send(ctx, referrerID, text)
}

func (n *RealBotNotifier) send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Warn().Err(err).Int64("tg_id", chatID).Msg("notification delivery failed")
		return err
	}
	return nil
}
