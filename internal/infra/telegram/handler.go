package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/config"
	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/ports/repository"
	"telegram-vpn-storefront/internal/usecase"
)

// Handler drives the storefront conversation: plan selection, checkout,
// trial and subscription status. Updates are processed concurrently.
type Handler struct {
	api        *tgbotapi.BotAPI
	checkoutUC usecase.CheckoutUseCase
	trialUC    usecase.TrialUseCase
	subUC      usecase.SubscriptionUseCase
	statsUC    usecase.StatsUseCase
	plans      repository.PlanCatalog
	adminIDs   map[int64]struct{}
	workers    int
	log        *zerolog.Logger

	// pending referral payloads from /start deep links, consumed at checkout
	mu        sync.Mutex
	referrers map[int64]int64
}

func NewHandler(
	cfg *config.BotConfig,
	api *tgbotapi.BotAPI,
	checkoutUC usecase.CheckoutUseCase,
	trialUC usecase.TrialUseCase,
	subUC usecase.SubscriptionUseCase,
	statsUC usecase.StatsUseCase,
	plans repository.PlanCatalog,
	workers int,
	logger *zerolog.Logger,
) *Handler {
	if workers <= 0 {
		workers = 5
	}
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Handler{
		api:        api,
		checkoutUC: checkoutUC,
		trialUC:    trialUC,
		subUC:      subUC,
		statsUC:    statsUC,
		plans:      plans,
		adminIDs:   admins,
		workers:    workers,
		log:        logger,
		referrers:  make(map[int64]int64),
	}
}

// StartPolling runs until ctx is canceled.
func (h *Handler) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < h.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := h.handleUpdate(ctx, update); err != nil {
						h.log.Error().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	h.api.StopReceivingUpdates()
	wg.Wait()
	return nil
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	tgID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		return h.handleStart(tgID, text)
	case text == "/plans" || text == "🛒 Тарифы":
		return h.sendPlans(tgID)
	case text == "/trial" || text == "🎁 Пробный период":
		return h.handleTrial(ctx, tgID)
	case text == "/status" || text == "📋 Моя подписка":
		return h.handleStatus(ctx, tgID)
	case text == "/stats":
		return h.handleStats(ctx, tgID)
	default:
		return h.send(tgID, "Неизвестная команда. Доступно: /plans, /trial, /status")
	}
}

// handleStart registers the referral payload from deep links of the form
// /start ref_<telegramID>.
func (h *Handler) handleStart(tgID int64, text string) error {
	greeting := "Привет! Здесь вы можете приобрести VPN подписку.\n\n" +
		"Доступно: /plans, /trial, /status"
	if ref := parseReferralPayload(text); ref != 0 && ref != tgID {
		h.mu.Lock()
		h.referrers[tgID] = ref
		h.mu.Unlock()
		greeting += "\n\nВы пришли по приглашению: ваш друг получит бонус после первой оплаты."
	}
	return h.send(tgID, greeting)
}

func (h *Handler) sendPlans(tgID int64) error {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range h.plans.All() {
		label := fmt.Sprintf("%s: %d.%02d ₽ / %d дней", p.Name, p.PriceKopeks/100, p.PriceKopeks%100, p.DurationDays)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "buy:"+p.ID),
		))
	}
	msg := tgbotapi.NewMessage(tgID, "Выберите тариф:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := h.api.Send(msg)
	return err
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	defer func() {
		_, _ = h.api.Request(tgbotapi.NewCallback(cb.ID, ""))
	}()
	if cb.From == nil || !strings.HasPrefix(cb.Data, "buy:") {
		return nil
	}
	tgID := cb.From.ID
	planID := strings.TrimPrefix(cb.Data, "buy:")

	var referrer *int64
	h.mu.Lock()
	if ref, ok := h.referrers[tgID]; ok {
		referrer = &ref
	}
	h.mu.Unlock()

	url, _, err := h.checkoutUC.Initiate(ctx, tgID, planID, referrer)
	switch {
	case errors.Is(err, domain.ErrUserBlocked):
		return h.send(tgID, "Доступ заблокирован. Обратитесь в поддержку.")
	case errors.Is(err, domain.ErrRateLimited):
		return h.send(tgID, "Слишком много попыток. Попробуйте через минуту.")
	case errors.Is(err, domain.ErrUnknownPlan):
		return h.send(tgID, "Такого тарифа нет. Отправьте /plans.")
	case err != nil:
		h.log.Error().Err(err).Int64("tg_id", tgID).Msg("checkout failed")
		return h.send(tgID, "Не удалось создать платёж. Попробуйте позже.")
	}
	return h.send(tgID, fmt.Sprintf("Перейдите по ссылке для оплаты:\n%s\n\nПодписка придёт сюда после оплаты.", url))
}

func (h *Handler) handleTrial(ctx context.Context, tgID int64) error {
	url, err := h.trialUC.Grant(ctx, tgID)
	switch {
	case errors.Is(err, domain.ErrTrialDisabled):
		return h.send(tgID, "Пробный период отключён.")
	case errors.Is(err, domain.ErrTrialAlreadyUsed):
		return h.send(tgID, "Вы уже использовали пробный период.")
	case errors.Is(err, domain.ErrUserBlocked):
		return h.send(tgID, "Доступ заблокирован. Обратитесь в поддержку.")
	case err != nil:
		h.log.Error().Err(err).Int64("tg_id", tgID).Msg("trial grant failed")
		return h.send(tgID, "Не удалось выдать пробный период. Попробуйте позже.")
	}
	return h.send(tgID, fmt.Sprintf("Пробный период активирован!\n\nСсылка для подписки:\n%s", url))
}

func (h *Handler) handleStatus(ctx context.Context, tgID int64) error {
	view, err := h.subUC.Status(ctx, tgID)
	if err != nil {
		h.log.Error().Err(err).Int64("tg_id", tgID).Msg("status lookup failed")
		return h.send(tgID, "Не удалось получить статус. Попробуйте позже.")
	}
	if len(view.Accounts) == 0 && len(view.Orders) == 0 {
		return h.send(tgID, "У вас пока нет подписки. Отправьте /plans, чтобы выбрать тариф.")
	}

	var b strings.Builder
	for _, acc := range view.Accounts {
		b.WriteString("Подписка: " + acc.SubscriptionURL + "\n")
		if !acc.ExpiresAt.IsZero() {
			b.WriteString("Действует до: " + acc.ExpiresAt.Format("02.01.2006") + "\n")
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		b.WriteString("Активных подписок нет.\n")
	}
	b.WriteString(fmt.Sprintf("Всего заказов: %d", len(view.Orders)))
	return h.send(tgID, b.String())
}

func (h *Handler) handleStats(ctx context.Context, tgID int64) error {
	if _, ok := h.adminIDs[tgID]; !ok {
		return h.send(tgID, "Команда доступна только администраторам.")
	}
	totals, err := h.statsUC.Totals(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("stats lookup failed")
		return h.send(tgID, "Не удалось получить статистику.")
	}
	text := fmt.Sprintf(
		"Заказы: %d оплачено, %d в ожидании, %d с ошибкой\nВыручка: %d.%02d ₽\nТриалы: %d\nРефералы: %d",
		totals.OrdersSucceeded, totals.OrdersPending, totals.OrdersFailed,
		totals.RevenueKopeks/100, totals.RevenueKopeks%100,
		totals.TrialUsers, totals.Referrals,
	)
	return h.send(tgID, text)
}

func (h *Handler) send(tgID int64, text string) error {
	_, err := h.api.Send(tgbotapi.NewMessage(tgID, text))
	return err
}

// parseReferralPayload extracts the referrer id from "/start ref_123".
func parseReferralPayload(text string) int64 {
	parts := strings.Fields(text)
	if len(parts) < 2 || !strings.HasPrefix(parts[1], "ref_") {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(parts[1], "ref_"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
