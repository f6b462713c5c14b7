// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/domain/ports/repository"
	"telegram-vpn-storefront/internal/infra/logging"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

const (
	checkoutRateLimit  = 5
	checkoutRateWindow = time.Minute
)

// CheckoutUseCase starts a hosted-checkout payment for a plan.
type CheckoutUseCase interface {
	// Initiate creates the gateway payment and the matching pending order.
	// Returns the confirmation URL the user must be redirected to.
	Initiate(ctx context.Context, telegramID int64, planID string, referrerID *int64) (confirmationURL, paymentID string, err error)
}

type checkoutUC struct {
	orders  repository.OrderRepository
	blocks  repository.BlockRepository
	plans   repository.PlanCatalog
	gateway adapter.PaymentGateway
	limiter repository.RateLimiter

	returnURL string
	log       *zerolog.Logger
}

func NewCheckoutUseCase(
	orders repository.OrderRepository,
	blocks repository.BlockRepository,
	plans repository.PlanCatalog,
	gateway adapter.PaymentGateway,
	limiter repository.RateLimiter,
	returnURL string,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{
		orders:    orders,
		blocks:    blocks,
		plans:     plans,
		gateway:   gateway,
		limiter:   limiter,
		returnURL: returnURL,
		log:       logger,
	}
}

func (u *checkoutUC) Initiate(ctx context.Context, telegramID int64, planID string, referrerID *int64) (string, string, error) {
	ctx = logging.WithTgID(ctx, telegramID)
	log := logging.With(ctx, u.log)

	if blocked, err := u.blocks.IsBlocked(ctx, repository.NoTX, telegramID); err != nil {
		return "", "", err
	} else if blocked {
		return "", "", domain.ErrUserBlocked
	}

	if u.limiter != nil {
		ok, err := u.limiter.Allow(ctx, checkoutRateKey(telegramID), checkoutRateLimit, checkoutRateWindow)
		if err != nil {
			// Redis trouble must not take checkout down with it.
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing checkout")
		} else if !ok {
			return "", "", domain.ErrRateLimited
		}
	}

	plan, ok := u.plans.ByID(planID)
	if !ok {
		return "", "", domain.ErrUnknownPlan
	}

	metadata := map[string]string{
		"telegram_id": fmt.Sprintf("%d", telegramID),
		"plan_id":     plan.ID,
	}
	if referrerID != nil && *referrerID != telegramID {
		metadata["referrer_id"] = fmt.Sprintf("%d", *referrerID)
	}
	description := fmt.Sprintf("VPN подписка: %s (%d дней)", plan.Name, plan.DurationDays)

	p, err := u.gateway.CreatePayment(ctx, plan.PriceKopeks, description, u.returnURL, metadata)
	if err != nil {
		log.Error().Err(err).Str("plan", plan.ID).Msg("payment creation failed")
		return "", "", err
	}
	if p.ConfirmationURL == "" {
		// Nothing to redirect the user to; do not record an order that can
		// never be paid.
		log.Error().Str("payment_id", p.ID).Msg("gateway returned no confirmation URL")
		return "", "", domain.ErrNoConfirmation
	}

	order := &model.Order{
		PaymentID:  p.ID,
		TelegramID: telegramID,
		PlanID:     plan.ID,
		PlanName:   plan.Name,
		Amount:     plan.PriceKopeks,
		Status:     model.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if referrerID != nil && *referrerID != telegramID {
		order.ReferrerID = referrerID
	}
	if _, err := u.orders.Create(ctx, repository.NoTX, order); err != nil {
		log.Error().Err(err).Str("payment_id", p.ID).Msg("pending order write failed")
		return "", "", err
	}

	log.Info().Str("payment_id", p.ID).Str("plan", plan.ID).Msg("checkout initiated")
	return p.ConfirmationURL, p.ID, nil
}

func checkoutRateKey(telegramID int64) string {
	return fmt.Sprintf("rate_limit:checkout:%d", telegramID)
}
