// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/domain/ports/repository"
	"telegram-vpn-storefront/internal/infra/logging"
	"telegram-vpn-storefront/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// paymentLockTTL bounds how long a crashed handler can hold the per-payment
// critical section.
const paymentLockTTL = 30 * time.Second

// AsyncRunner defers non-critical work (referral payout, notifications) off
// the webhook's response path. The worker pool implements it.
type AsyncRunner interface {
	Submit(task func(ctx context.Context) error) error
}

// ReconcileUseCase turns gateway payment notifications into provisioned
// accounts. It is the only writer of the pending -> succeeded transition.
type ReconcileUseCase interface {
	// HandleNotification processes one delivery. It returns an error only for
	// infrastructure faults the caller may want to surface; business-level
	// outcomes (duplicate, unknown plan, provider failure) are absorbed here
	// so the gateway always gets its acknowledgement.
	HandleNotification(ctx context.Context, n *model.PaymentNotification) error
}

type reconcileUC struct {
	orders    repository.OrderRepository
	referrals repository.ReferralRepository
	plans     repository.PlanCatalog
	provider  adapter.ProviderClient
	notifier  adapter.Notifier
	locker    repository.Locker
	runner    AsyncRunner // nil runs deferred steps inline

	subscriptionBaseURL string
	referralBonusDays   int
	currency            string

	log *zerolog.Logger
}

func NewReconcileUseCase(
	orders repository.OrderRepository,
	referrals repository.ReferralRepository,
	plans repository.PlanCatalog,
	provider adapter.ProviderClient,
	notifier adapter.Notifier,
	locker repository.Locker,
	runner AsyncRunner,
	subscriptionBaseURL string,
	referralBonusDays int,
	currency string,
	logger *zerolog.Logger,
) *reconcileUC {
	return &reconcileUC{
		orders:              orders,
		referrals:           referrals,
		plans:               plans,
		provider:            provider,
		notifier:            notifier,
		locker:              locker,
		runner:              runner,
		subscriptionBaseURL: strings.TrimRight(subscriptionBaseURL, "/"),
		referralBonusDays:   referralBonusDays,
		currency:            currency,
		log:                 logger,
	}
}

func (u *reconcileUC) HandleNotification(ctx context.Context, n *model.PaymentNotification) error {
	if n == nil || n.PaymentID == "" {
		u.log.Warn().Msg("malformed notification: missing payment id, acknowledged")
		metrics.IncWebhookDelivery("malformed")
		return nil
	}
	ctx = logging.WithPaymentID(ctx, n.PaymentID)
	log := logging.With(ctx, u.log)

	if n.Status != model.NotificationStatusSucceeded {
		log.Debug().Str("status", n.Status).Msg("non-success notification, acknowledged")
		metrics.IncWebhookDelivery("ignored")
		return nil
	}

	// Serialize concurrent deliveries of the same payment. The conditional
	// order write below stays the durable guard; losing the lock just means
	// another handler is already on it. A lock-backend outage is not a
	// duplicate: acking it would drop the delivery for good, so it surfaces
	// as an error and the gateway redelivers.
	token, err := u.locker.TryLock(ctx, paymentLockKey(n.PaymentID), paymentLockTTL)
	if errors.Is(err, domain.ErrLockNotAcquired) {
		log.Debug().Msg("payment lock held elsewhere, duplicate acknowledged")
		metrics.IncWebhookDuplicate()
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("payment lock backend unavailable")
		return err
	}
	defer func() {
		if uerr := u.locker.Unlock(context.WithoutCancel(ctx), paymentLockKey(n.PaymentID), token); uerr != nil {
			log.Warn().Err(uerr).Msg("payment lock release failed")
		}
	}()

	if done, err := u.orders.IsSucceeded(ctx, repository.NoTX, n.PaymentID); err != nil {
		log.Error().Err(err).Msg("idempotency read failed")
		return err
	} else if done {
		log.Debug().Msg("payment already reconciled, duplicate acknowledged")
		metrics.IncWebhookDuplicate()
		return nil
	}

	plan, known := u.plans.ByID(n.PlanID)

	// A delivery can outlive the row that initiated checkout (bot restarted,
	// order never written). Re-create the pending order from the notification
	// metadata so the conditional write always has a row to guard.
	if _, err := u.orders.FindByPaymentID(ctx, repository.NoTX, n.PaymentID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("order lookup failed")
			return err
		}
		o := &model.Order{
			PaymentID:  n.PaymentID,
			TelegramID: n.TelegramID,
			PlanID:     n.PlanID,
			Status:     model.OrderStatusPending,
			CreatedAt:  time.Now().UTC(),
		}
		if known {
			o.PlanName = plan.Name
			o.Amount = plan.PriceKopeks
		}
		if _, err := u.orders.Create(ctx, repository.NoTX, o); err != nil {
			log.Error().Err(err).Msg("pending order recovery failed")
			return err
		}
		log.Info().Msg("pending order recreated from notification metadata")
	}

	if !known {
		log.Error().Str("plan_id", n.PlanID).Msg("unknown plan in notification, acknowledged without provisioning")
		metrics.IncWebhookDelivery("unknown_plan")
		return nil
	}

	username := provisionUsername(n.TelegramID, n.PaymentID)
	acc, err := u.provider.CreateAccount(ctx, username, plan, n.TelegramID)
	if err != nil {
		log.Error().Err(err).Msg("provisioning failed, order marked failed")
		if _, uerr := u.orders.UpdateStatus(ctx, repository.NoTX, n.PaymentID, model.OrderStatusFailed); uerr != nil {
			log.Error().Err(uerr).Msg("failed-status write failed")
		}
		metrics.IncOrder(string(model.OrderStatusFailed))
		metrics.IncWebhookDelivery("provision_failed")
		if nerr := u.notifier.NotifyPurchaseFailure(ctx, n.TelegramID, plan.Name); nerr != nil {
			log.Warn().Err(nerr).Msg("failure notification not delivered")
		}
		return nil
	}

	if acc == nil || acc.ShortUUID == "" {
		// The account may exist remotely but we have no handle to hand out.
		// Leave the order pending so a later delivery or an operator can fix it.
		log.Error().Msg("provider response carried no subscription handle, order stays pending")
		metrics.IncProvisionFormatErr()
		metrics.IncWebhookDelivery("format_error")
		return nil
	}

	now := time.Now().UTC()
	won, err := u.orders.MarkSucceededIfPending(ctx, repository.NoTX, n.PaymentID, username, acc.ShortUUID, now)
	if err != nil {
		log.Error().Err(err).Msg("success write failed, order stays pending")
		return err
	}
	if !won {
		// Another handler committed first. Our freshly created account is now
		// an orphan; removing it is best-effort.
		log.Warn().Str("account", acc.UUID).Msg("lost provisioning race, removing duplicate account")
		metrics.IncWebhookDuplicate()
		if acc.UUID != "" {
			if derr := u.provider.DeleteAccount(ctx, acc.UUID); derr != nil {
				log.Warn().Err(derr).Msg("duplicate account cleanup failed")
			}
		}
		return nil
	}

	metrics.IncOrder(string(model.OrderStatusSucceeded))
	metrics.AddOrderRevenue(u.currency, plan.PriceKopeks)
	metrics.IncWebhookDelivery("provisioned")
	log.Info().Str("username", username).Msg("payment reconciled, account provisioned")

	// Payout and messaging never touch order state. When a pool is wired they
	// run after the response; inline otherwise.
	notification := *n
	followUp := func(fctx context.Context) error {
		u.payReferralBonus(fctx, &notification)
		u.notifySuccess(fctx, &notification, plan, acc.ShortUUID)
		return nil
	}
	if u.runner != nil {
		if err := u.runner.Submit(followUp); err == nil {
			return nil
		}
		log.Warn().Msg("worker pool saturated, running follow-up inline")
	}
	return followUp(context.WithoutCancel(ctx))
}

// payReferralBonus extends the referrer's subscription and records the edge.
// Every failure here is logged and swallowed.
func (u *reconcileUC) payReferralBonus(ctx context.Context, n *model.PaymentNotification) {
	if n.ReferrerID == nil || u.referralBonusDays <= 0 {
		return
	}
	referrerID := *n.ReferrerID
	if referrerID == n.TelegramID {
		return
	}
	log := logging.With(ctx, u.log)

	// One bonus per referred user, ever.
	if has, err := u.referrals.HasReferrer(ctx, repository.NoTX, n.TelegramID); err != nil {
		log.Warn().Err(err).Msg("referral lookup failed, payout skipped")
		return
	} else if has {
		log.Debug().Msg("referral already recorded, payout skipped")
		return
	}

	extended, err := u.provider.ExtendByTelegramID(ctx, referrerID, u.referralBonusDays)
	if err != nil {
		log.Warn().Err(err).Int64("referrer", referrerID).Msg("referral bonus extension failed")
		return
	}
	if !extended {
		log.Debug().Int64("referrer", referrerID).Msg("referrer has no account, payout skipped")
		return
	}
	if _, err := u.referrals.Add(ctx, repository.NoTX, referrerID, n.TelegramID, nil); err != nil {
		log.Warn().Err(err).Msg("referral edge write failed")
	}
	if err := u.notifier.NotifyReferralBonus(ctx, referrerID, u.referralBonusDays); err != nil {
		log.Warn().Err(err).Msg("referral notification not delivered")
	}
}

func (u *reconcileUC) notifySuccess(ctx context.Context, n *model.PaymentNotification, plan *model.Plan, handle string) {
	url := u.subscriptionURL(handle)
	if err := u.notifier.NotifyPurchaseSuccess(ctx, n.TelegramID, plan, url); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("success notification not delivered")
	}
}

func (u *reconcileUC) subscriptionURL(handle string) string {
	if u.subscriptionBaseURL == "" {
		return handle
	}
	return u.subscriptionBaseURL + "/sub/" + handle
}

// provisionUsername derives a stable, unique panel username from the chat
// user and the payment.
func provisionUsername(telegramID int64, paymentID string) string {
	suffix := paymentID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("tg_%d_%s", telegramID, suffix)
}

func paymentLockKey(paymentID string) string {
	return "lock:payment:" + paymentID
}
