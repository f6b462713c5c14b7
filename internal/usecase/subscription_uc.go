// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/domain/ports/repository"
	"telegram-vpn-storefront/internal/infra/logging"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// AccountView is one live panel account as shown to the user.
type AccountView struct {
	Username        string    `json:"username"`
	SubscriptionURL string    `json:"subscription_url"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
}

// SubscriptionView combines order history with live panel accounts.
type SubscriptionView struct {
	Orders   []*model.Order `json:"orders"`
	Accounts []AccountView  `json:"accounts"`
}

type SubscriptionUseCase interface {
	Status(ctx context.Context, telegramID int64) (*SubscriptionView, error)
}

type subscriptionUC struct {
	orders   repository.OrderRepository
	provider adapter.ProviderClient

	subscriptionBaseURL string
	log                 *zerolog.Logger
}

func NewSubscriptionUseCase(
	orders repository.OrderRepository,
	provider adapter.ProviderClient,
	subscriptionBaseURL string,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		orders:              orders,
		provider:            provider,
		subscriptionBaseURL: strings.TrimRight(subscriptionBaseURL, "/"),
		log:                 logger,
	}
}

// Status returns the user's orders and any live accounts. A panel outage
// degrades to order history only.
func (u *subscriptionUC) Status(ctx context.Context, telegramID int64) (*SubscriptionView, error) {
	ctx = logging.WithTgID(ctx, telegramID)

	orders, err := u.orders.ListByTelegramID(ctx, repository.NoTX, telegramID)
	if err != nil {
		return nil, err
	}
	view := &SubscriptionView{Orders: orders}

	accounts, err := u.provider.FindAccountsByTelegramID(ctx, telegramID)
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("panel lookup failed, returning orders only")
		return view, nil
	}
	for _, acc := range accounts {
		v := AccountView{Username: acc.Username, ExpiresAt: acc.ExpiresAt}
		if acc.ShortUUID != "" {
			if u.subscriptionBaseURL != "" {
				v.SubscriptionURL = u.subscriptionBaseURL + "/sub/" + acc.ShortUUID
			} else {
				v.SubscriptionURL = acc.ShortUUID
			}
		}
		view.Accounts = append(view.Accounts, v)
	}
	return view, nil
}
