// File: internal/usecase/admin_uc.go
package usecase

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/domain/ports/repository"
	"telegram-vpn-storefront/internal/infra/logging"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// SquadLister is the optional panel surface for listing provisioning groups.
// The concrete client implements it; mocks may not.
type SquadLister interface {
	ListSquads(ctx context.Context) ([]map[string]any, error)
}

// AdminUseCase covers the operator actions behind the admin API.
type AdminUseCase interface {
	Block(ctx context.Context, telegramID int64, reason string) error
	Unblock(ctx context.Context, telegramID int64) (bool, error)
	// Revoke deletes every panel account of the user and optionally blocks
	// them so they cannot simply buy again.
	Revoke(ctx context.Context, telegramID int64, alsoBlock bool, reason string) (deleted int, err error)
	UserOrders(ctx context.Context, telegramID int64) ([]*model.Order, error)
	Squads(ctx context.Context) ([]map[string]any, error)
}

type adminUC struct {
	blocks   repository.BlockRepository
	orders   repository.OrderRepository
	provider adapter.ProviderClient
	squads   SquadLister // nil when the provider cannot list squads
	txm      repository.TransactionManager
	log      *zerolog.Logger
}

func NewAdminUseCase(
	blocks repository.BlockRepository,
	orders repository.OrderRepository,
	provider adapter.ProviderClient,
	squads SquadLister,
	txm repository.TransactionManager,
	logger *zerolog.Logger,
) *adminUC {
	return &adminUC{blocks: blocks, orders: orders, provider: provider, squads: squads, txm: txm, log: logger}
}

func (u *adminUC) Block(ctx context.Context, telegramID int64, reason string) error {
	if err := u.blocks.Block(ctx, repository.NoTX, telegramID, reason); err != nil {
		return err
	}
	u.log.Info().Int64("tg_id", telegramID).Str("reason", reason).Msg("user blocked")
	return nil
}

func (u *adminUC) Unblock(ctx context.Context, telegramID int64) (bool, error) {
	removed, err := u.blocks.Unblock(ctx, repository.NoTX, telegramID)
	if err != nil {
		return false, err
	}
	if removed {
		u.log.Info().Int64("tg_id", telegramID).Msg("user unblocked")
	}
	return removed, nil
}

func (u *adminUC) Revoke(ctx context.Context, telegramID int64, alsoBlock bool, reason string) (int, error) {
	ctx = logging.WithTgID(ctx, telegramID)
	log := logging.With(ctx, u.log)

	deleted, handles, err := u.provider.RevokeByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	log.Info().Int("deleted", deleted).Strs("accounts", handles).Msg("panel accounts revoked")

	if alsoBlock {
		// Block and fail the user's outstanding orders together so a pending
		// payment of a revoked user can never be provisioned later.
		err := u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := u.blocks.Block(ctx, tx, telegramID, reason); err != nil {
				return err
			}
			orders, err := u.orders.ListByTelegramID(ctx, tx, telegramID)
			if err != nil {
				return err
			}
			for _, o := range orders {
				if o.Status != model.OrderStatusPending {
					continue
				}
				if _, err := u.orders.UpdateStatus(ctx, tx, o.PaymentID, model.OrderStatusFailed); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Error().Err(err).Msg("block after revoke failed")
			return deleted, err
		}
	}
	return deleted, nil
}

func (u *adminUC) UserOrders(ctx context.Context, telegramID int64) ([]*model.Order, error) {
	return u.orders.ListByTelegramID(ctx, repository.NoTX, telegramID)
}

func (u *adminUC) Squads(ctx context.Context) ([]map[string]any, error) {
	if u.squads == nil {
		return nil, nil
	}
	return u.squads.ListSquads(ctx)
}
