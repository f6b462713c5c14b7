package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct{ pool *pgxpool.Pool }

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

// Add records the edge, first-wins per referred user.
func (r *referralRepo) Add(ctx context.Context, tx repository.Tx, referrerID, referredID int64, orderID *int64) (bool, error) {
	const q = `
INSERT INTO referrals (referrer_id, referred_id, order_id)
VALUES ($1, $2, $3)
ON CONFLICT (referred_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, referrerID, referredID, orderID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *referralRepo) HasReferrer(ctx context.Context, tx repository.Tx, referredID int64) (bool, error) {
	const q = `SELECT 1 FROM referrals WHERE referred_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, referredID)
	if err != nil {
		return false, err
	}
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, domain.ErrReadDatabaseRow
	}
	return true, nil
}
