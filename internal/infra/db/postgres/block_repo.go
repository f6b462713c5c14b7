package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

var _ repository.BlockRepository = (*blockRepo)(nil)

type blockRepo struct{ pool *pgxpool.Pool }

func NewBlockRepo(pool *pgxpool.Pool) *blockRepo {
	return &blockRepo{pool: pool}
}

func (r *blockRepo) Block(ctx context.Context, tx repository.Tx, telegramID int64, reason string) error {
	const q = `
INSERT INTO blocked_users (telegram_id, reason)
VALUES ($1, $2)
ON CONFLICT (telegram_id) DO UPDATE SET reason = $2;`

	if _, err := execSQL(ctx, r.pool, tx, q, telegramID, reason); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *blockRepo) Unblock(ctx context.Context, tx repository.Tx, telegramID int64) (bool, error) {
	const q = `DELETE FROM blocked_users WHERE telegram_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, telegramID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *blockRepo) IsBlocked(ctx context.Context, tx repository.Tx, telegramID int64) (bool, error) {
	const q = `SELECT 1 FROM blocked_users WHERE telegram_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, telegramID)
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
