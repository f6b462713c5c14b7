package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

var _ repository.TrialRepository = (*trialRepo)(nil)

type trialRepo struct{ pool *pgxpool.Pool }

func NewTrialRepo(pool *pgxpool.Pool) *trialRepo {
	return &trialRepo{pool: pool}
}

func (r *trialRepo) Add(ctx context.Context, tx repository.Tx, telegramID int64) (bool, error) {
	const q = `INSERT INTO trial_grants (telegram_id) VALUES ($1) ON CONFLICT (telegram_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, telegramID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *trialRepo) HasUsed(ctx context.Context, tx repository.Tx, telegramID int64) (bool, error) {
	const q = `SELECT 1 FROM trial_grants WHERE telegram_id=$1;`
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
