package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, payment_id, telegram_id, plan_id, plan_name, amount, status, created_at, completed_at, username, short_uuid, referrer_id`

// Create inserts a pending order. Duplicate payment ids are tolerated: the
// insert becomes a no-op and the existing row's id is returned, so the webhook
// path can safely materialize an order it has not seen before.
func (r *orderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) (int64, error) {
	const q = `
INSERT INTO orders (payment_id, telegram_id, plan_id, plan_name, amount, status, referrer_id)
VALUES ($1, $2, $3, $4, $5, 'pending', $6)
ON CONFLICT (payment_id) DO NOTHING
RETURNING id;`

	row, err := pickRow(ctx, r.pool, tx, q, o.PaymentID, o.TelegramID, o.PlanID, o.PlanName, o.Amount, o.ReferrerID)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrOperationFailed
		}
		// Conflict path: the order already exists, return its id.
		existing, ferr := r.FindByPaymentID(ctx, tx, o.PaymentID)
		if ferr != nil {
			return 0, ferr
		}
		return existing.ID, nil
	}
	return id, nil
}

func (r *orderRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}

	o := &model.Order{}
	if err := scanOrder(row, o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func (r *orderRepo) IsSucceeded(ctx context.Context, tx repository.Tx, paymentID string) (bool, error) {
	const q = `SELECT 1 FROM orders WHERE payment_id=$1 AND status='succeeded';`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
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

// MarkSucceededIfPending atomically updates status only when the current
// status is 'pending'. The zero-rows result is how duplicate deliveries and
// lost races surface to the caller.
func (r *orderRepo) MarkSucceededIfPending(
	ctx context.Context, tx repository.Tx, paymentID, username, shortUUID string, completedAt time.Time,
) (bool, error) {
	const q = `
UPDATE orders
   SET status = 'succeeded',
       completed_at = $2,
       username = $3,
       short_uuid = $4
 WHERE payment_id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, paymentID, completedAt, username, shortUUID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, paymentID string, status model.OrderStatus) (bool, error) {
	const q = `
UPDATE orders
   SET status = $2,
       completed_at = CASE WHEN $2 = 'succeeded' THEN NOW() ELSE completed_at END
 WHERE payment_id = $1;`

	cmd, err := execSQL(ctx, r.pool, tx, q, paymentID, string(status))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) ListByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) ([]*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE telegram_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, telegramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o := new(model.Order)
		if err := scanOrder(rows, o); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(&o.ID, &o.PaymentID, &o.TelegramID, &o.PlanID, &o.PlanName, &o.Amount,
		&o.Status, &o.CreatedAt, &o.CompletedAt, &o.Username, &o.ShortUUID, &o.ReferrerID)
}
