package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

var _ repository.StatsRepository = (*statsRepo)(nil)

type statsRepo struct{ pool *pgxpool.Pool }

func NewStatsRepo(pool *pgxpool.Pool) *statsRepo {
	return &statsRepo{pool: pool}
}

func (r *statsRepo) Totals(ctx context.Context, tx repository.Tx) (*model.StatsTotals, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE status = 'succeeded'),
  COUNT(*) FILTER (WHERE status = 'pending'),
  COUNT(*) FILTER (WHERE status = 'failed'),
  COALESCE(SUM(amount) FILTER (WHERE status = 'succeeded'), 0),
  (SELECT COUNT(*) FROM trial_grants),
  (SELECT COUNT(*) FROM referrals)
FROM orders;`

	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	t := &model.StatsTotals{}
	if err := row.Scan(&t.OrdersSucceeded, &t.OrdersPending, &t.OrdersFailed,
		&t.RevenueKopeks, &t.TrialUsers, &t.Referrals); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

// ChartData returns one point per day for the trailing N days, zero-filled so
// chart rendering needs no gap handling.
func (r *statsRepo) ChartData(ctx context.Context, tx repository.Tx, days int) (*model.ChartData, error) {
	if days <= 0 {
		days = 14
	}
	const q = `
SELECT created_at::date AS d, COUNT(*), COALESCE(SUM(amount), 0)
FROM orders
WHERE status = 'succeeded' AND created_at >= NOW() - ($1::int * INTERVAL '1 day')
GROUP BY d
ORDER BY d;`

	rows, err := queryRows(ctx, r.pool, tx, q, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type point struct {
		orders  int
		revenue int64
	}
	byDate := make(map[string]point)
	for rows.Next() {
		var d time.Time
		var p point
		if err := rows.Scan(&d, &p.orders, &p.revenue); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		byDate[d.Format("2006-01-02")] = p
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}

	out := &model.ChartData{
		Labels:  make([]string, 0, days),
		Orders:  make([]int, 0, days),
		Revenue: make([]int64, 0, days),
	}
	now := time.Now().UTC()
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		p := byDate[day.Format("2006-01-02")]
		out.Labels = append(out.Labels, day.Format("01-02"))
		out.Orders = append(out.Orders, p.orders)
		out.Revenue = append(out.Revenue, p.revenue)
	}
	return out, nil
}
