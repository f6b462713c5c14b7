package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Orders are never deleted; they double as the historical/stats record.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS orders (
    id           BIGSERIAL PRIMARY KEY,
    payment_id   TEXT UNIQUE NOT NULL,
    telegram_id  BIGINT NOT NULL,
    plan_id      TEXT NOT NULL,
    plan_name    TEXT NOT NULL,
    amount       BIGINT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ,
    username     TEXT,
    short_uuid   TEXT,
    referrer_id  BIGINT
);
CREATE INDEX IF NOT EXISTS idx_orders_telegram ON orders (telegram_id);

CREATE TABLE IF NOT EXISTS trial_grants (
    telegram_id BIGINT PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS referrals (
    referrer_id BIGINT NOT NULL,
    referred_id BIGINT PRIMARY KEY,
    order_id    BIGINT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS blocked_users (
    telegram_id BIGINT PRIMARY KEY,
    reason      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	_, err := pool.Exec(ctx, ddl)
	return err
}
