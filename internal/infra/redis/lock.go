// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

var _ repository.Locker = (*Locker)(nil)

// Locker serializes webhook reconciliation per payment id. The token guards
// against releasing a lock that has expired and been re-acquired elsewhere.
type Locker struct {
	cli *redis.Client
}

func NewLocker(c *Client) *Locker {
	return &Locker{cli: c.cli}
}

// TryLock acquires the key or reports why it could not. ErrLockNotAcquired
// means the key is genuinely held by someone else; a backend fault comes back
// as its own error so callers do not mistake an outage for contention.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < 5; i++ { // 5 tries
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		switch {
		case err != nil:
			lastErr = fmt.Errorf("lock backend: %w", err)
		case ok:
			return token, nil
		default:
			lastErr = domain.ErrLockNotAcquired
		}
		time.Sleep(50 * time.Millisecond) // wait before retrying
	}
	return "", lastErr
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}
