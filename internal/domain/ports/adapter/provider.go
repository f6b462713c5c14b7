package adapter

import (
	"context"
	"fmt"

	"telegram-vpn-storefront/internal/domain/model"
)

// ProviderError classifies a panel API failure. Transient faults (network,
// 5xx, auth refresh exhaustion) are retried by the client per its policy;
// permanent faults (other 4xx) surface immediately.
type ProviderError struct {
	StatusCode int
	Transient  bool
	Message    string
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error (%s, status %d): %s", kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", kind, e.Message)
}

// ProviderClient is the authenticated CRUD surface of the remote VPN panel.
// Implementations own the auth token lifetime and all retry behavior; callers
// see plain results or a *ProviderError.
type ProviderClient interface {
	// CreateAccount provisions a new panel account for the plan. Expiration is
	// computed from the plan duration; the data limit from its quota. Never
	// used to extend an existing account.
	CreateAccount(ctx context.Context, username string, plan *model.Plan, telegramID int64) (*model.Account, error)
	// FindAccountsByTelegramID returns an empty slice, not an error, when the
	// panel knows nothing about the user.
	FindAccountsByTelegramID(ctx context.Context, telegramID int64) ([]*model.Account, error)
	// ExtendAccount pushes an account's expiration out by extraDays. Used
	// exclusively for referral bonus payout.
	ExtendAccount(ctx context.Context, accountUUID string, extraDays int) (*model.Account, error)
	// ExtendByTelegramID extends the user's first account; false when the user
	// has no account.
	ExtendByTelegramID(ctx context.Context, telegramID int64, extraDays int) (bool, error)
	DeleteAccount(ctx context.Context, accountUUID string) error
	// RevokeByTelegramID deletes every account of the user independently;
	// one failed delete does not stop the others.
	RevokeByTelegramID(ctx context.Context, telegramID int64) (deleted int, handles []string, err error)
	// PurgeExpired removes accounts expired more than olderThanDays ago and
	// returns the number of confirmed deletions.
	PurgeExpired(ctx context.Context, olderThanDays int) (int, error)
}
