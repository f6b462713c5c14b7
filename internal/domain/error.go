package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	ErrUnknownPlan      = errors.New("unknown plan")
	ErrUserBlocked      = errors.New("user is blocked")
	ErrTrialDisabled    = errors.New("trial mode is disabled")
	ErrTrialAlreadyUsed = errors.New("trial already used")
	ErrNoConfirmation   = errors.New("payment has no confirmation url")
	ErrLockNotAcquired  = errors.New("lock not acquired")
	ErrRateLimited      = errors.New("too many requests")
)
