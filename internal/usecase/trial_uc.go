// File: internal/usecase/trial_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/domain/ports/repository"
	"telegram-vpn-storefront/internal/infra/logging"
)

// Compile-time check
var _ TrialUseCase = (*trialUC)(nil)

// TrialUseCase grants the one-time free trial.
type TrialUseCase interface {
	// Grant provisions a trial account and returns its subscription URL.
	// Sentinel errors: ErrTrialDisabled, ErrUserBlocked, ErrTrialAlreadyUsed.
	Grant(ctx context.Context, telegramID int64) (subscriptionURL string, err error)
}

type trialUC struct {
	trials   repository.TrialRepository
	blocks   repository.BlockRepository
	provider adapter.ProviderClient

	trialDays           int
	trialDataLimitGB    int
	subscriptionBaseURL string

	log *zerolog.Logger
}

func NewTrialUseCase(
	trials repository.TrialRepository,
	blocks repository.BlockRepository,
	provider adapter.ProviderClient,
	trialDays, trialDataLimitGB int,
	subscriptionBaseURL string,
	logger *zerolog.Logger,
) *trialUC {
	return &trialUC{
		trials:              trials,
		blocks:              blocks,
		provider:            provider,
		trialDays:           trialDays,
		trialDataLimitGB:    trialDataLimitGB,
		subscriptionBaseURL: strings.TrimRight(subscriptionBaseURL, "/"),
		log:                 logger,
	}
}

func (u *trialUC) Grant(ctx context.Context, telegramID int64) (string, error) {
	if u.trialDays <= 0 {
		return "", domain.ErrTrialDisabled
	}
	ctx = logging.WithTgID(ctx, telegramID)
	log := logging.With(ctx, u.log)

	if blocked, err := u.blocks.IsBlocked(ctx, repository.NoTX, telegramID); err != nil {
		return "", err
	} else if blocked {
		return "", domain.ErrUserBlocked
	}
	if used, err := u.trials.HasUsed(ctx, repository.NoTX, telegramID); err != nil {
		return "", err
	} else if used {
		return "", domain.ErrTrialAlreadyUsed
	}

	plan := &model.Plan{
		ID:           "trial",
		Name:         "Trial",
		DurationDays: u.trialDays,
		DataLimitGB:  u.trialDataLimitGB,
	}
	acc, err := u.provider.CreateAccount(ctx, fmt.Sprintf("trial_%d", telegramID), plan, telegramID)
	if err != nil {
		log.Error().Err(err).Msg("trial provisioning failed")
		return "", err
	}
	if acc == nil || acc.ShortUUID == "" {
		log.Error().Msg("trial account has no subscription handle")
		return "", domain.ErrOperationFailed
	}

	added, err := u.trials.Add(ctx, repository.NoTX, telegramID)
	if err != nil {
		log.Error().Err(err).Msg("trial grant write failed")
		return "", err
	}
	if !added {
		// Lost a concurrent grant race; this account is surplus.
		log.Warn().Str("account", acc.UUID).Msg("concurrent trial grant, removing duplicate account")
		if acc.UUID != "" {
			if derr := u.provider.DeleteAccount(ctx, acc.UUID); derr != nil {
				log.Warn().Err(derr).Msg("duplicate trial cleanup failed")
			}
		}
		return "", domain.ErrTrialAlreadyUsed
	}

	log.Info().Int("days", u.trialDays).Msg("trial granted")
	if u.subscriptionBaseURL == "" {
		return acc.ShortUUID, nil
	}
	return u.subscriptionBaseURL + "/sub/" + acc.ShortUUID, nil
}
