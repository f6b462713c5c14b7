//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
)

type trialFixture struct {
	trials   *memTrialRepo
	blocks   *memBlockRepo
	provider *mockProvider
	uc       *trialUC
}

func newTrialFixture(days int) *trialFixture {
	f := &trialFixture{
		trials:   newMemTrialRepo(),
		blocks:   newMemBlockRepo(),
		provider: &mockProvider{},
	}
	f.uc = NewTrialUseCase(f.trials, f.blocks, f.provider, days, 10, "https://sub.example", newTestLogger())
	return f
}

func TestTrial_Grant(t *testing.T) {
	t.Run("grants once and returns the link", func(t *testing.T) {
		// Arrange
		f := newTrialFixture(3)
		var gotPlan *model.Plan
		var gotUsername string
		f.provider.CreateAccountFunc = func(_ context.Context, username string, plan *model.Plan, _ int64) (*model.Account, error) {
			gotPlan = plan
			gotUsername = username
			return &model.Account{UUID: "u-1", ShortUUID: "s-1"}, nil
		}

		// Act
		url, err := f.uc.Grant(context.Background(), 42)

		// Assert
		if err != nil {
			t.Fatalf("Grant: %v", err)
		}
		if url != "https://sub.example/sub/s-1" {
			t.Errorf("url = %q", url)
		}
		if gotUsername != "trial_42" {
			t.Errorf("username = %q", gotUsername)
		}
		if gotPlan.DurationDays != 3 || gotPlan.DataLimitGB != 10 {
			t.Errorf("trial plan = %+v", gotPlan)
		}

		// Second request must be rejected.
		if _, err := f.uc.Grant(context.Background(), 42); !errors.Is(err, domain.ErrTrialAlreadyUsed) {
			t.Fatalf("expected ErrTrialAlreadyUsed on repeat, got %v", err)
		}
		if got := f.provider.creates(); got != 1 {
			t.Errorf("expected a single provisioning, got %d", got)
		}
	})

	t.Run("disabled when days is zero", func(t *testing.T) {
		f := newTrialFixture(0)
		if _, err := f.uc.Grant(context.Background(), 42); !errors.Is(err, domain.ErrTrialDisabled) {
			t.Fatalf("expected ErrTrialDisabled, got %v", err)
		}
	})

	t.Run("blocked user is rejected", func(t *testing.T) {
		f := newTrialFixture(3)
		_ = f.blocks.Block(context.Background(), nil, 42, "fraud")
		if _, err := f.uc.Grant(context.Background(), 42); !errors.Is(err, domain.ErrUserBlocked) {
			t.Fatalf("expected ErrUserBlocked, got %v", err)
		}
	})

	t.Run("concurrent grant race cleans up the extra account", func(t *testing.T) {
		// Arrange: the grant insert loses to a concurrent request.
		f := newTrialFixture(3)
		lost := false
		f.trials.addResult = &lost

		// Act
		_, err := f.uc.Grant(context.Background(), 42)

		// Assert
		if !errors.Is(err, domain.ErrTrialAlreadyUsed) {
			t.Fatalf("expected ErrTrialAlreadyUsed, got %v", err)
		}
		deleted := f.provider.deleted()
		if len(deleted) != 1 {
			t.Errorf("expected the surplus account to be deleted, got %v", deleted)
		}
	})
}
