//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
)

func TestOrderRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewOrderRepo(testPool)

	pendingOrder := func(paymentID string, tgID int64) *model.Order {
		return &model.Order{
			PaymentID:  paymentID,
			TelegramID: tgID,
			PlanID:     "monthly",
			PlanName:   "Monthly",
			Amount:     19900,
			Status:     model.OrderStatusPending,
		}
	}

	t.Run("create is idempotent on payment id", func(t *testing.T) {
		cleanup(t)

		id1, err := repo.Create(ctx, nil, pendingOrder("pay_1", 42))
		if err != nil {
			t.Fatalf("first create: %v", err)
		}
		id2, err := repo.Create(ctx, nil, pendingOrder("pay_1", 42))
		if err != nil {
			t.Fatalf("duplicate create: %v", err)
		}
		if id1 != id2 {
			t.Errorf("duplicate create returned a different id: %d vs %d", id1, id2)
		}

		found, err := repo.FindByPaymentID(ctx, nil, "pay_1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if found.Status != model.OrderStatusPending || found.Amount != 19900 {
			t.Errorf("order = %+v", found)
		}
	})

	t.Run("missing order is ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByPaymentID(ctx, nil, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("conditional success write fires exactly once", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.Create(ctx, nil, pendingOrder("pay_2", 42)); err != nil {
			t.Fatal(err)
		}

		now := time.Now().UTC()
		won, err := repo.MarkSucceededIfPending(ctx, nil, "pay_2", "tg_42_pay_2", "short-1", now)
		if err != nil {
			t.Fatalf("first write: %v", err)
		}
		if !won {
			t.Fatal("first conditional write should win")
		}

		// Replay must lose.
		won, err = repo.MarkSucceededIfPending(ctx, nil, "pay_2", "tg_42_pay_2", "short-other", now)
		if err != nil {
			t.Fatalf("second write: %v", err)
		}
		if won {
			t.Fatal("second conditional write must not win")
		}

		o, err := repo.FindByPaymentID(ctx, nil, "pay_2")
		if err != nil {
			t.Fatal(err)
		}
		if o.Status != model.OrderStatusSucceeded {
			t.Errorf("status = %s", o.Status)
		}
		if o.ShortUUID == nil || *o.ShortUUID != "short-1" {
			t.Errorf("short uuid = %v, the replay must not overwrite it", o.ShortUUID)
		}
		if o.CompletedAt == nil {
			t.Error("completed_at not set")
		}

		if done, _ := repo.IsSucceeded(ctx, nil, "pay_2"); !done {
			t.Error("IsSucceeded should report true")
		}
	})

	t.Run("failed orders never become succeeded via the conditional write", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.Create(ctx, nil, pendingOrder("pay_3", 42)); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.UpdateStatus(ctx, nil, "pay_3", model.OrderStatusFailed); err != nil {
			t.Fatal(err)
		}

		won, err := repo.MarkSucceededIfPending(ctx, nil, "pay_3", "u", "s", time.Now().UTC())
		if err != nil {
			t.Fatal(err)
		}
		if won {
			t.Fatal("conditional write must not promote a failed order")
		}
	})

	t.Run("list by telegram id is newest first", func(t *testing.T) {
		cleanup(t)
		for _, id := range []string{"pay_a", "pay_b"} {
			if _, err := repo.Create(ctx, nil, pendingOrder(id, 42)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := repo.Create(ctx, nil, pendingOrder("pay_other", 7)); err != nil {
			t.Fatal(err)
		}

		orders, err := repo.ListByTelegramID(ctx, nil, 42)
		if err != nil {
			t.Fatal(err)
		}
		if len(orders) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(orders))
		}
	})
}
