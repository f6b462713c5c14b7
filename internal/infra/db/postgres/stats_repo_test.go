//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"telegram-vpn-storefront/internal/domain/model"
)

func TestStatsRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	cleanup(t)

	ctx := context.Background()
	orders := NewOrderRepo(testPool)
	trials := NewTrialRepo(testPool)
	stats := NewStatsRepo(testPool)

	// One succeeded order, one pending, one trial grant.
	if _, err := orders.Create(ctx, nil, &model.Order{
		PaymentID: "pay_s", TelegramID: 42, PlanID: "monthly", PlanName: "Monthly",
		Amount: 19900, Status: model.OrderStatusPending,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := orders.MarkSucceededIfPending(ctx, nil, "pay_s", "u", "s", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if _, err := orders.Create(ctx, nil, &model.Order{
		PaymentID: "pay_p", TelegramID: 7, PlanID: "monthly", PlanName: "Monthly",
		Amount: 19900, Status: model.OrderStatusPending,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := trials.Add(ctx, nil, 42); err != nil {
		t.Fatal(err)
	}

	totals, err := stats.Totals(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if totals.OrdersSucceeded != 1 || totals.OrdersPending != 1 || totals.OrdersFailed != 0 {
		t.Errorf("totals = %+v", totals)
	}
	if totals.RevenueKopeks != 19900 {
		t.Errorf("revenue = %d", totals.RevenueKopeks)
	}
	if totals.TrialUsers != 1 {
		t.Errorf("trial users = %d", totals.TrialUsers)
	}

	chart, err := stats.ChartData(ctx, nil, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(chart.Labels) != 7 || len(chart.Orders) != 7 || len(chart.Revenue) != 7 {
		t.Fatalf("chart lengths = %d/%d/%d", len(chart.Labels), len(chart.Orders), len(chart.Revenue))
	}
	// Today carries the one succeeded order.
	last := len(chart.Orders) - 1
	if chart.Orders[last] != 1 || chart.Revenue[last] != 19900 {
		t.Errorf("today's point = %d orders / %d kopeks", chart.Orders[last], chart.Revenue[last])
	}
}
