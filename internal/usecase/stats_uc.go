// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"

	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context) (*model.StatsTotals, error)
	Chart(ctx context.Context, days int) (*model.ChartData, error)
}

type statsUC struct {
	stats repository.StatsRepository
}

func NewStatsUseCase(stats repository.StatsRepository) *statsUC {
	return &statsUC{stats: stats}
}

func (u *statsUC) Totals(ctx context.Context) (*model.StatsTotals, error) {
	return u.stats.Totals(ctx, repository.NoTX)
}

func (u *statsUC) Chart(ctx context.Context, days int) (*model.ChartData, error) {
	return u.stats.ChartData(ctx, repository.NoTX, days)
}
