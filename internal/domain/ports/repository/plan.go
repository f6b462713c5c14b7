package repository

import "telegram-vpn-storefront/internal/domain/model"

// PlanCatalog resolves plan ids against the static configuration.
// The config package provides the concrete implementation.
type PlanCatalog interface {
	ByID(id string) (*model.Plan, bool)
	All() []*model.Plan
}
