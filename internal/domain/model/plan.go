package model

import "telegram-vpn-storefront/internal/domain"

// Plan is a purchasable offering with a fixed duration, optional data quota
// and an optional provisioning-group override. Plans are static configuration,
// not database rows.
type Plan struct {
	ID           string
	Name         string
	PriceKopeks  int64 // minor currency units
	DurationDays int
	DataLimitGB  int    // 0 = unlimited
	SquadUUID    string // overrides the configured default group when set
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// DataLimitBytes converts the plan quota to the bytes value the panel expects.
func (p *Plan) DataLimitBytes() int64 {
	if p.DataLimitGB <= 0 {
		return 0
	}
	return int64(p.DataLimitGB) << 30
}

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, priceKopeks int64, durationDays, dataLimitGB int, squadUUID string) (*Plan, error) {
	if id == "" || name == "" || priceKopeks <= 0 || durationDays <= 0 || dataLimitGB < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Name:         name,
		PriceKopeks:  priceKopeks,
		DurationDays: durationDays,
		DataLimitGB:  dataLimitGB,
		SquadUUID:    squadUUID,
	}, nil
}
