package model

// StatsTotals aggregates order counters for the admin surface.
type StatsTotals struct {
	OrdersSucceeded int
	OrdersPending   int
	OrdersFailed    int
	RevenueKopeks   int64
	TrialUsers      int
	Referrals       int
}

// ChartData is a per-day series over the trailing N days, oldest first.
// Days without orders are present with zeroes.
type ChartData struct {
	Labels  []string // "MM-DD"
	Orders  []int
	Revenue []int64 // kopeks
}
