package types

import "github.com/shopspring/decimal"

// DashboardStats are the aggregate counters shown on the live dashboard.
// Recomputed from the store after every completed submission and attached to
// submission.processed events.
type DashboardStats struct {
	TotalSubmissions int64 `json:"total_submissions"`
	Queued           int64 `json:"queued"`
	Processing       int64 `json:"processing"`
	Completed        int64 `json:"completed"`
	Duplicates       int64 `json:"duplicates"`
	Failed           int64 `json:"failed"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalVAT    decimal.Decimal `json:"total_vat"`
}
