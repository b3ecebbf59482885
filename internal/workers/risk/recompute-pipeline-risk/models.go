// internal/workers/risk/recompute-pipeline-risk/models.go
package recomputepipelinerisk

import "drift-workers/internal/risk"

type Input struct {
	Profile risk.WeightingProfile `json:"profile"`
}

type Output struct {
	DealsScored int `json:"dealsScored"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
	Low         int `json:"low"`
	// RevenueAtRisk sums the amounts of high-risk deals after rescoring.
	RevenueAtRisk float64 `json:"revenueAtRisk"`
}
