// internal/workers/risk/compute-deal-risk/models.go
package computedealrisk

import (
	"drift-workers/internal/models"
	"drift-workers/internal/risk"
)

type Input struct {
	Deal    models.Deal            `json:"deal"`
	Profile *risk.WeightingProfile `json:"profile,omitempty"` // session profile when absent
}

type Output struct {
	RiskScore   int      `json:"riskScore"`
	RiskLevel   string   `json:"riskLevel"`
	RiskFactors []string `json:"riskFactors"`
}
