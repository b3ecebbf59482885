// internal/insights/insights.go

// Package insights aggregates a deal set into the pipeline dashboard figures.
package insights

import (
	"drift-workers/internal/models"
	"drift-workers/internal/risk"
)

const (
	// StalledAfterDays is the inactivity beyond which a deal counts as stalled.
	StalledAfterDays = 7
	// CriticalAfterDays is the inactivity beyond which a deal or stage is critical.
	CriticalAfterDays = 14
)

type StageValue struct {
	Stage string  `json:"stage"`
	Value float64 `json:"value"`
}

type Bottleneck struct {
	Stage       string `json:"stage"`
	AvgInactive int    `json:"avgInactive"`
	Deals       int    `json:"deals"`
	Critical    bool   `json:"critical"`
}

type HealthBucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StageRisk struct {
	Stage         string  `json:"stage"`
	Low           int     `json:"low"`
	Medium        int     `json:"medium"`
	High          int     `json:"high"`
	RevenueAtRisk float64 `json:"revenueAtRisk"`
}

type DealSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CompanyName  string     `json:"companyName"`
	Amount       float64    `json:"amount"`
	DaysInactive int        `json:"daysInactive"`
	RiskLevel    risk.Level `json:"riskLevel"`
}

// Report is the insights view. Stage-keyed slices keep first-seen stage order.
type Report struct {
	TotalDeals         int            `json:"totalDeals"`
	TotalInactiveValue float64        `json:"totalInactiveValue"`
	AvgDaysInStage     int            `json:"avgDaysInStage"`
	HighPriorityCount  int            `json:"highPriorityCount"`
	HighPriorityDeals  []DealSummary  `json:"highPriorityDeals"`
	ValueByStage       []StageValue   `json:"valueByStage"`
	Bottlenecks        []Bottleneck   `json:"bottlenecks"`
	Health             []HealthBucket `json:"health"`
	RiskDistribution   []StageRisk    `json:"riskDistribution"`
	RevenueAtRisk      float64        `json:"revenueAtRisk"`
}

// Compute builds the report for deals. It reads the stored risk level of each
// deal and does not rescore.
func Compute(deals []models.Deal) Report {
	r := Report{
		TotalDeals:        len(deals),
		HighPriorityDeals: []DealSummary{},
		ValueByStage:      []StageValue{},
		Bottlenecks:       []Bottleneck{},
		RiskDistribution:  []StageRisk{},
	}

	var (
		stageIndex  = make(map[string]int)
		inactiveSum []int
		daysInStage int
		healthy     int
		stalled     int
		critical    int
	)

	for _, d := range deals {
		i, seen := stageIndex[d.Stage]
		if !seen {
			i = len(r.ValueByStage)
			stageIndex[d.Stage] = i
			r.ValueByStage = append(r.ValueByStage, StageValue{Stage: d.Stage})
			r.Bottlenecks = append(r.Bottlenecks, Bottleneck{Stage: d.Stage})
			r.RiskDistribution = append(r.RiskDistribution, StageRisk{Stage: d.Stage})
			inactiveSum = append(inactiveSum, 0)
		}

		r.ValueByStage[i].Value += d.Amount
		r.Bottlenecks[i].Deals++
		inactiveSum[i] += d.DaysInactive

		switch d.RiskLevel {
		case risk.LevelHigh:
			r.RiskDistribution[i].High++
			r.RiskDistribution[i].RevenueAtRisk += d.Amount
			r.RevenueAtRisk += d.Amount
		case risk.LevelMedium:
			r.RiskDistribution[i].Medium++
		default:
			r.RiskDistribution[i].Low++
		}

		daysInStage += d.DaysInStage

		switch {
		case d.DaysInactive > CriticalAfterDays:
			critical++
		case d.DaysInactive > StalledAfterDays:
			stalled++
		default:
			healthy++
		}
		if d.DaysInactive > StalledAfterDays {
			r.TotalInactiveValue += d.Amount
		}

		if d.Priority == models.PriorityHigh {
			r.HighPriorityCount++
			r.HighPriorityDeals = append(r.HighPriorityDeals, summarize(d))
		}
	}

	for i := range r.Bottlenecks {
		avg := risk.RoundHalfUp(float64(inactiveSum[i]) / float64(r.Bottlenecks[i].Deals))
		r.Bottlenecks[i].AvgInactive = avg
		r.Bottlenecks[i].Critical = avg > CriticalAfterDays
	}

	n := len(deals)
	if n == 0 {
		n = 1
	}
	r.AvgDaysInStage = risk.RoundHalfUp(float64(daysInStage) / float64(n))

	r.Health = []HealthBucket{
		{Name: "healthy", Count: healthy},
		{Name: "stalled", Count: stalled},
		{Name: "critical", Count: critical},
	}
	return r
}

func summarize(d models.Deal) DealSummary {
	return DealSummary{
		ID:           d.ID,
		Name:         d.Name,
		CompanyName:  d.CompanyName,
		Amount:       d.Amount,
		DaysInactive: d.DaysInactive,
		RiskLevel:    d.RiskLevel,
	}
}
