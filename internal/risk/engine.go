// internal/risk/engine.go

// Package risk scores sales deals for the likelihood that they stall or are lost.
//
// Compute is pure: it reads only its arguments, allocates its own result and
// is safe to call from any number of goroutines.
package risk

import (
	"fmt"
	"math"
	"strings"
)

// Level is the discrete bucket a score falls into.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	// AmountCeiling is the deal value at which amount risk saturates.
	AmountCeiling = 100000.0
	// HighValueThreshold is the deal value above which a high-value factor is reported.
	HighValueThreshold = 50000.0

	riskyStageScore   = 1.0
	defaultStageScore = 0.3
	stageFactorCutoff = 0.5

	highLevelAbove   = 70
	mediumLevelAbove = 40
)

// RiskyStages are the high-friction pipeline stages. Matching is exact and case-sensitive.
var RiskyStages = []string{"Contract Sent", "Legal Review", "Negotiation", "Procurement"}

// RiskKeywords are matched as lower-case substrings of a deal's notes, in this order.
var RiskKeywords = []string{"budget", "legal", "blocked", "delay", "stalled", "no response"}

// Deal holds the deal attributes the engine reads. Callers normalize missing
// values (empty notes, zero amount) before scoring.
type Deal struct {
	DaysInactive int     `json:"daysInactive"`
	Stage        string  `json:"stage"`
	Amount       float64 `json:"amount"`
	Notes        string  `json:"notes"`
}

// WeightingProfile controls how much each component contributes. Weights are
// not normalized and their sum is not checked.
type WeightingProfile struct {
	StalledThresholdDays float64 `json:"stalledThresholdDays"`
	RiskWeightAmount     float64 `json:"riskWeightAmount"`
	RiskWeightStage      float64 `json:"riskWeightStage"`
	RiskWeightInactivity float64 `json:"riskWeightInactivity"`
	RiskWeightNotes      float64 `json:"riskWeightNotes"`
}

// DefaultProfile returns the weighting profile new sessions start with.
func DefaultProfile() WeightingProfile {
	return WeightingProfile{
		StalledThresholdDays: 14,
		RiskWeightAmount:     0.4,
		RiskWeightStage:      0.3,
		RiskWeightInactivity: 0.2,
		RiskWeightNotes:      0.1,
	}
}

// Components are the four normalized risk inputs, each in [0,1].
type Components struct {
	Inactivity float64 `json:"inactivity"`
	Stage      float64 `json:"stage"`
	Amount     float64 `json:"amount"`
	Notes      float64 `json:"notes"`
}

// Assessment is the derived risk of one deal under one profile.
type Assessment struct {
	Score   int      `json:"riskScore"`
	Level   Level    `json:"riskLevel"`
	Factors []string `json:"riskFactors"`
}

// Compute scores deal under profile.
func Compute(deal Deal, profile WeightingProfile) Assessment {
	a, _ := ComputeDetailed(deal, profile)
	return a
}

// ComputeDetailed is Compute that also returns the normalized components.
func ComputeDetailed(deal Deal, profile WeightingProfile) (Assessment, Components) {
	factors := make([]string, 0, 4)
	var c Components

	c.Inactivity = normalize(float64(deal.DaysInactive), profile.StalledThresholdDays*2)
	if float64(deal.DaysInactive) > profile.StalledThresholdDays {
		factors = append(factors, fmt.Sprintf("Inactive for %d days", deal.DaysInactive))
	}

	c.Stage = stageRisk(deal.Stage)
	if c.Stage > stageFactorCutoff {
		factors = append(factors, fmt.Sprintf("Deal is currently in a high-friction stage (%s)", deal.Stage))
	}

	c.Amount = normalize(deal.Amount, AmountCeiling)
	if deal.Amount > HighValueThreshold {
		factors = append(factors, fmt.Sprintf("High-value deal ($%s)", FormatAmount(deal.Amount)))
	}

	notes := strings.ToLower(deal.Notes)
	for _, k := range RiskKeywords {
		if strings.Contains(notes, k) {
			c.Notes = 1
			factors = append(factors, fmt.Sprintf("Notes mention a risk factor (%q)", k))
		}
	}

	score := RoundHalfUp(weightedSum(c, profile) * 100)

	return Assessment{
		Score:   score,
		Level:   Classify(score),
		Factors: factors,
	}, c
}

// weightedSum adds the products left to right. The explicit conversions stop
// the compiler from fusing multiply-add, which would change the last bit on
// some architectures.
func weightedSum(c Components, p WeightingProfile) float64 {
	sum := float64(c.Inactivity * p.RiskWeightInactivity)
	sum = sum + float64(c.Stage*p.RiskWeightStage)
	sum = sum + float64(c.Amount*p.RiskWeightAmount)
	sum = sum + float64(c.Notes*p.RiskWeightNotes)
	return sum
}

// Classify maps a rounded score to its level.
func Classify(score int) Level {
	switch {
	case score > highLevelAbove:
		return LevelHigh
	case score > mediumLevelAbove:
		return LevelMedium
	default:
		return LevelLow
	}
}

// IsRiskyStage reports whether stage belongs to the high-friction set.
func IsRiskyStage(stage string) bool {
	for _, s := range RiskyStages {
		if s == stage {
			return true
		}
	}
	return false
}

func stageRisk(stage string) float64 {
	if IsRiskyStage(stage) {
		return riskyStageScore
	}
	return defaultStageScore
}

// normalize returns min(value/max, 1). A non-positive max saturates any
// positive value and leaves zero at zero instead of producing NaN.
func normalize(value, max float64) float64 {
	if max <= 0 {
		if value > 0 {
			return 1
		}
		return 0
	}
	return math.Min(value/max, 1)
}

// RoundHalfUp rounds to the nearest integer with halves going towards
// positive infinity (2.5 -> 3, -2.5 -> -2).
func RoundHalfUp(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	r := math.Floor(x)
	if x-r >= 0.5 {
		r++
	}
	return int(r)
}
