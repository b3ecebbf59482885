// internal/models/deal.go
package models

import (
	"math"
	"strings"

	"drift-workers/internal/risk"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high > medium > low; unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyCAD Currency = "CAD"
	CurrencyGBP Currency = "GBP"
)

// Deal is one pipeline opportunity as shown on the dashboard. The risk
// fields are derived and overwritten on every rescoring.
type Deal struct {
	ID               string   `json:"id" db:"id"`
	Name             string   `json:"name" db:"name"`
	CompanyName      string   `json:"companyName" db:"company_name"`
	ContactName      string   `json:"contactName" db:"contact_name"`
	Priority         Priority `json:"priority" db:"priority" validate:"omitempty,oneof=high medium low"`
	Stage            string   `json:"stage" db:"stage"`
	NextStep         *string  `json:"nextStep" db:"next_step"`
	Amount           float64  `json:"amount" db:"amount" validate:"gte=0"`
	Currency         Currency `json:"currency" db:"currency" validate:"omitempty,oneof=USD EUR CAD GBP"`
	DaysInStage      int      `json:"daysInStage" db:"days_in_stage" validate:"gte=0"`
	DaysInactive     int      `json:"daysInactive" db:"days_inactive" validate:"gte=0"`
	CRMURL           string   `json:"crmUrl" db:"crm_url"`
	LastActivityDate string   `json:"lastActivityDate" db:"last_activity_date"`
	Notes            string   `json:"notes" db:"notes"`
	AIFollowUp       string   `json:"aiFollowUp,omitempty" db:"-"`

	RiskScore   int        `json:"riskScore" db:"-"`
	RiskLevel   risk.Level `json:"riskLevel" db:"-"`
	RiskFactors []string   `json:"riskFactors" db:"-"`
}

// RiskInput projects the attributes the engine reads.
func (d *Deal) RiskInput() risk.Deal {
	return risk.Deal{
		DaysInactive: d.DaysInactive,
		Stage:        d.Stage,
		Amount:       d.Amount,
		Notes:        d.Notes,
	}
}

// Assessment returns the stored risk fields.
func (d *Deal) Assessment() risk.Assessment {
	return risk.Assessment{Score: d.RiskScore, Level: d.RiskLevel, Factors: d.RiskFactors}
}

// ApplyAssessment overwrites the derived risk fields.
func (d *Deal) ApplyAssessment(a risk.Assessment) {
	d.RiskScore = a.Score
	d.RiskLevel = a.Level
	d.RiskFactors = a.Factors
}

// Normalize trims the ID and zeroes negative or non-finite numerics. Stage is
// left untouched since stage matching is exact.
func (d *Deal) Normalize() {
	d.ID = strings.TrimSpace(d.ID)
	if d.DaysInactive < 0 {
		d.DaysInactive = 0
	}
	if d.DaysInStage < 0 {
		d.DaysInStage = 0
	}
	if d.Amount < 0 || math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		d.Amount = 0
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Currency == "" {
		d.Currency = CurrencyUSD
	}
}

// Clone returns a deep copy.
func (d Deal) Clone() Deal {
	out := d
	if d.NextStep != nil {
		s := *d.NextStep
		out.NextStep = &s
	}
	if d.RiskFactors != nil {
		out.RiskFactors = append(make([]string, 0, len(d.RiskFactors)), d.RiskFactors...)
	}
	return out
}

// NextStepText returns the next step or "" when unset.
func (d *Deal) NextStepText() string {
	if d.NextStep == nil {
		return ""
	}
	return *d.NextStep
}
