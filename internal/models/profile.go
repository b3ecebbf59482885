// internal/models/profile.go
package models

import "drift-workers/internal/risk"

type NotificationSettings struct {
	EmailDigest bool `json:"emailDigest"`
	PushDesktop bool `json:"pushDesktop"`
	Marketing   bool `json:"marketing"`
}

// UserProfile is the single session user, including the risk weighting
// settings. Weight bounds are enforced here, never by the engine.
type UserProfile struct {
	Name          string               `json:"name"`
	Email         string               `json:"email" validate:"omitempty,email"`
	AvatarURL     string               `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Title         string               `json:"title"`
	Country       string               `json:"country"`
	Language      string               `json:"language"`
	Timezone      string               `json:"timezone"`
	Notifications NotificationSettings `json:"notifications"`

	StalledThresholdDays float64 `json:"stalledThresholdDays" validate:"gt=0"`
	RiskWeightAmount     float64 `json:"riskWeightAmount" validate:"gte=0,lte=1"`
	RiskWeightStage      float64 `json:"riskWeightStage" validate:"gte=0,lte=1"`
	RiskWeightInactivity float64 `json:"riskWeightInactivity" validate:"gte=0,lte=1"`
	RiskWeightNotes      float64 `json:"riskWeightNotes" validate:"gte=0,lte=1"`
}

// DefaultUserProfile is the profile a new session starts with.
func DefaultUserProfile(w risk.WeightingProfile) UserProfile {
	p := UserProfile{
		Name:     "John Doe",
		Email:    "john@drift.app",
		Title:    "Senior Account Executive",
		Country:  "United States",
		Language: "en",
		Timezone: "PST",
		Notifications: NotificationSettings{
			EmailDigest: true,
		},
	}
	p.SetWeighting(w)
	return p
}

// Weighting extracts the engine profile.
func (p UserProfile) Weighting() risk.WeightingProfile {
	return risk.WeightingProfile{
		StalledThresholdDays: p.StalledThresholdDays,
		RiskWeightAmount:     p.RiskWeightAmount,
		RiskWeightStage:      p.RiskWeightStage,
		RiskWeightInactivity: p.RiskWeightInactivity,
		RiskWeightNotes:      p.RiskWeightNotes,
	}
}

func (p *UserProfile) SetWeighting(w risk.WeightingProfile) {
	p.StalledThresholdDays = w.StalledThresholdDays
	p.RiskWeightAmount = w.RiskWeightAmount
	p.RiskWeightStage = w.RiskWeightStage
	p.RiskWeightInactivity = w.RiskWeightInactivity
	p.RiskWeightNotes = w.RiskWeightNotes
}
