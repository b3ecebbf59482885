// internal/models/preferences.go
package models

// AgentPreferences shape generated follow-up drafts.
type AgentPreferences struct {
	SenderName         string `json:"senderName"`
	Role               string `json:"role" validate:"omitempty,oneof=AE BDR Founder CSM 'VP Sales' Other"`
	Tone               string `json:"tone" validate:"omitempty,oneof=friendly direct professional casual challenger"`
	Style              string `json:"style" validate:"omitempty,oneof=short detailed urgent soft storytelling"`
	ProductDescription string `json:"productDescription"`
	CalendarLink       string `json:"calendarLink" validate:"omitempty,url"`
	Language           string `json:"language"`
}

func DefaultAgentPreferences() AgentPreferences {
	return AgentPreferences{
		SenderName:         "John Doe",
		Role:               "AE",
		Tone:               "professional",
		Style:              "short",
		ProductDescription: "Drift helps sales teams unblock stalled deals.",
		Language:           "en",
	}
}
