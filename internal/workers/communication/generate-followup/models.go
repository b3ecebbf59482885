// internal/workers/communication/generate-followup/models.go
package generatefollowup

import "drift-workers/internal/models"

type Input struct {
	DealID      string                   `json:"dealId"`
	Preferences *models.AgentPreferences `json:"preferences,omitempty"`
}

type Output struct {
	DealID string `json:"dealId"`
	Draft  string `json:"draft"`
}
