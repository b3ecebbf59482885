// internal/models/notification.go
package models

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSNS   NotificationChannel = "sns"
)

const (
	NotificationRiskDigest    = "risk_digest"
	NotificationHighRiskAlert = "high_risk_alert"
)

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

// Notification records one digest or alert delivery attempt.
type Notification struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Channel   NotificationChannel    `json:"channel"`
	Recipient string                 `json:"recipient"`
	Status    string                 `json:"status"`
	MessageID string                 `json:"messageId,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	SentAt    string                 `json:"sentAt"`
}
