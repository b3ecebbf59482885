// internal/workers/communication/send-risk-digest/models.go
package sendriskdigest

// Input is empty; the digest is built from the current session.
type Input struct{}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // sent, skipped or disabled
	SentAt         string `json:"sentAt"` // RFC 3339
	Recipient      string `json:"recipient,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
}
