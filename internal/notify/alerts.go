// internal/notify/alerts.go

// Package notify delivers high-risk alerts over SNS and the risk digest over SES.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/deals"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"
)

// Publisher publishes one message; *aws.SNSClient satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error)
}

// EmailSender sends one email; *aws.SESClient satisfies it.
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, text, html string) (string, error)
}

// Recorder counts delivery attempts.
type Recorder interface {
	ObserveNotification(kind, channel, status string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveNotification(string, string, string) {}

// AlertPublisher publishes an alert for every deal whose level moves into
// high. Initial loads are not alerted.
type AlertPublisher struct {
	publisher Publisher
	logger    logger.Logger
	recorder  Recorder
	newID     func() string
	now       func() time.Time
}

type AlertOption func(*AlertPublisher)

func WithAlertRecorder(r Recorder) AlertOption { return func(a *AlertPublisher) { a.recorder = r } }

func WithAlertClock(now func() time.Time) AlertOption { return func(a *AlertPublisher) { a.now = now } }

func NewAlertPublisher(p Publisher, log logger.Logger, opts ...AlertOption) *AlertPublisher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	a := &AlertPublisher{
		publisher: p,
		logger:    log.WithFields(map[string]interface{}{"component": "alerts"}),
		recorder:  nopRecorder{},
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsEscalation reports whether c moved a deal into high risk.
func IsEscalation(c deals.Change) bool {
	if c.Trigger == deals.TriggerLoad {
		return false
	}
	return c.Current.RiskLevel == risk.LevelHigh && (c.Created || c.Previous.RiskLevel != risk.LevelHigh)
}

// OnRescore implements deals.Listener. Failures are logged.
func (a *AlertPublisher) OnRescore(ctx context.Context, changes []deals.Change) {
	for _, c := range changes {
		if !IsEscalation(c) {
			continue
		}
		if _, err := a.Alert(ctx, c); err != nil {
			a.logger.Error("High-risk alert failed", map[string]interface{}{
				"dealId": c.Current.ID,
				"error":  err.Error(),
			})
		}
	}
}

type alertMessage struct {
	DealID        string     `json:"dealId"`
	Name          string     `json:"name"`
	CompanyName   string     `json:"companyName"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	PreviousLevel risk.Level `json:"previousLevel,omitempty"`
	RiskScore     int        `json:"riskScore"`
	RiskFactors   []string   `json:"riskFactors"`
	Trigger       string     `json:"trigger"`
	CRMURL        string     `json:"crmUrl,omitempty"`
}

// Alert publishes one alert for c regardless of whether it escalated.
func (a *AlertPublisher) Alert(ctx context.Context, c deals.Change) (models.Notification, error) {
	d := c.Current
	msg := alertMessage{
		DealID:        d.ID,
		Name:          d.Name,
		CompanyName:   d.CompanyName,
		Amount:        d.Amount,
		Currency:      string(d.Currency),
		PreviousLevel: c.Previous.RiskLevel,
		RiskScore:     d.RiskScore,
		RiskFactors:   d.RiskFactors,
		Trigger:       string(c.Trigger),
		CRMURL:        d.CRMURL,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return models.Notification{}, apperrors.NewInternalError(err)
	}

	n := models.Notification{
		ID:      a.newID(),
		Type:    models.NotificationHighRiskAlert,
		Channel: models.ChannelSNS,
		SentAt:  a.now().UTC().Format(time.RFC3339),
		Payload: map[string]interface{}{"dealId": d.ID, "riskScore": d.RiskScore},
	}

	subject := fmt.Sprintf("High risk: %s (%d)", d.Name, d.RiskScore)
	if len(subject) > 100 {
		subject = subject[:100]
	}
	id, err := a.publisher.Publish(ctx, subject, string(body), map[string]string{
		"type":      models.NotificationHighRiskAlert,
		"riskLevel": string(d.RiskLevel),
		"trigger":   string(c.Trigger),
	})
	if err != nil {
		n.Status = models.StatusFailed
		a.recorder.ObserveNotification(n.Type, string(n.Channel), n.Status)
		return n, apperrors.NewNotificationSendFailedError(n.Type, err).WithMetadata("dealId", d.ID)
	}

	n.Status = models.StatusSent
	n.MessageID = id
	a.recorder.ObserveNotification(n.Type, string(n.Channel), n.Status)
	a.logger.Info("High-risk alert published", map[string]interface{}{
		"dealId":    d.ID,
		"riskScore": d.RiskScore,
		"messageId": id,
	})
	return n, nil
}
