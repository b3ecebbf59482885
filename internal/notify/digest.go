// internal/notify/digest.go
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"
)

// Snapshotter returns the profile and deal set read together;
// *deals.Service satisfies it.
type Snapshotter interface {
	Snapshot() (models.UserProfile, []models.Deal)
}

// DigestSender emails the high and medium risk deals of the session.
type DigestSender struct {
	email     EmailSender
	source    Snapshotter
	recipient string
	logger    logger.Logger
	recorder  Recorder
	newID     func() string
	now       func() time.Time
}

type DigestOption func(*DigestSender)

// WithRecipient overrides the profile email as the digest recipient.
func WithRecipient(addr string) DigestOption { return func(d *DigestSender) { d.recipient = addr } }

func WithDigestRecorder(r Recorder) DigestOption { return func(d *DigestSender) { d.recorder = r } }

func WithDigestClock(now func() time.Time) DigestOption { return func(d *DigestSender) { d.now = now } }

func NewDigestSender(email EmailSender, source Snapshotter, log logger.Logger, opts ...DigestOption) *DigestSender {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	d := &DigestSender{
		email:    email,
		source:   source,
		logger:   log.WithFields(map[string]interface{}{"component": "digest"}),
		recorder: nopRecorder{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DigestEntry is one line of the digest.
type DigestEntry struct {
	ID           string
	Name         string
	CompanyName  string
	Stage        string
	Amount       string
	DaysInactive int
	RiskScore    int
	RiskLevel    risk.Level
	TopFactor    string
}

// Digest is the rendered content of one email.
type Digest struct {
	Subject string
	Text    string
	HTML    string
	Entries []DigestEntry
}

// Send builds and emails the digest. Nothing is sent when the profile has the
// digest turned off (status disabled) or no deal is above low risk (status
// skipped).
func (d *DigestSender) Send(ctx context.Context) (models.Notification, error) {
	profile, all := d.source.Snapshot()

	n := models.Notification{
		ID:        d.newID(),
		Type:      models.NotificationRiskDigest,
		Channel:   models.ChannelEmail,
		Recipient: d.recipient,
		SentAt:    d.now().UTC().Format(time.RFC3339),
	}
	if n.Recipient == "" {
		n.Recipient = profile.Email
	}

	if !profile.Notifications.EmailDigest {
		n.Status = models.StatusDisabled
		d.recorder.ObserveNotification(n.Type, string(n.Channel), n.Status)
		return n, nil
	}
	if n.Recipient == "" {
		return n, apperrors.NewBusinessRuleError("Digest recipient missing", "profile has no email and no digest recipient is configured")
	}

	digest, err := BuildDigest(profile, all, d.now())
	if err != nil {
		return n, apperrors.NewInternalError(err)
	}
	n.Payload = map[string]interface{}{"deals": len(digest.Entries)}
	if len(digest.Entries) == 0 {
		n.Status = models.StatusSkipped
		d.recorder.ObserveNotification(n.Type, string(n.Channel), n.Status)
		d.logger.Info("Digest skipped, no risky deals", nil)
		return n, nil
	}

	id, err := d.email.SendEmail(ctx, []string{n.Recipient}, digest.Subject, digest.Text, digest.HTML)
	if err != nil {
		n.Status = models.StatusFailed
		d.recorder.ObserveNotification(n.Type, string(n.Channel), n.Status)
		return n, apperrors.NewNotificationSendFailedError(n.Type, err)
	}

	n.Status = models.StatusSent
	n.MessageID = id
	d.recorder.ObserveNotification(n.Type, string(n.Channel), n.Status)
	d.logger.Info("Digest sent", map[string]interface{}{
		"recipient": n.Recipient,
		"deals":     len(digest.Entries),
		"messageId": id,
	})
	return n, nil
}

// BuildDigest selects high and medium risk deals, highest score first, ties
// broken by amount.
func BuildDigest(profile models.UserProfile, all []models.Deal, now time.Time) (Digest, error) {
	risky := make([]models.Deal, 0, len(all))
	for _, deal := range all {
		if deal.RiskLevel == risk.LevelHigh || deal.RiskLevel == risk.LevelMedium {
			risky = append(risky, deal)
		}
	}
	sort.SliceStable(risky, func(i, j int) bool {
		if risky[i].RiskScore != risky[j].RiskScore {
			return risky[i].RiskScore > risky[j].RiskScore
		}
		return risky[i].Amount > risky[j].Amount
	})

	entries := make([]DigestEntry, len(risky))
	high := 0
	var exposure float64
	for i, deal := range risky {
		if deal.RiskLevel == risk.LevelHigh {
			high++
			exposure += deal.Amount
		}
		e := DigestEntry{
			ID:           deal.ID,
			Name:         deal.Name,
			CompanyName:  deal.CompanyName,
			Stage:        deal.Stage,
			Amount:       formatMoney(deal.Amount, deal.Currency),
			DaysInactive: deal.DaysInactive,
			RiskScore:    deal.RiskScore,
			RiskLevel:    deal.RiskLevel,
		}
		if len(deal.RiskFactors) > 0 {
			e.TopFactor = deal.RiskFactors[0]
		}
		entries[i] = e
	}

	out := Digest{
		Subject: fmt.Sprintf("Drift risk digest: %d high, %d medium (%s)", high, len(risky)-high, now.Format("Jan 2")),
		Entries: entries,
	}

	exposureText := humanize.Comma(int64(risk.RoundHalfUp(exposure)))

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n", firstWord(profile.Name))
	fmt.Fprintf(&text, "%d deals need attention. High-risk exposure: $%s.\n\n", len(entries), exposureText)
	for _, e := range entries {
		fmt.Fprintf(&text, "- [%s %d] %s (%s), %s, %s, inactive %dd", strings.ToUpper(string(e.RiskLevel)), e.RiskScore,
			e.Name, e.CompanyName, e.Stage, e.Amount, e.DaysInactive)
		if e.TopFactor != "" {
			fmt.Fprintf(&text, ": %s", e.TopFactor)
		}
		text.WriteString("\n")
	}
	out.Text = text.String()

	var html bytes.Buffer
	if err := digestTemplate.Execute(&html, map[string]interface{}{
		"Name":     firstWord(profile.Name),
		"Entries":  entries,
		"Exposure": exposureText,
	}); err != nil {
		return Digest{}, fmt.Errorf("render digest: %w", err)
	}
	out.HTML = html.String()
	return out, nil
}

var digestTemplate = template.Must(template.New("digest").Parse(`<p>Hi {{.Name}},</p>
<p>High-risk exposure: ${{.Exposure}}</p>
<table>
<tr><th>Deal</th><th>Company</th><th>Stage</th><th>Amount</th><th>Inactive</th><th>Risk</th><th>Why</th></tr>
{{range .Entries}}<tr><td>{{.Name}}</td><td>{{.CompanyName}}</td><td>{{.Stage}}</td><td>{{.Amount}}</td><td>{{.DaysInactive}}d</td><td>{{.RiskLevel}} ({{.RiskScore}})</td><td>{{.TopFactor}}</td></tr>
{{end}}</table>`))

func formatMoney(amount float64, currency models.Currency) string {
	if currency == "" {
		currency = models.CurrencyUSD
	}
	return fmt.Sprintf("%s %s", risk.FormatAmount(amount), currency)
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return "there"
}
