// internal/followup/gemini.go
package followup

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/models"
)

// ContentGenerator is the slice of the genai Models service the generator
// calls. *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiOptions struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	// Fallback, when set, drafts the email whenever the model call fails.
	Fallback Generator
	Logger   logger.Logger
}

// GeminiGenerator drafts follow-ups with a Gemini model.
type GeminiGenerator struct {
	models   ContentGenerator
	model    string
	temp     float32
	timeout  time.Duration
	fallback Generator
	logger   logger.Logger
}

// NewGeminiClient opens a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func NewGeminiGenerator(models ContentGenerator, opts GeminiOptions) *GeminiGenerator {
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &GeminiGenerator{
		models:   models,
		model:    opts.Model,
		temp:     float32(opts.Temperature),
		timeout:  opts.Timeout,
		fallback: opts.Fallback,
		logger:   opts.Logger,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, deal models.Deal, prefs models.AgentPreferences) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temp),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(callCtx, g.model, []*genai.Content{
		genai.NewContentFromText(BuildPrompt(deal, prefs), genai.RoleUser),
	}, config)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return g.fallbackOr(ctx, deal, prefs, apperrors.NewLLMTimeoutError(g.timeout))
		}
		return g.fallbackOr(ctx, deal, prefs, apperrors.NewFollowUpGenerationError(err))
	}

	draft := cleanDraft(resp.Text())
	if draft == "" {
		return g.fallbackOr(ctx, deal, prefs, apperrors.NewFollowUpGenerationError(errors.New("model returned no text")))
	}
	if !strings.HasPrefix(draft, "Subject:") {
		draft = "Subject: Re: " + deal.Name + "\n\n" + draft
	}

	g.logger.Debug("Follow-up drafted", map[string]interface{}{
		"dealId":    deal.ID,
		"model":     g.model,
		"elapsedMs": time.Since(start).Milliseconds(),
	})
	return draft, nil
}

func (g *GeminiGenerator) fallbackOr(ctx context.Context, deal models.Deal, prefs models.AgentPreferences, cause *apperrors.StandardError) (string, error) {
	if g.fallback == nil {
		return "", cause
	}
	g.logger.Warn("Gemini draft failed, using template", map[string]interface{}{
		"dealId": deal.ID,
		"code":   string(cause.Code),
		"error":  cause.Error(),
	})
	return g.fallback.Generate(ctx, deal, prefs)
}

const systemInstruction = `You write short, human sales follow-up emails that re-open stalled deals.
Never invent facts about the deal. Reply with the email only, starting with a "Subject:" line, no markdown.`

// BuildPrompt describes the deal and the sender's preferences to the model.
func BuildPrompt(deal models.Deal, prefs models.AgentPreferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a follow-up email to %s (%s) about the deal %q.\n", FirstName(deal.ContactName), deal.CompanyName, deal.Name)
	fmt.Fprintf(&b, "Stage: %s. Days since last activity: %d.\n", deal.Stage, deal.DaysInactive)
	if next := deal.NextStepText(); next != "" {
		fmt.Fprintf(&b, "Agreed next step: %s (intent: %s).\n", next, DetectIntent(next))
	}
	if deal.Notes != "" {
		fmt.Fprintf(&b, "Call notes: %s (topic: %s).\n", deal.Notes, DetectNoteContext(deal.Notes))
	}
	if len(deal.RiskFactors) > 0 {
		fmt.Fprintf(&b, "Risk signals: %s.\n", strings.Join(deal.RiskFactors, "; "))
	}
	fmt.Fprintf(&b, "Sender: %s, role %s.\n", prefs.SenderName, prefs.Role)
	fmt.Fprintf(&b, "Tone: %s. Style: %s.\n", prefs.Tone, prefs.Style)
	if prefs.ProductDescription != "" {
		fmt.Fprintf(&b, "Product: %s\n", prefs.ProductDescription)
	}
	if prefs.CalendarLink != "" && !strings.Contains(prefs.Style, "urgent") {
		fmt.Fprintf(&b, "Offer this calendar link: %s\n", prefs.CalendarLink)
	}
	if prefs.Language != "" && prefs.Language != "en" {
		fmt.Fprintf(&b, "Write in language: %s.\n", prefs.Language)
	}
	fmt.Fprintf(&b, "End with the sign-off: %q.", SignOff(prefs.Role))
	return b.String()
}

var fencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\\n?(.*?)\\n?\\s*```\\s*$")

func cleanDraft(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	return strings.TrimSpace(s)
}
