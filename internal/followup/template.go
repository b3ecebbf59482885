// internal/followup/template.go

// Package followup drafts re-engagement emails for stalled deals.
package followup

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"drift-workers/internal/models"
)

// Generator drafts a follow-up email for deal.
type Generator interface {
	Generate(ctx context.Context, deal models.Deal, prefs models.AgentPreferences) (string, error)
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// RandomPicker picks uniformly.
func RandomPicker() Picker { return rand.IntN }

// FirstPicker always picks the first option.
func FirstPicker() Picker { return func(int) int { return 0 } }

// NoteContext is the topic detected in a deal's notes.
type NoteContext string

const (
	ContextCommercial  NoteContext = "commercial"
	ContextTechnical   NoteContext = "technical"
	ContextTiming      NoteContext = "timing"
	ContextAuthority   NoteContext = "authority"
	ContextCompetition NoteContext = "competition"
	ContextGeneral     NoteContext = "general"
)

// Intent is what the deal's next step asks for.
type Intent string

const (
	IntentLegal    Intent = "legal"
	IntentMeeting  Intent = "meeting"
	IntentFinance  Intent = "finance"
	IntentFeedback Intent = "feedback"
	IntentGeneral  Intent = "general"
)

// First match wins, in slice order.
var noteContexts = []struct {
	ctx NoteContext
	re  *regexp.Regexp
}{
	{ContextCommercial, regexp.MustCompile(`price|budget|cost|expensive|discount|money|commercial`)},
	{ContextTechnical, regexp.MustCompile(`feature|tech|api|integration|security|requirements|demo`)},
	{ContextTiming, regexp.MustCompile(`busy|travel|vacation|ooo|time|later|bandwidth`)},
	{ContextAuthority, regexp.MustCompile(`boss|manager|board|cfo|ceo|approval|stakeholder`)},
	{ContextCompetition, regexp.MustCompile(`competitor|vendor|alternative|other option`)},
}

var intents = []struct {
	intent Intent
	re     *regexp.Regexp
}{
	{IntentLegal, regexp.MustCompile(`legal|contract|msa|agreement`)},
	{IntentMeeting, regexp.MustCompile(`demo|schedule|call|meeting|intro`)},
	{IntentFinance, regexp.MustCompile(`budget|finance|invoice`)},
	{IntentFeedback, regexp.MustCompile(`feedback|decision|review`)},
}

var transitions = map[NoteContext][]string{
	ContextCommercial: {
		"I know we were navigating some constraints around the budget last time.",
		"I've been thinking about the pricing discussion we had.",
		"I wanted to see if there's any update on the budget approval we discussed.",
	},
	ContextTechnical: {
		"I was reviewing the technical requirements you mentioned.",
		"Regarding the features we discussed previously,",
		"I know ensuring the tech fit is critical here.",
	},
	ContextTiming: {
		"I know it's a hectic time for you right now.",
		"I appreciate you're juggling a lot of priorities.",
		"I didn't want to overload your inbox while you were busy.",
	},
	ContextAuthority: {
		"I know you were waiting on internal approvals.",
		"How did the conversation go with the wider team?",
		"I wanted to see if you've had a chance to socialize this internally.",
	},
	ContextCompetition: {
		"I know you're evaluating a few options right now.",
		"I wanted to see how we're stacking up against the alternatives you're looking at.",
		"If there are specific gaps you see compared to other vendors, I'd love to address them.",
	},
	ContextGeneral: {
		"I wanted to bump this up in case you missed my last note.",
		"Just wanted to keep the momentum going.",
		"Do you have a moment to update me on where things stand?",
	},
}

var asks = map[Intent]string{
	IntentLegal:    "Has your legal team had a chance to review the agreement yet? I'm happy to hop on a call with them directly if it speeds things up.",
	IntentMeeting:  "Are you still open to that call we discussed? I think a quick sync would clarify a lot.",
	IntentFinance:  "How are the budget discussions progressing? Let me know if you need any more ROI data to help make the case.",
	IntentFeedback: "Have you had a chance to collect thoughts from the team? I'd love to hear their feedback, even if it's a 'no' for now.",
	IntentGeneral:  "Do you have clarity on the next steps, or is this on hold for now?",
}

var closings = map[string]string{
	"short":        "Let me know.",
	"urgent":       "Please let me know if this is no longer a priority so I can update my forecast.",
	"soft":         "No rush, just wanted to keep this on your radar.",
	"storytelling": "I saw a similar team recently unblock this by moving fast, and I'd love to help you do the same. Let me know what you think.",
}

const defaultClosing = "Looking forward to hearing from you."

// DetectNoteContext classifies notes by the first matching topic.
func DetectNoteContext(notes string) NoteContext {
	notes = strings.ToLower(notes)
	for _, c := range noteContexts {
		if c.re.MatchString(notes) {
			return c.ctx
		}
	}
	return ContextGeneral
}

// DetectIntent classifies a next step by the first matching intent.
func DetectIntent(nextStep string) Intent {
	nextStep = strings.ToLower(nextStep)
	for _, i := range intents {
		if i.re.MatchString(nextStep) {
			return i.intent
		}
	}
	return IntentGeneral
}

// TemplateGenerator assembles drafts from fixed phrase tables.
type TemplateGenerator struct {
	pick Picker
}

// NewTemplateGenerator uses pick to choose among phrase variants; nil picks
// at random.
func NewTemplateGenerator(pick Picker) *TemplateGenerator {
	if pick == nil {
		pick = RandomPicker()
	}
	return &TemplateGenerator{pick: pick}
}

func (g *TemplateGenerator) Generate(ctx context.Context, deal models.Deal, prefs models.AgentPreferences) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	firstName := FirstName(deal.ContactName)
	subject := g.subject(deal, prefs.Tone, firstName)
	hook := g.hook(deal)

	noteCtx := DetectNoteContext(deal.Notes)
	ask := asks[DetectIntent(deal.NextStepText())]
	body := ask
	if noteCtx != ContextGeneral {
		body = g.choose(transitions[noteCtx]) + " " + ask
	}

	closing, ok := closings[prefs.Style]
	if !ok {
		closing = defaultClosing
	}
	if prefs.CalendarLink != "" && !strings.Contains(prefs.Style, "urgent") {
		closing += "\n\nLink to my calendar if it's easier to grab time: " + prefs.CalendarLink
	}

	return fmt.Sprintf("Subject: %s\n\nHi %s,\n\n%s\n\n%s\n\n%s\n\n%s",
		subject, firstName, hook, body, closing, SignOff(prefs.Role)), nil
}

func (g *TemplateGenerator) subject(deal models.Deal, tone, firstName string) string {
	switch tone {
	case "direct":
		return g.choose([]string{
			deal.CompanyName + " / Drift",
			"The " + deal.Name + " project",
			"Timeline for " + deal.Name,
			"Next steps: " + deal.Name,
		})
	case "casual":
		return g.choose([]string{
			"Quick check-in",
			"Thoughts?",
			"Hi " + firstName,
			"Catching up",
			"Quick Q",
		})
	default:
		return g.choose([]string{
			"Re: " + deal.Name,
			"Checking in",
			"Next steps?",
			"Question regarding " + deal.Name,
			"Touching base",
		})
	}
}

func (g *TemplateGenerator) hook(deal models.Deal) string {
	switch {
	case deal.DaysInactive > 30:
		return g.choose([]string{
			"It's been a few weeks since we last spoke, so I wanted to float this to the top of your inbox.",
			"I know things get buried easily, but I wanted to circle back on our conversation from last month.",
			"I'm assuming this project might have been pushed down the priority list, but wanted to double-check.",
		})
	case deal.DaysInactive > 14:
		return g.choose([]string{
			"I wanted to check in and see how things are moving on your end.",
			"Hope you're having a good week. Touching base as it's been a couple of weeks since we connected.",
			"Circling back on this as I haven't heard from you in a bit.",
		})
	default:
		return g.choose([]string{
			"Hope you're having a productive week.",
			"Just following up on my previous note.",
			"Quick check-in to see where we stand.",
			"Hope all is well at " + deal.CompanyName + ".",
		})
	}
}

func (g *TemplateGenerator) choose(options []string) string {
	i := g.pick(len(options))
	if i < 0 || i >= len(options) {
		i = 0
	}
	return options[i]
}

// FirstName returns the contact name up to the first space.
func FirstName(contact string) string {
	first, _, _ := strings.Cut(contact, " ")
	return first
}

// SignOff returns the sign-off line for a sender role.
func SignOff(role string) string {
	switch {
	case strings.Contains(strings.ToLower(role), "founder"):
		return "Best regards,\n\nFounder @ Drift"
	case role == "BDR":
		return "Cheers,"
	case role == "VP Sales":
		return "Thanks,"
	default:
		return "Best,"
	}
}
