// internal/followup/template_test.go
package followup

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drift-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func strPtr(s string) *string { return &s }

func stalledDeal() models.Deal {
	return models.Deal{
		ID:           "d-1",
		Name:         "Acme Expansion",
		CompanyName:  "Acme",
		ContactName:  "Sarah Connor",
		Stage:        "Negotiation",
		NextStep:     strPtr("Send MSA"),
		DaysInactive: 30,
		Notes:        "budget concerns, legal review pending",
	}
}

func lastPicker() Picker { return func(n int) int { return n - 1 } }

// ==========================
// Assembly
// ==========================

func TestTemplateGenerator_FullDraft(t *testing.T) {
	g := NewTemplateGenerator(FirstPicker())

	draft, err := g.Generate(context.Background(), stalledDeal(), models.DefaultAgentPreferences())
	require.NoError(t, err)

	expected := "Subject: Re: Acme Expansion\n\n" +
		"Hi Sarah,\n\n" +
		"I wanted to check in and see how things are moving on your end.\n\n" +
		"I know we were navigating some constraints around the budget last time. " +
		"Has your legal team had a chance to review the agreement yet? I'm happy to hop on a call with them directly if it speeds things up.\n\n" +
		"Let me know.\n\n" +
		"Best,"
	assert.Equal(t, expected, draft)
}

func TestTemplateGenerator_Subjects(t *testing.T) {
	tests := []struct {
		tone     string
		pick     Picker
		expected string
	}{
		{"direct", FirstPicker(), "Subject: Acme / Drift"},
		{"direct", lastPicker(), "Subject: Next steps: Acme Expansion"},
		{"casual", func(int) int { return 2 }, "Subject: Hi Sarah"},
		{"friendly", lastPicker(), "Subject: Touching base"},
		{"", func(int) int { return 3 }, "Subject: Question regarding Acme Expansion"},
	}

	for _, tt := range tests {
		t.Run(tt.tone, func(t *testing.T) {
			prefs := models.DefaultAgentPreferences()
			prefs.Tone = tt.tone
			draft, err := NewTemplateGenerator(tt.pick).Generate(context.Background(), stalledDeal(), prefs)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(draft, tt.expected+"\n\n"), draft)
		})
	}
}

func TestTemplateGenerator_Hooks(t *testing.T) {
	tests := []struct {
		days     int
		expected string
	}{
		{31, "It's been a few weeks since we last spoke, so I wanted to float this to the top of your inbox."},
		{30, "I wanted to check in and see how things are moving on your end."},
		{15, "I wanted to check in and see how things are moving on your end."},
		{14, "Hope you're having a productive week."},
	}

	for _, tt := range tests {
		deal := stalledDeal()
		deal.DaysInactive = tt.days
		draft, err := NewTemplateGenerator(FirstPicker()).Generate(context.Background(), deal, models.DefaultAgentPreferences())
		require.NoError(t, err)
		assert.Contains(t, draft, "Hi Sarah,\n\n"+tt.expected+"\n\n", "days=%d", tt.days)
	}

	deal := stalledDeal()
	deal.DaysInactive = 2
	draft, err := NewTemplateGenerator(lastPicker()).Generate(context.Background(), deal, models.DefaultAgentPreferences())
	require.NoError(t, err)
	assert.Contains(t, draft, "Hope all is well at Acme.")
}

func TestTemplateGenerator_GeneralContextOmitsTransition(t *testing.T) {
	deal := stalledDeal()
	deal.Notes = ""
	deal.NextStep = nil

	draft, err := NewTemplateGenerator(FirstPicker()).Generate(context.Background(), deal, models.DefaultAgentPreferences())
	require.NoError(t, err)
	assert.Contains(t, draft, "\n\nDo you have clarity on the next steps, or is this on hold for now?\n\n")
	assert.NotContains(t, draft, "bump this up")
}

func TestTemplateGenerator_ClosingAndCalendar(t *testing.T) {
	const link = "https://cal.example.com/john"
	tests := []struct {
		style     string
		expected  string
		wantsLink bool
	}{
		{"short", "Let me know.", true},
		{"urgent", "Please let me know if this is no longer a priority so I can update my forecast.", false},
		{"soft", "No rush, just wanted to keep this on your radar.", true},
		{"storytelling", "I saw a similar team recently unblock this by moving fast, and I'd love to help you do the same. Let me know what you think.", true},
		{"detailed", "Looking forward to hearing from you.", true},
	}

	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			prefs := models.DefaultAgentPreferences()
			prefs.Style = tt.style
			prefs.CalendarLink = link

			draft, err := NewTemplateGenerator(FirstPicker()).Generate(context.Background(), stalledDeal(), prefs)
			require.NoError(t, err)
			assert.Contains(t, draft, tt.expected)

			calendar := "\n\nLink to my calendar if it's easier to grab time: " + link
			if tt.wantsLink {
				assert.Contains(t, draft, tt.expected+calendar+"\n\nBest,")
			} else {
				assert.NotContains(t, draft, calendar)
			}
		})
	}
}

func TestTemplateGenerator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTemplateGenerator(nil).Generate(ctx, stalledDeal(), models.DefaultAgentPreferences())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTemplateGenerator_OutOfRangePickerFallsBackToFirst(t *testing.T) {
	draft, err := NewTemplateGenerator(func(int) int { return 99 }).Generate(context.Background(), stalledDeal(), models.DefaultAgentPreferences())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(draft, "Subject: Re: Acme Expansion"))
}

// ==========================
// Detection
// ==========================

func TestDetectNoteContext(t *testing.T) {
	tests := []struct {
		notes    string
		expected NoteContext
	}{
		{"Pricing felt EXPENSIVE", ContextCommercial},
		{"needs SSO integration", ContextTechnical},
		{"out of office, travel next week", ContextTiming},
		{"waiting on CFO approval", ContextAuthority},
		{"looking at a competitor", ContextCompetition},
		{"budget and api questions", ContextCommercial},
		{"", ContextGeneral},
		{"great call", ContextGeneral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectNoteContext(tt.notes), tt.notes)
	}
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		step     string
		expected Intent
	}{
		{"Send MSA", IntentLegal},
		{"Schedule demo", IntentMeeting},
		{"Send invoice", IntentFinance},
		{"Await decision", IntentFeedback},
		{"contract review call", IntentLegal},
		{"", IntentGeneral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectIntent(tt.step), tt.step)
	}
}

func TestSignOff(t *testing.T) {
	assert.Equal(t, "Best regards,\n\nFounder @ Drift", SignOff("Founder"))
	assert.Equal(t, "Best regards,\n\nFounder @ Drift", SignOff("co-founder"))
	assert.Equal(t, "Cheers,", SignOff("BDR"))
	assert.Equal(t, "Thanks,", SignOff("VP Sales"))
	assert.Equal(t, "Best,", SignOff("AE"))
	assert.Equal(t, "Best,", SignOff(""))
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Sarah", FirstName("Sarah Connor"))
	assert.Equal(t, "Cher", FirstName("Cher"))
	assert.Equal(t, "", FirstName(""))
}
