// internal/workers/communication/generate-followup/handler_test.go
package generatefollowup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/logger"
	"drift-workers/internal/deals"
	"drift-workers/internal/followup"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockGenerator struct {
	GenerateFunc func(ctx context.Context, deal models.Deal, prefs models.AgentPreferences) (string, error)
}

func (m *MockGenerator) Generate(ctx context.Context, deal models.Deal, prefs models.AgentPreferences) (string, error) {
	return m.GenerateFunc(ctx, deal, prefs)
}

// ==========================
// Test Helper Functions
// ==========================

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T) *deals.Service {
	t.Helper()
	svc := deals.NewService(models.DefaultUserProfile(risk.DefaultProfile()), deals.WithLogger(logger.NewTestLogger(t)))
	require.NoError(t, svc.Load(context.Background(), []models.Deal{{
		ID: "d-1", Name: "Acme Expansion", CompanyName: "Acme", ContactName: "Sarah Connor",
		Stage: "Negotiation", NextStep: strPtr("Send MSA"), Amount: 80000, DaysInactive: 30,
		Notes: "budget concerns, legal review pending",
	}}))
	return svc
}

func newTestHandler(t *testing.T, svc *deals.Service, gen followup.Generator) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, svc, gen, nil, nil, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_TemplateDraftStored(t *testing.T) {
	svc := newTestService(t)
	h := newTestHandler(t, svc, followup.NewTemplateGenerator(followup.FirstPicker()))

	out, err := h.Execute(context.Background(), &Input{DealID: " d-1 "})
	require.NoError(t, err)
	assert.Equal(t, "d-1", out.DealID)
	assert.True(t, strings.HasPrefix(out.Draft, "Subject: Re: Acme Expansion\n\nHi Sarah,"))

	stored, err := svc.Deal("d-1")
	require.NoError(t, err)
	assert.Equal(t, out.Draft, stored.AIFollowUp)
	assert.Equal(t, 92, stored.RiskScore)
}

func TestHandler_Execute_Preferences(t *testing.T) {
	svc := newTestService(t)
	var got models.AgentPreferences
	gen := &MockGenerator{GenerateFunc: func(_ context.Context, _ models.Deal, prefs models.AgentPreferences) (string, error) {
		got = prefs
		return "Subject: Re: Acme Expansion\n\nHi", nil
	}}
	h := newTestHandler(t, svc, gen)

	_, err := h.Execute(context.Background(), &Input{DealID: "d-1"})
	require.NoError(t, err)
	assert.Equal(t, svc.Preferences(), got)

	custom := models.AgentPreferences{SenderName: "Ari", Role: "Founder", Tone: "direct", Style: "urgent", Language: "en"}
	_, err = h.Execute(context.Background(), &Input{DealID: "d-1", Preferences: &custom})
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestHandler_Execute_Errors(t *testing.T) {
	ok := &MockGenerator{GenerateFunc: func(context.Context, models.Deal, models.AgentPreferences) (string, error) {
		return "draft", nil
	}}

	tests := []struct {
		name     string
		input    *Input
		gen      followup.Generator
		wantCode apperrors.ErrorCode
	}{
		{"empty id", &Input{DealID: ""}, ok, apperrors.ErrCodeDealValidationFailed},
		{"unknown deal", &Input{DealID: "d-404"}, ok, apperrors.ErrCodeDealNotFound},
		{
			name:     "invalid preferences",
			input:    &Input{DealID: "d-1", Preferences: &models.AgentPreferences{Tone: "angry"}},
			gen:      ok,
			wantCode: apperrors.ErrCodeBusinessRuleViolation,
		},
		{
			name:  "plain generator error is wrapped",
			input: &Input{DealID: "d-1"},
			gen: &MockGenerator{GenerateFunc: func(context.Context, models.Deal, models.AgentPreferences) (string, error) {
				return "", errors.New("quota exceeded")
			}},
			wantCode: apperrors.ErrCodeFollowUpGenerationFailed,
		},
		{
			name:  "standard error passes through",
			input: &Input{DealID: "d-1"},
			gen: &MockGenerator{GenerateFunc: func(context.Context, models.Deal, models.AgentPreferences) (string, error) {
				return "", apperrors.NewLLMTimeoutError(30 * time.Second)
			}},
			wantCode: apperrors.ErrCodeLLMTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			_, err := newTestHandler(t, svc, tt.gen).Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))

			d, err := svc.Deal("d-1")
			require.NoError(t, err)
			assert.Empty(t, d.AIFollowUp)
		})
	}
}
