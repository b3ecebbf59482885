// internal/common/validation/validation_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dealSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"deal"},
	"properties": map[string]interface{}{
		"deal": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"stage", "daysInactive"},
			"properties": map[string]interface{}{
				"stage":        map[string]interface{}{"type": "string"},
				"daysInactive": map[string]interface{}{"type": "integer", "minimum": 0},
				"amount":       map[string]interface{}{"type": "number", "minimum": 0},
			},
		},
	},
}

func TestValidateAgainstSchema(t *testing.T) {
	tests := []struct {
		name      string
		document  map[string]interface{}
		wantValid bool
		field     string
	}{
		{
			name:      "valid",
			document:  map[string]interface{}{"deal": map[string]interface{}{"stage": "Negotiation", "daysInactive": 3, "amount": 100.5}},
			wantValid: true,
		},
		{
			name:     "missing deal",
			document: map[string]interface{}{},
			field:    "(root)",
		},
		{
			name:     "negative days",
			document: map[string]interface{}{"deal": map[string]interface{}{"stage": "x", "daysInactive": -2}},
			field:    "deal.daysInactive",
		},
		{
			name:     "wrong stage type",
			document: map[string]interface{}{"deal": map[string]interface{}{"stage": 7, "daysInactive": 0}},
			field:    "deal.stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateAgainstSchema(dealSchema, tt.document)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			if !tt.wantValid {
				assert.True(t, res.HasErrors(tt.field), "errors: %v", res.GetErrorMessages())
				assert.NotEmpty(t, res.Summary())
			}
		})
	}
}

func TestValidateAgainstSchema_EmptySchemaAcceptsAnything(t *testing.T) {
	res, err := ValidateAgainstSchema(nil, map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	res, err := ValidateJSONAgainstSchema(dealSchema, `{"deal":{"stage":"Procurement","daysInactive":40}}`)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = ValidateJSONAgainstSchema(dealSchema, `{"deal":`)
	assert.Error(t, err)
}

type weights struct {
	Threshold float64 `json:"stalledThresholdDays" validate:"gt=0"`
	Stage     float64 `json:"riskWeightStage" validate:"gte=0,lte=1"`
	Tone      string  `json:"tone" validate:"omitempty,oneof=friendly direct"`
}

func TestValidateStruct(t *testing.T) {
	res := ValidateStruct(weights{Threshold: 14, Stage: 0.3, Tone: "direct"})
	assert.True(t, res.Valid)

	res = ValidateStruct(weights{Threshold: 0, Stage: 1.5, Tone: "loud"})
	require.False(t, res.Valid)
	assert.Len(t, res.Errors, 3)
	assert.True(t, res.HasErrors("stalledThresholdDays"))
	assert.True(t, res.HasErrors("riskWeightStage"))
	assert.Equal(t, "LTE", res.GetErrorsForField("riskWeightStage")[0].Code)
	assert.Equal(t, "must be <= 1", res.GetErrorsForField("riskWeightStage")[0].Message)
}

func TestValidateActivityNaming(t *testing.T) {
	assert.NoError(t, ValidateActivityNaming("risk.deal.compute"))
	assert.NoError(t, ValidateActivityNaming("communication.digest.send-risk"))
	assert.Error(t, ValidateActivityNaming("ComputeRisk"))
}
