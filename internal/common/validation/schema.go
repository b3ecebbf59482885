// internal/common/validation/schema.go
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateAgainstSchema validates document against a JSON schema given as a
// decoded map. A schema that fails to compile is reported as an error, not
// as an invalid document.
func ValidateAgainstSchema(schema map[string]interface{}, document interface{}) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// ValidateJSONAgainstSchema is ValidateAgainstSchema for a raw JSON document.
func ValidateJSONAgainstSchema(schema map[string]interface{}, document string) (*ValidationResult, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(document), &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	return ValidateAgainstSchema(schema, decoded)
}

// ValidateActivityNaming validates activity ID follows naming convention
func ValidateActivityNaming(activityID string) error {
	namingPattern := regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z-]+$`)
	if !namingPattern.MatchString(activityID) {
		return fmt.Errorf("activity ID must follow format: domain.subdomain.action (e.g., risk.deal.compute)")
	}
	return nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a field and its nested fields.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// Summary joins the messages into one line.
func (vr *ValidationResult) Summary() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}
