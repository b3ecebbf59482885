// Package errors provides standardized error handling for the deal service,
// the HTTP API and BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDealValidationFailed    ErrorCode = "DEAL_VALIDATION_FAILED"
	ErrCodeProfileValidationFailed ErrorCode = "PROFILE_VALIDATION_FAILED"
	ErrCodeDealNotFound            ErrorCode = "DEAL_NOT_FOUND"
	ErrCodeDealSourceFailed        ErrorCode = "DEAL_SOURCE_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSessionCacheFailed       ErrorCode = "SESSION_CACHE_FAILED"

	ErrCodeFollowUpGenerationFailed ErrorCode = "FOLLOWUP_GENERATION_FAILED"
	ErrCodeLLMTimeout               ErrorCode = "LLM_TIMEOUT"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeParseError ErrorCode = "PARSE_ERROR"

	ErrCodeBusinessRuleViolation ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternalService       ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout               ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound      ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another *StandardError by code, so sentinel comparisons work
// through wrapping.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// WithMetadata sets a metadata key and returns e.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// AsStandard extracts a *StandardError from err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first StandardError in err's chain, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewDealValidationError reports a malformed deal record.
func NewDealValidationError(details string) *StandardError {
	return newError(ErrCodeDealValidationFailed, "Deal validation failed", details, false, nil)
}

// NewProfileValidationError reports out-of-range weights or threshold.
func NewProfileValidationError(details string) *StandardError {
	return newError(ErrCodeProfileValidationFailed, "Weighting profile validation failed", details, false, nil)
}

func NewDealNotFoundError(dealID string) *StandardError {
	return newError(ErrCodeDealNotFound, "Deal not found", fmt.Sprintf("dealId: %s", dealID), false, nil).
		WithMetadata("dealId", dealID)
}

// NewDealSourceError wraps a failure to read the deal set from its source.
func NewDealSourceError(source string, err error) *StandardError {
	return newError(ErrCodeDealSourceFailed, "Failed to load deals",
		fmt.Sprintf("source: %s, error: %s", source, errText(err)), true, err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", errText(err), true, err)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, errText(err)), true, err)
}

func NewSessionCacheError(op string, err error) *StandardError {
	return newError(ErrCodeSessionCacheFailed, "Session cache operation failed",
		fmt.Sprintf("op: %s, error: %s", op, errText(err)), true, err)
}

func NewFollowUpGenerationError(err error) *StandardError {
	return newError(ErrCodeFollowUpGenerationFailed, "Follow-up draft generation failed", errText(err), true, err)
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM request timeout",
		fmt.Sprintf("LLM call exceeded %s timeout", timeout), true, nil)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, errText(err)), true, err)
}

// NewParseError reports undecodable input such as job variables or request bodies.
func NewParseError(what string, err error) *StandardError {
	return newError(ErrCodeParseError, fmt.Sprintf("Failed to parse %s", what), errText(err), false, err)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRuleViolation, message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), errText(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), errText(err), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", errText(err), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. Codes not
// listed are thrown unchanged.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDealValidationFailed:     "DEAL_VALIDATION_FAILED",
	ErrCodeProfileValidationFailed:  "PROFILE_VALIDATION_FAILED",
	ErrCodeDealNotFound:             "DEAL_NOT_FOUND",
	ErrCodeDealSourceFailed:         "DEAL_SOURCE_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeSessionCacheFailed:       "SESSION_CACHE_FAILED",
	ErrCodeFollowUpGenerationFailed: "FOLLOWUP_GENERATION_FAILED",
	ErrCodeLLMTimeout:               "LLM_TIMEOUT",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeParseError:               "PARSE_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDealSourceFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSessionCacheFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeFollowUpGenerationFailed,
		ErrCodeTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "DEAL_"), strings.HasPrefix(codeStr, "PROFILE_"):
		return "DEAL"
	case strings.Contains(codeStr, "DATABASE"), strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "FOLLOWUP"), strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "PARSE"), strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
