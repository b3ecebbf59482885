// internal/httpapi/respond.go
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "drift-workers/internal/common/errors"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// StatusFor maps an error code onto an HTTP status.
func StatusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeDealValidationFailed,
		apperrors.ErrCodeProfileValidationFailed,
		apperrors.ErrCodeParseError,
		apperrors.ErrCodeBusinessRuleViolation:
		return http.StatusBadRequest
	case apperrors.ErrCodeDealNotFound, apperrors.ErrCodeResourceNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeLLMTimeout, apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeFollowUpGenerationFailed,
		apperrors.ErrCodeExternalService,
		apperrors.ErrCodeNotificationSendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr, ok := apperrors.AsStandard(err)
	if !ok {
		stdErr = apperrors.NewInternalError(err)
	}
	status := StatusFor(stdErr.Code)

	fields := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"code":   string(stdErr.Code),
	}
	if status >= http.StatusInternalServerError {
		fields["details"] = stdErr.Details
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Debug("request rejected", fields)
	}

	detail := errorDetail{Code: string(stdErr.Code), Message: stdErr.Message, Details: stdErr.Details}
	if stdErr.Code == apperrors.ErrCodeInternal {
		detail.Details = ""
	}
	writeJSON(w, status, errorBody{Error: detail})
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	switch {
	case err == nil:
		return nil
	case err == io.EOF && optional:
		return nil
	case err == io.EOF:
		return apperrors.NewParseError("request body", fmt.Errorf("body is empty"))
	default:
		return apperrors.NewParseError("request body", err)
	}
}
