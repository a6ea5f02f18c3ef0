package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"whiterabbit/internal/apiclient"
)

// Error names written in gateway error bodies. Upstream names are passed
// through unchanged when the upstream error is forwarded.
const (
	errValidation = "ValidationError"
	errTimeout    = "RequestTimeoutError"
	errUpstream   = "UpstreamUnavailableError"
	errInternal   = "InternalServerError"
	errRateLimit  = "RateLimitError"
)

const genericMessage = "An unexpected error occurred"

// validationError rejects a request before any upstream call
type validationError struct {
	Field  string
	Reason string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &validationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// classify maps err onto the status and body the browser sees
func classify(err error) (int, apiclient.ErrorPayload) {
	var ve *validationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, apiclient.ErrorPayload{
			Error:   errValidation,
			Message: ve.Error(),
			Details: map[string]any{"field": ve.Field},
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusGatewayTimeout, apiclient.ErrorPayload{
			Error:   errTimeout,
			Message: "Request timeout",
		}
	}

	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		return http.StatusInternalServerError, apiclient.ErrorPayload{Error: errInternal, Message: genericMessage}
	}

	forward := apiclient.ErrorPayload{Error: apiErr.Name, Message: apiErr.Message, Details: apiErr.Details}
	switch {
	case apiErr.StatusCode == 0:
		return http.StatusBadGateway, apiclient.ErrorPayload{
			Error:   errUpstream,
			Message: "Backend service is unreachable",
		}
	case apiErr.Kind == apiclient.KindValidation || apiErr.Kind == apiclient.KindInvalidParameter:
		return http.StatusBadRequest, forward
	case apiErr.Kind == apiclient.KindNotFound:
		return http.StatusNotFound, forward
	case apiErr.Kind == apiclient.KindDatabaseConnection:
		return http.StatusServiceUnavailable, forward
	case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode, forward
	case apiErr.StatusCode == http.StatusBadGateway || apiErr.StatusCode == http.StatusServiceUnavailable:
		// model warm-up, or a proxy in front of the backend whose body is not ours
		if apiErr.Name == http.StatusText(apiErr.StatusCode) || forward.Message == "" {
			forward = apiclient.ErrorPayload{Error: errUpstream, Message: "Backend service is unavailable"}
		}
		return apiErr.StatusCode, forward
	default:
		return http.StatusInternalServerError, apiclient.ErrorPayload{Error: errInternal, Message: genericMessage}
	}
}

// writeError writes err in the backend's error shape
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	body.StatusCode = status
	body.Path = r.URL.Path

	if status >= 500 {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
