package resilience

import (
	"context"
	"errors"
	"net/http"

	"github.com/seatsniper/engine/model"
)

// ClassifyHTTP maps an HTTP status code (and optional transport error) to
// the shared error taxonomy. Adapters call this on every response before
// handing the result back through the envelope, so retry/breaker decisions
// are driven by the same categories the rest of the system reasons about.
func ClassifyHTTP(status int, body string, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.NewClassifiedError(model.CategoryTimeout, "request timed out", err)
		}
		return model.NewClassifiedError(model.CategoryNetworkError, "transport error", err)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.NewClassifiedError(model.CategoryAuthFailed, "authentication failed", nil)
	case status == http.StatusPaymentRequired:
		return model.NewClassifiedError(model.CategoryAuthFailed, "credits exhausted", nil)
	case status == http.StatusTooManyRequests:
		return model.NewClassifiedError(model.CategoryRateLimited, "rate limited by upstream", nil)
	case status == http.StatusNotFound:
		return model.NewClassifiedError(model.CategoryNotFound, "resource not found", nil)
	case status >= 500:
		return model.NewClassifiedError(model.CategoryServerError, "upstream server error", nil)
	case status >= 400:
		return model.NewClassifiedError(model.CategoryValidationError, "invalid request: "+body, nil)
	default:
		return nil
	}
}
