package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"PosterIntake/internal/domain"
)

// statusFor maps the domain error taxonomy to HTTP status and a public message.
func statusFor(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, domain.ErrForbiddenHost):
		return http.StatusBadRequest, "URL points to a forbidden host"
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest, "Invalid URL"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, inputMessage(err)
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Event not found"
	case errors.Is(err, domain.ErrNotPublishable):
		msg := err.Error()
		if i := strings.Index(msg, domain.ErrNotPublishable.Error()); i >= 0 {
			msg = msg[i:]
		}
		return http.StatusConflict, strings.ToUpper(msg[:1]) + msg[1:]
	case errors.Is(err, domain.ErrUpstreamBusy):
		return http.StatusTooManyRequests, "Service is busy, please try again later"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "AI service is temporarily unavailable"
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		return http.StatusServiceUnavailable, "AI screening is not configured"
	case errors.Is(err, domain.ErrPosterStorageNotConfigured):
		return http.StatusServiceUnavailable, "Poster storage is not configured"
	case errors.Is(err, domain.ErrPageFetchNotConfigured):
		return http.StatusServiceUnavailable, "Page fetching is not configured"
	case errors.Is(err, domain.ErrMailNotConfigured):
		return http.StatusServiceUnavailable, "Email service not configured"
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable, "Service is not configured"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeError records err on the context for the request logger and writes
// {"error": message}. A non-empty fallback replaces the generic 500 message.
func writeError(c *gin.Context, err error, fallback string) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

// inputMessage returns the innermost context attached to an invalid-input
// error, e.g. "event not published" from "load: event not published: invalid input".
func inputMessage(err error) string {
	var pe publicError
	if errors.As(err, &pe) {
		return pe.msg
	}
	parts := strings.Split(err.Error(), ": ")
	if len(parts) < 2 {
		return "Invalid request"
	}
	msg := parts[len(parts)-2]
	return strings.ToUpper(msg[:1]) + msg[1:]
}
