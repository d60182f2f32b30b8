package domain

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Callers wrap these with context and the transport
// layer maps them to status codes with errors.Is.
var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrForbiddenHost       = errors.New("forbidden host")
	ErrUpstreamUnavailable = errors.New("model gateway unavailable")
	ErrUpstreamBusy        = errors.New("model gateway busy")
	ErrParseFailure        = errors.New("model response could not be parsed")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrNotPublishable      = errors.New("event is not publishable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotConfigured       = errors.New("not configured")
)

// Optional components. Each wraps ErrNotConfigured so the transport layer can
// name the missing piece.
var (
	ErrGatewayNotConfigured       = fmt.Errorf("model gateway %w", ErrNotConfigured)
	ErrPosterStorageNotConfigured = fmt.Errorf("poster storage %w", ErrNotConfigured)
	ErrPageFetchNotConfigured     = fmt.Errorf("page fetcher %w", ErrNotConfigured)
	ErrMailNotConfigured          = fmt.Errorf("mailer %w", ErrNotConfigured)
)
