package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates the process logger. Format "json" selects structured output for
// log shippers; anything else writes human-readable text to stdout.
func New(level string, format ...string) *slog.Logger {
	f := ""
	if len(format) > 0 {
		f = format[0]
	}
	return NewWriter(os.Stdout, level, f)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       levelFromString(level),
		ReplaceAttr: redact,
	}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "poster-intake")
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// sensitiveKeys never reach the log output.
var sensitiveKeys = map[string]struct{}{
	"edit_token":    {},
	"authorization": {},
	"api_key":       {},
	"image_base64":  {},
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}
