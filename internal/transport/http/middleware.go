package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"PosterIntake/internal/domain"
)

const (
	callerKey       = "poster-intake.caller"
	editTokenHeader = "X-Edit-Token"
	serviceHeader   = "X-Service-Token"
)

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(started),
		}
		switch {
		case status >= http.StatusInternalServerError:
			if len(c.Errors) > 0 {
				attrs = append(attrs, "error", c.Errors.Last().Error())
			}
			logger.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			logger.Info("request rejected", attrs...)
		default:
			logger.Debug("request served", attrs...)
		}
	}
}

// BodyLimit caps request bodies at maxBytes.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// Identify resolves the optional caller. A bearer token that fails verification
// is rejected outright; an absent one leaves the caller anonymous.
func Identify(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if verifier == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			caller, err := verifier.Verify(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Set(callerKey, domain.SubmissionContext(caller))
		} else if edit := strings.TrimSpace(c.GetHeader(editTokenHeader)); edit != "" {
			c.Set(callerKey, domain.SubmissionContext(domain.Anonymous{EditToken: edit}))
		}
		c.Next()
	}
}

// RequireService admits only calls carrying the internal service token, either
// as X-Service-Token or as the bearer credential.
func RequireService(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(serviceHeader)
		if token == "" {
			token, _ = bearerToken(c.GetHeader("Authorization"))
		}
		if verifier == nil || !verifier.VerifyServiceToken(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// callerFrom returns the resolved caller, Anonymous without a token when none was sent.
func callerFrom(c *gin.Context) domain.SubmissionContext {
	if v, ok := c.Get(callerKey); ok {
		if sc, ok := v.(domain.SubmissionContext); ok {
			return sc
		}
	}
	return domain.Anonymous{}
}

// clientSource identifies the viewer for deduplication. Forwarding headers
// only count when the peer is one of the engine's trusted proxies.
func clientSource(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
