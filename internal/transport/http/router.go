package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PosterIntake/internal/config"
	"PosterIntake/internal/domain"
	"PosterIntake/internal/usecase"
)

// Submitter runs the anonymous intake flow.
type Submitter interface {
	Submit(ctx context.Context, req usecase.SubmitRequest) (usecase.SubmitResult, error)
}

// Reextracter re-runs extraction for an owner.
type Reextracter interface {
	Reextract(ctx context.Context, sc domain.SubmissionContext, req usecase.ReextractRequest) (domain.ExtractionResult, error)
}

// Tracker records deduplicated analytics.
type Tracker interface {
	Track(ctx context.Context, req usecase.TrackRequest) (usecase.TrackResult, error)
}

// Publisher publishes drafts and records moderation decisions.
type Publisher interface {
	Publish(ctx context.Context, sc domain.SubmissionContext, id uuid.UUID) (domain.EventDraft, error)
	Moderate(ctx context.Context, sc domain.SubmissionContext, id uuid.UUID, status domain.ModerationStatus, notes string) error
}

// AdminAlerter emails reviewers on demand.
type AdminAlerter interface {
	Configured() bool
	Notify(ctx context.Context, alert usecase.AdminAlert) (int, error)
}

// TokenVerifier validates bearer and service credentials.
type TokenVerifier interface {
	Verify(token string) (domain.Authenticated, error)
	VerifyServiceToken(token string) bool
}

// Pinger reports backing store readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps wires use cases into the HTTP surface. Nil use cases answer 503.
type Deps struct {
	Intake    Submitter
	Reextract Reextracter
	Analytics Tracker
	Publisher Publisher
	Notifier  AdminAlerter
	Verifier  TokenVerifier
	DB        Pinger
	Logger    *slog.Logger
	Server    config.ServerConfig
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{deps: deps, logger: logger}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.Server.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, forwarding headers ignored", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), RequestLogger(logger))

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	maxBody := deps.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 15 << 20
	}

	v1 := r.Group("/v1", BodyLimit(maxBody), Identify(deps.Verifier))
	v1.POST("/posters", h.submit)
	v1.POST("/extract", h.reextract)
	v1.POST("/analytics", h.track)
	v1.POST("/drafts/:id/publish", h.publish)
	v1.POST("/admin/drafts/:id/moderation", h.moderate)

	internal := r.Group("/internal", BodyLimit(1<<20), RequireService(deps.Verifier))
	internal.POST("/notify-admin", h.notifyAdmin)

	return r
}

// NewServer wraps handler with the configured timeouts.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
