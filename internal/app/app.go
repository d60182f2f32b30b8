package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"PosterIntake/internal/config"
	"PosterIntake/internal/infrastructure/auth"
	"PosterIntake/internal/infrastructure/llm"
	"PosterIntake/internal/infrastructure/mail"
	"PosterIntake/internal/infrastructure/objectstore"
	"PosterIntake/internal/infrastructure/parser"
	"PosterIntake/internal/infrastructure/scheduler"
	"PosterIntake/internal/infrastructure/storage"
	"PosterIntake/internal/logging"
	"PosterIntake/internal/ports"
	"PosterIntake/internal/ratelimit"
	"PosterIntake/internal/source"
	httpapi "PosterIntake/internal/transport/http"
	"PosterIntake/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	server    *http.Server
	scheduler *usecase.Scheduler
	notifier  *usecase.AdminNotifier
	closers   []io.Closer
}

// New connects the backing services and builds the HTTP surface.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	elevatedDB, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, elevatedDB)

	if cfg.Database.MigrateOnStart {
		if err := storage.Migrate(elevatedDB, baseLogger.With("component", "migrate")); err != nil {
			a.Close()
			return nil, err
		}
	}

	scopedDB := elevatedDB
	if cfg.Database.ScopedDSN != "" {
		if scopedDB, err = storage.Open(ctx, cfg.Database.ScopedDSN); err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, scopedDB)
	} else {
		a.logger.Warn("no scoped database role configured, ownership reads use the elevated connection")
	}

	recency, err := a.recencyStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	posters, err := objectstore.NewS3Store(ctx, cfg.Storage, objectstore.WithLogger(baseLogger.With("component", "objectstore")))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("poster store: %w", err)
	}

	a.server = httpapi.NewServer(cfg.Server, a.buildRouter(baseLogger, elevatedDB, scopedDB, posters, recency))
	return a, nil
}

func (a *Application) recencyStore(ctx context.Context) (ports.RecencyStore, error) {
	if a.cfg.Analytics.RedisAddr == "" {
		return ratelimit.NewMemoryStore(), nil
	}
	client, err := ratelimit.Dial(ctx, a.cfg.Analytics.RedisAddr, a.cfg.Analytics.RedisPassword, a.cfg.Analytics.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client)
	return ratelimit.NewRedisStore(client, ""), nil
}

func (a *Application) buildRouter(baseLogger *slog.Logger, elevatedDB, scopedDB *sql.DB, posters ports.PosterStore, recency ports.RecencyStore) http.Handler {
	cfg := a.cfg

	var gateway ports.ModelGateway
	if g := llm.NewGateway(cfg.ModelGateway); g != nil {
		gateway = g
	} else {
		a.logger.Warn("model gateway key missing, submissions will be refused and extraction will use placeholders")
	}

	var mailer ports.Mailer
	if m := mail.NewResendMailer(cfg.Mail); m != nil {
		mailer = m
	} else {
		a.logger.Warn("mail key missing, admin notifications are disabled")
	}

	drafts := storage.NewPostgresRepository(elevatedDB)
	guard := usecase.NewOwnershipGuard(storage.NewScopedRepository(scopedDB), drafts)
	sources := source.NewDefaultRegistry(parser.NewPageFetcher(cfg.PageFetch, nil), cfg.Server.MaxImageBytes)
	screener := usecase.NewScreener(gateway, baseLogger.With("component", "screener"))
	extractor := usecase.NewExtractor(gateway, baseLogger.With("component", "extractor"))

	a.notifier = usecase.NewAdminNotifier(storage.NewAdminDirectory(elevatedDB), mailer, baseLogger.With("component", "notifier"))

	intake := usecase.NewIntake(usecase.IntakeDeps{
		Sources:   sources,
		Screener:  screener,
		Extractor: extractor,
		Drafts:    drafts,
		Posters:   posters,
		Notifier:  a.notifier,
		Logger:    baseLogger.With("component", "intake"),
	})
	reextractor := usecase.NewReextractor(usecase.ReextractDeps{
		Guard:     guard,
		Sources:   sources,
		Extractor: extractor,
		Drafts:    drafts,
		Notifier:  a.notifier,
		Logger:    baseLogger.With("component", "reextract"),
	})
	limiter := usecase.NewAnalyticsLimiter(storage.NewCounterRepository(elevatedDB), recency, cfg.Analytics.Window, baseLogger.With("component", "analytics"))
	publisher := usecase.NewPublisher(guard, drafts, baseLogger.With("component", "publisher"))

	a.scheduler = usecase.NewScheduler(
		scheduler.NewTickerScheduler(cfg.Analytics.PruneInterval),
		limiter,
		baseLogger.With("component", "scheduler"),
	)

	return httpapi.NewRouter(httpapi.Deps{
		Intake:    intake,
		Reextract: reextractor,
		Analytics: limiter,
		Publisher: publisher,
		Notifier:  a.notifier,
		Verifier:  auth.NewVerifier(cfg.Auth),
		DB:        elevatedDB,
		Logger:    baseLogger.With("component", "http"),
		Server:    cfg.Server,
	})
}

// Run serves HTTP until ctx is cancelled, then drains in-flight work.
func (a *Application) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	a.logger.Info("shutting down")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Error("scheduler stop", "error", err)
	}
	a.notifier.Wait()
	return runErr
}

// Close releases database and cache connections.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}
