package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/barista-pos/internal/domain/auth"
	"github.com/xenking/barista-pos/internal/domain/menu"
	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/domain/sales"
	"github.com/xenking/barista-pos/internal/handler"
	"github.com/xenking/barista-pos/internal/storage/postgres"
	"github.com/xenking/barista-pos/internal/storage/rabbitmq"
	"github.com/xenking/barista-pos/pkg/health"
	"github.com/xenking/barista-pos/pkg/httpmiddleware"
)

const (
	serviceName = "barista-pos"
	msgTooMany  = "Too many requests from this IP, please try again later."
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("env", cfg.Env),
		zap.String("timezone", cfg.Location().String()),
	)

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	orderOpts := []order.Option{
		order.WithMeterProvider(m.MeterProvider()),
		order.WithTracerProvider(m.TracerProvider()),
	}
	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.Dial(cfg.AMQPURL)
		if err != nil {
			return errors.Wrap(err, "connect broker")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Close broker connection", zap.Error(err))
			}
		}()
		healthSvc.AddReadinessCheck("broker", 5*time.Second, health.PingCheck(publisher))
		orderOpts = append(orderOpts, order.WithPublisher(publisher))
		lg.Info("Publishing order events", zap.String("exchange", rabbitmq.Exchange))
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	userRepo := postgres.NewUserRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Domain services.
	tokens, err := auth.NewTokens([]byte(cfg.Auth.Secret), cfg.Auth.TTL)
	if err != nil {
		return errors.Wrap(err, "session tokens")
	}
	authService := auth.NewService(userRepo, tokens, cfg.Auth.BcryptCost)
	catalog := menu.Default()
	orderService, err := order.NewService(catalog, orderRepo, orderOpts...)
	if err != nil {
		return errors.Wrap(err, "order service")
	}
	salesService := sales.NewService(orderRepo, orderService,
		sales.WithTracerProvider(m.TracerProvider()),
		sales.WithLocation(cfg.Location()),
		sales.WithCurrency(cfg.Currency),
	)

	// Router: health endpoints + API routes on one server.
	router := chi.NewRouter()
	router.Get("/health", health.Status(health.PingCheck(pool), 5*time.Second, nil))
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	handler.New(handler.Config{
		Development:     !cfg.Production(),
		CrossSiteCookie: cfg.CrossSiteCookie(),
	}, authService, catalog, orderService, salesService).Register(router)

	route := httpmiddleware.ChiRoutePattern
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(handler.Failure(http.StatusInternalServerError, "Something went very wrong!")),
			httpmiddleware.ChiRoutes(),
			httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(route),
			httpmiddleware.Labeler(route),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     []string{cfg.FrontendURL},
				AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: true,
				MaxAge:           24 * time.Hour,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				OnLimit: handler.Failure(http.StatusTooManyRequests, msgTooMany),
			}),
			httpmiddleware.Compress(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
