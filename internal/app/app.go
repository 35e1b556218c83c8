package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/returns"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/shipment"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	repos, err := openStorage(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer repos.close()

	healthSvc := health.New()
	if repos.pinger != nil {
		healthSvc.AddReadinessCheck(cfg.Storage.Driver, 5*time.Second, health.PingCheck(cfg.Storage.Driver, repos.pinger))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second), health.WithFailureThreshold(5))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	gin.SetMode(gin.ReleaseMode)
	apiHandler, err := newHTTPHandler(ctx, zctx.From(ctx), m, cfg, repos, healthSvc)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           apiHandler,
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

// newHTTPHandler assembles the API router, health endpoints and the
// middleware chain.
func newHTTPHandler(
	ctx context.Context,
	lg *zap.Logger,
	m httpmiddleware.TelemetryProvider,
	cfg *Config,
	repos *repositories,
	healthSvc *health.Health,
) (http.Handler, error) {
	svc, err := newServices(repos, cfg, m.MeterProvider())
	if err != nil {
		return nil, err
	}

	h := handler.NewHandler(handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL}, svc)
	tokens := handler.NewTokens(handler.TokenConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	securityHandler := handler.NewSecurityHandler(tokens, repos.apikeys, []byte(cfg.Auth.APIKeyPepper))

	// Mux: health endpoints + gin API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", handler.NewRouter(h, securityHandler))

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   httpmiddleware.SkipPaths("/livez", "/readyz"),
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("storefront-api", m),
		httpmiddleware.LogRequests(),
	), nil
}

// newServices builds the domain services over repos.
func newServices(repos *repositories, cfg *Config, mp metric.MeterProvider) (handler.Services, error) {
	orderMetrics, err := order.NewMetrics(mp)
	if err != nil {
		return handler.Services{}, errors.Wrap(err, "order metrics")
	}
	returnMetrics, err := returns.NewMetrics(mp)
	if err != nil {
		return handler.Services{}, errors.Wrap(err, "return metrics")
	}

	gateway := payment.NewSimulated(cfg.Payment.DeclineMethods)
	coupons := coupon.NewService(repos.coupons)

	return handler.Services{
		Catalog:   catalog.NewService(repos.catalog, repos.catalog),
		Carts:     cart.NewService(repos.tx, repos.carts, repos.catalog),
		Addresses: address.NewService(repos.tx, repos.addresses),
		Coupons:   coupons,
		Orders: order.NewService(order.Deps{
			Tx:        repos.tx,
			Orders:    repos.orders,
			Carts:     repos.carts,
			Inventory: repos.catalog,
			Addresses: repos.addresses,
			Coupons:   coupons,
			Gateway:   gateway,
			Metrics:   orderMetrics,
		}),
		Returns: returns.NewService(returns.Deps{
			Tx:        repos.tx,
			Returns:   repos.returns,
			Orders:    repos.orders,
			Inventory: repos.catalog,
			Gateway:   gateway,
			Window:    cfg.Orders.ReturnWindow,
			Metrics:   returnMetrics,
		}),
		Shipments: shipment.NewService(repos.tx, repos.shipments, repos.orders),
		Reviews:   review.NewService(repos.tx, repos.reviews, repos.catalog),
	}, nil
}
