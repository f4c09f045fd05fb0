package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tenantgate/tenantgate/pkg/admin"
	"github.com/tenantgate/tenantgate/pkg/auth"
	"github.com/tenantgate/tenantgate/pkg/config"
	"github.com/tenantgate/tenantgate/pkg/httputil"
	"github.com/tenantgate/tenantgate/pkg/observability"
	"github.com/tenantgate/tenantgate/pkg/sso"
	"github.com/tenantgate/tenantgate/pkg/store"
	"github.com/tenantgate/tenantgate/pkg/tenant"
)

const maxRequestBodyBytes = 1 << 20

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	authStore, db, err := openStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to open store")
		os.Exit(1)
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	health := observability.NewHealthChecker(db)

	sessions := auth.NewSessionIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	service := auth.NewService(authStore, sessions).WithMetrics(metrics)
	authn := auth.NewMiddleware(sessions)

	router := mux.NewRouter()
	router.Use(loggerMiddleware(logger))
	router.Use(httputil.RecoveryMiddleware)
	router.Use(observability.HTTPMetricsMiddleware(metrics))
	router.Use(tenant.Middleware(tenant.NewResolver(cfg.Tenancy.BaseDomain)))
	router.Use(httputil.LoggingMiddleware)
	router.Use(httputil.MaxBytesMiddleware(maxRequestBodyBytes))

	router.HandleFunc("/health/live", health.Liveness).Methods("GET")
	router.HandleFunc("/health/ready", health.Readiness).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	auth.NewHandlers(service).RegisterRoutes(router)
	sso.NewHandlers(service,
		sso.NewJWTProvider(authStore),
		sso.NewOAuth2Provider(authStore, cfg.Auth.IdPTimeout),
		sso.NewSAMLProvider(authStore, cfg.Server.ExternalBaseURL),
	).WithMetrics(metrics).RegisterRoutes(router)
	admin.NewHandlers(authStore, authn).RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	if db != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return db.Close() })
	}

	go func() {
		logger.WithField("addr", server.Addr).
			WithField("base_domain", cfg.Tenancy.BaseDomain).
			Info("tenantgate listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
}

// openStore selects the persistence backend: Postgres when configured, the
// in-memory store otherwise. The returned db handle is nil for the
// in-memory store.
func openStore(cfg *config.Config, logger *observability.Logger) (auth.Store, *sql.DB, error) {
	if cfg.Store.PostgresURL == "" {
		logger.Warn("no database configured, using in-memory store")
		return store.NewMemory(), nil, nil
	}

	db, err := sql.Open("postgres", cfg.Store.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewSQL(db), db, nil
}

// loggerMiddleware seeds each request context with the process logger so
// downstream FromContext calls pick up the configured level and sink.
func loggerMiddleware(logger *observability.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), logger)))
		})
	}
}
