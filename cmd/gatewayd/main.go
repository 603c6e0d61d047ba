// Command gatewayd runs the edge gateway's HTTP process: the policy
// pipeline, the admin API, and a Prometheus metrics endpoint.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edgegate/internal/admin"
	"edgegate/internal/auth"
	"edgegate/internal/geo"
	"edgegate/internal/ipresolve"
	"edgegate/internal/pipeline"
	"edgegate/internal/platform/config"
	"edgegate/internal/platform/httpserver"
	"edgegate/internal/platform/logger"
	"edgegate/internal/platform/metrics"
	"edgegate/internal/platform/redisx"
	"edgegate/internal/policy"
	"edgegate/internal/ratelimit/fixedwindow"
	"edgegate/internal/ratelimit/mw"
	"edgegate/internal/ratelimit/rlconfig"
	"edgegate/internal/ratelimit/tokenbucket"
	"edgegate/internal/reputation"
	"edgegate/internal/reputation/adapters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	rdb, err := redisx.New(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	resolver, err := ipresolve.FromCIDRStrings(cfg.TrustedProxies)
	if err != nil {
		log.Error("invalid trusted proxy configuration", "error", err)
		os.Exit(1)
	}

	policyStore := policy.NewRedisStore(rdb.Client, cfg.RedisKeyPrefix)
	policyCache := policy.NewCache(policyStore, log, m)
	if err := policyCache.Bootstrap(context.Background()); err != nil {
		log.Warn("initial policy bootstrap failed, starting with an empty snapshot", "error", err)
	}

	geoLookup, err := geo.NewStaticLookup(nil)
	if err != nil {
		log.Error("failed to build geo lookup", "error", err)
		os.Exit(1)
	}
	policyGate := policy.NewGate(policyCache, geoLookup.Lookup)

	subCtx, subCancel := context.WithCancel(context.Background())
	ps := rdb.Subscriber(subCtx, cfg.RedisKeyPrefix+policy.InvalidationChannel)
	invalidator := policy.NewInvalidator(policyCache, log)
	go invalidator.Run(subCtx, ps)

	reputationStore := reputation.NewStore(rdb.Client, cfg.RedisKeyPrefix)
	adapterSet := buildAdapterSet(cfg, log, m)
	reputationGate := reputation.NewGate(reputationStore, adapterSet, cfg.ReputationCacheTTL, cfg.ReputationLockTTL, cfg.ReputationBlockThreshold, log)

	publicRateLimit := &mw.TokenBucketStage{
		Store:             tokenbucket.NewRedisStore(rdb.Client),
		KeyFunc:           mw.ByClientIP,
		DefaultCapacity:   cfg.DefaultCapacity,
		DefaultRefillRate: cfg.RefillRate(),
		TTL:               cfg.BucketTTL,
		KeyPrefix:         cfg.RedisKeyPrefix + "rate-limit:bucket:",
		Log:               log,
		Metrics:           m,
	}

	partnerRateLimit := &mw.TokenBucketStage{
		Store:             tokenbucket.NewRedisStore(rdb.Client),
		KeyFunc:           mw.ByHeader("X-Api-Key"),
		DefaultCapacity:   cfg.DefaultCapacity,
		DefaultRefillRate: cfg.RefillRate(),
		TTL:               cfg.BucketTTL,
		KeyPrefix:         cfg.RedisKeyPrefix + "rate-limit:bucket:",
		Overrides:         rlconfig.NewRedisStore(rdb.Client, cfg.RedisKeyPrefix, log),
		Log:               log,
		Metrics:           m,
	}

	adminRateLimit := &mw.FixedWindowStage{
		Store:        fixedwindow.NewRedisStore(rdb.Client),
		KeyFunc:      mw.ByContextValue(func(r *http.Request) string { return auth.UserID(r.Context()) }),
		Limit:        cfg.AdminRateLimit,
		Window:       cfg.AdminRateWindow,
		KeyPrefix:    cfg.RedisKeyPrefix + "admin-rate-limit:",
		HeaderPrefix: "X-Admin-RateLimit",
		Log:          log,
		Metrics:      m,
	}

	gatewayPipeline := pipeline.New(pipeline.Config{
		Resolver:   resolver,
		Policy:     policyGate,
		Reputation: reputationGate,
		RateLimit:  publicRateLimit,
		Metrics:    m,
	})
	partnerPipeline := pipeline.New(pipeline.Config{
		Resolver:   resolver,
		Policy:     policyGate,
		Reputation: reputationGate,
		RateLimit:  partnerRateLimit,
		Metrics:    m,
	})

	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	router.Route("/partner", func(r chi.Router) {
		r.Use(partnerPipeline)
		r.Handle("/*", upstream)
	})

	router.Group(func(r chi.Router) {
		r.Use(gatewayPipeline)
		r.Handle("/*", upstream)
	})

	var revocationChecker auth.RevocationChecker
	if cfg.JWTPublicKey != "" {
		revocationChecker = auth.NewRedisRevocationChecker(rdb.Client, cfg.RedisKeyPrefix)
	}
	adminHandler := admin.NewHandler(policyStore, log)
	router.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireToken(cfg.AdminToken))
		if validator, verr := buildJWTValidator(cfg); verr == nil && validator != nil {
			r.Use(auth.RequireAuth(validator, revocationChecker, log))
		}
		r.Use(adminRateLimit.Middleware())
		adminHandler.Routes(r)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)

	log.Info("starting gatewayd", "addr", cfg.Addr, "metrics_addr", cfg.MetricsAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("gateway server error", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown of gateway server failed", "error", err)
	}
	_ = metricsSrv.Shutdown(shutdownCtx)

	// Subscriber must stop and close before the shared command connection,
	// or its final unsubscribe/close round trip would fail against a
	// connection that is already gone.
	subCancel()
	if err := ps.Close(); err != nil {
		log.Warn("failed to close invalidation subscriber", "error", err)
	}
}

func buildAdapterSet(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) *reputation.AdapterSet {
	var list []reputation.Adapter
	if cfg.AbuseIPDBAPIKey != "" {
		list = append(list, &adapters.AbuseIPDB{
			BaseURL:      cfg.AbuseIPDBBaseURL,
			APIKey:       cfg.AbuseIPDBAPIKey,
			MaxAgeInDays: cfg.AbuseIPDBMaxAgeDays,
		})
	}
	if cfg.IPQSAPIKey != "" {
		list = append(list, &adapters.IPQualityScore{
			BaseURL: cfg.IPQSBaseURL,
			APIKey:  cfg.IPQSAPIKey,
		})
	}
	return reputation.NewAdapterSet(list, 5*time.Second, log, m)
}

func buildJWTValidator(cfg *config.Config) (auth.JWTValidator, error) {
	if cfg.JWTPublicKey == "" {
		return nil, nil
	}
	return auth.NewRSAValidator([]byte(cfg.JWTPublicKey))
}
