package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/accounts"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/announcements"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/bootstrap"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/cloudinary"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/config"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/datepolicy"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/handler"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/httpmiddleware"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/metrics"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/notify"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/qr"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/realtime"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/requests"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	hub := realtime.NewHub(m)
	go hub.Run(ctx)

	logger := activity.New(backends.Store, backends.Queue, activity.Options{Hub: hub, Metrics: m, Archive: backends.Archive})
	go bootstrap.DrainErrors(ctx, logger)
	// With redis the worker process persists entries.
	if cfg.QueueBackend == "memory" {
		go func() {
			if err := logger.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("activity consumer stopped", "error", err)
			}
		}()
	}

	loc := cfg.Location()
	policy := datepolicy.New(loc, nil)
	notifier := notify.New(backends.Store, hub)
	h := &handler.Handler{
		Accounts: accounts.New(backends.Store, logger),
		Requests: requests.NewService(requests.Deps{
			Store:              backends.Store,
			Policy:             policy,
			Activity:           logger,
			Notifier:           notifier,
			Hub:                hub,
			Metrics:            m,
			AlumniDisableAfter: cfg.AlumniDisableAfter,
		}),
		Normalizer:    qr.NewNormalizer(requests.NewLookup(backends.Store, cfg.QRLegacyScan), loc),
		Activity:      logger,
		Notify:        notifier,
		Announcements: announcements.New(backends.Store, logger, hub),
		Policy:        policy,
		Hub:           hub,
		Metrics:       m,
		Limiter:       httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		PublicURL:     cfg.PublicURL,
	}
	if cfg.CloudinaryEnabled() {
		h.Uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		slog.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		slog.Info("cloudinary not configured, attachment uploads disabled")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	r.GET("/healthz", func(c *gin.Context) {
		checks := backends.Healthy(c.Request.Context())
		status := http.StatusOK
		for _, ok := range checks {
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		resp := gin.H{"status": http.StatusText(status), "checks": checks}
		if depth, ok := backends.QueueDepth(); ok {
			resp["activity_queue"] = depth
		}
		c.JSON(status, resp)
	})
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.HTTPPort, "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced shutdown", "error", err)
	}
	slog.Info("server exited")
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Session-ID")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
