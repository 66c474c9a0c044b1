package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/config"
	"github.com/Kosench/go-url-tracker/internal/database"
	"github.com/Kosench/go-url-tracker/internal/handler"
	"github.com/Kosench/go-url-tracker/internal/middleware"
	"github.com/Kosench/go-url-tracker/internal/worker"
)

func newServeCmd() *cobra.Command {
	var (
		runMigrations bool
		withWorker    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}

			if runMigrations && cfg.App.Storage != config.StorageMemory {
				if err := database.Migrate(cfg.Database.GetDSN(), 0, log); err != nil {
					return err
				}
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if withWorker {
				scheduler, err := newScheduler(a)
				if err != nil {
					return err
				}
				scheduler.Start(ctx)
				defer func() { <-scheduler.Stop().Done() }()
			}

			return serve(ctx, a, newRouter(a))
		},
	}

	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply pending migrations before starting")
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "run the reconciliation scheduler in this process")
	return cmd
}

func newRouter(a *app) *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(a.log),
		middleware.RequestLogger(a.log),
		middleware.Metrics(a.metrics),
	)
	router.Use(cors.New(corsConfig(a.cfg.GetAllowedOrigins())))
	router.Use(preflight())

	if n, window := a.cfg.App.RateLimitRequests, a.cfg.App.RateLimitWindow; n > 0 {
		if a.redis != nil {
			router.Use(middleware.RedisRateLimit(a.redis, n, window, a.log))
		} else {
			router.Use(middleware.InMemoryRateLimit(n, window))
		}
	}

	handler.NewRecordHandler(a.records, a.reconciler, a.log).RegisterRoutes(router)

	health := handler.NewHealthHandler(2*time.Second).
		Add("database", a.databaseCheck()).
		Add("cache", a.cacheCheck())
	router.GET("/health", health.Health)
	router.GET("/info", infoHandler(a))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}

	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// preflight answers OPTIONS on any path, including ones cors passed through
// because they carried no Origin header.
func preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func infoHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := gin.H{
			"service":       "URL Tracker",
			"storage":       a.cfg.App.Storage,
			"duration_mode": strings.ToLower(a.cfg.App.DurationMode),
			"cache_enabled": a.redis != nil,
			"notifier":      a.notifierState(),
		}

		if a.db != nil {
			if version, err := database.GetVersion(c.Request.Context(), a.db); err == nil {
				info["database_version"] = version
			}
		}

		c.JSON(http.StatusOK, info)
	}
}

func serve(ctx context.Context, a *app, router http.Handler) error {
	srv := &http.Server{
		Addr:           a.cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.log.Info("server gracefully stopped")
	return nil
}

func newScheduler(a *app) (*worker.Scheduler, error) {
	return worker.NewScheduler(a.reconciler, worker.Config{
		Schedule:     a.cfg.Worker.Schedule,
		Timezone:     a.cfg.Worker.Timezone,
		SweepTimeout: a.cfg.Worker.SweepTimeout,
		RunOnStart:   a.cfg.Worker.RunOnStart,
	}, a.log)
}
