package httpapi

import (
	"context"
	"net/http"
	"time"

	"forge-engine/pkg/config"
	"forge-engine/pkg/health"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewHandler,
		NewRouter,
	),
	fx.Invoke(registerServer),
)

// NewRouter builds the gin engine with all public routes mounted.
func NewRouter(cfg *config.Config, handler *Handler, checks health.HealthService) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", checks.Liveness)
	router.GET("/readyz", checks.Readiness)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/events", handler.IngestEvent)
		v1.POST("/users", handler.RegisterUser)
		v1.GET("/users/:id/profile", handler.GetProfile)
		v1.GET("/leaderboards", handler.GetLeaderboard)
	}

	return router
}

func registerServer(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine) {
	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				zap.L().Info("http server listening", zap.String("addr", addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					zap.L().Error("http server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
