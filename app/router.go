// Package app wires the payment and log-exposure HTTP surface.
package app

import (
	"net/http"
	"time"

	"github.com/BileulDevs/spotR-payement/app/config"
	"github.com/BileulDevs/spotR-payement/app/logging"
	"github.com/BileulDevs/spotR-payement/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter builds the HTTP router.
func NewRouter(cfg *config.Config, pay *PayHandler, metrics *MetricsHandler, metricsLogger zerolog.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestMetrics(metricsLogger))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/health", Health)
	router.POST("/api/pay/checkout", pay.CreateCheckoutSession)
	router.POST("/api/pay/webhook", pay.HandleWebhook)

	logsGroup := router.Group("/api/metrics")
	if cfg.Auth.Issuer != "" && cfg.Auth.Audience != "" {
		verifier, err := auth.NewVerifier(cfg.Auth.Issuer, cfg.Auth.Audience, "")
		if err != nil {
			return nil, err
		}
		logsGroup.Use(auth.Middleware(verifier, auth.MiddlewareConfig{DisableAuth: cfg.Auth.Disabled}))
	}
	logsGroup.GET("", metrics.GetMetrics)
	logsGroup.GET("/errors", metrics.GetErrors)
	logsGroup.GET("/warnings", metrics.GetWarnings)

	router.GET("/internal/prometheus", gin.WrapH(promhttp.Handler()))

	return router, nil
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
