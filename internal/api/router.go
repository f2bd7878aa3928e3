// Package api exposes the order service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	ServiceName string
	JWTSecret   []byte
	DB          Pinger
	Logger      *zap.Logger
	Orders      *OrderHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.LoggerMiddleware(cfg.Logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", healthCheck(cfg.DB))
	router.GET("/metrics", middleware.PrometheusHandler())

	orders := router.Group("/orders", AuthMiddleware(cfg.JWTSecret))
	orders.POST("", cfg.Orders.CreateOrder)
	orders.GET("", cfg.Orders.ListOrders)
	orders.GET("/admin/all", RequireRole(RoleAdmin), cfg.Orders.ListAllOrders)
	orders.GET("/:id", cfg.Orders.GetOrder)
	orders.PUT("/:id/status", RequireRole(RoleAdmin), cfg.Orders.UpdateOrderStatus)

	return router
}

func healthCheck(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
