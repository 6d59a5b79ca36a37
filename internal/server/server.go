package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/handlers"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/metrics"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/middleware"
)

// Server wraps the gin router and the underlying http.Server.
type Server struct {
	config   *config.Config
	router   *gin.Engine
	handlers *handlers.Handlers
	http     *http.Server
	logger   *logrus.Entry
}

// NewServer builds the router and registers all routes.
func NewServer(cfg *config.Config, h *handlers.Handlers, logger *logrus.Logger) *Server {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(metrics.HTTPMiddleware())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		logger:   logger.WithField("component", "server"),
	}

	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/menu", s.handlers.ListMenu)
		v1.GET("/menu/:id", s.handlers.GetProduct)
		v1.GET("/loyalty", s.handlers.GetLoyalty)

		v1.POST("/orders", s.handlers.CreateOrder)
		v1.GET("/orders/:id", s.handlers.GetOrder)
		v1.GET("/orders/:id/pickup-payload", s.handlers.GetOrderPickupPayload)

		v1.POST("/webhooks/payment", s.handlers.PaymentWebhook)

		staff := v1.Group("/staff")
		staff.Use(middleware.StaffAuth(s.config.Auth))
		{
			staff.GET("/orders", s.handlers.ListOrders)
			staff.POST("/orders/:id/status", s.handlers.AdvanceOrderStatus)
			staff.POST("/orders/:id/cancel", s.handlers.CancelOrder)
			staff.POST("/pickup/scan", s.handlers.PickupScan)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(s.config.Auth))
		{
			admin.PATCH("/menu/:id", s.handlers.UpdateProduct)
			admin.GET("/audit-log", s.handlers.ListAuditLog)
		}
	}
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.http.Addr).Info("Starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
