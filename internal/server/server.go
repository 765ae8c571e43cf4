package server

import (
	"context"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apiscerena/medusa-paypal/internal/handler"
	"github.com/apiscerena/medusa-paypal/internal/middleware"
	"github.com/apiscerena/medusa-paypal/internal/service"
)

type Server struct {
	echo           *echo.Echo
	paymentHandler *handler.PaymentHandler
}

func NewServer(
	paymentService service.PaymentService,
	jwtSecret string,
	rateLimiter *middleware.RateLimiter,
	metricsRegistry *prometheus.Registry,
) *Server {
	e := echo.New()

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:           e,
		paymentHandler: handler.NewPaymentHandler(paymentService),
	}

	s.setupRoutes(jwtSecret, rateLimiter, metricsRegistry)
	return s
}

func (s *Server) setupRoutes(jwtSecret string, rateLimiter *middleware.RateLimiter, metricsRegistry *prometheus.Registry) {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	s.echo.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}),
	))

	// -------- host-facing payment api --------
	payments := api.Group("/payments", middleware.JWTAuth(jwtSecret))
	if rateLimiter != nil {
		payments.Use(middleware.RateLimit(rateLimiter, func(c echo.Context) string {
			return c.Param("orderID")
		}))
	}
	payments.POST("", s.paymentHandler.CreatePayment)
	payments.GET("/:orderID", s.paymentHandler.GetPaymentStatus)
	payments.POST("/:orderID/authorize", s.paymentHandler.AuthorizePayment)
	payments.POST("/:orderID/capture", s.paymentHandler.CapturePayment)
	payments.POST("/:orderID/refund", s.paymentHandler.RefundPayment)

	// -------- paypal webhooks --------
	// Authenticated by signature verification, not JWT.
	api.POST("/paypal/webhook", s.paymentHandler.PayPalWebhook)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
