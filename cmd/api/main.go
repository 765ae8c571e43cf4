package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/hookz"

	"github.com/apiscerena/medusa-paypal/internal/client"
	"github.com/apiscerena/medusa-paypal/internal/config"
	"github.com/apiscerena/medusa-paypal/internal/dto"
	"github.com/apiscerena/medusa-paypal/internal/middleware"
	"github.com/apiscerena/medusa-paypal/internal/provider"
	"github.com/apiscerena/medusa-paypal/internal/repository"
	"github.com/apiscerena/medusa-paypal/internal/server"
	"github.com/apiscerena/medusa-paypal/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitSqliteClient(cfg.DatabaseURL)
	paypalClient := client.NewPaypalClient(&cfg.Paypal)

	metricsRegistry := prometheus.NewRegistry()
	metrics := provider.NewMetrics(metricsRegistry)
	reconciler := provider.NewReconciler(paypalClient, metrics)
	webhookVerifier := provider.NewWebhookVerifier(paypalClient, metrics)

	sessionRepo := repository.NewSessionRepository(db)
	captureRepo := repository.NewCaptureRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	paymentService := service.NewPaymentService(
		db, paypalClient,
		reconciler,
		webhookVerifier,
		cfg.Paypal.Intent,
		sessionRepo,
		captureRepo,
		refundRepo,
		webhookEventRepo,
	)
	defer paymentService.Close()

	// Lifecycle events for operators; host integrations register their own.
	for _, key := range []hookz.Key{service.EventAuthorized, service.EventCaptured, service.EventRefunded, service.EventFailed, service.EventCanceled} {
		if _, err := paymentService.Events().Hook(key, func(ctx context.Context, event dto.PaymentEvent) error {
			log.Printf("payment event: order=%s status=%s", event.OrderID, event.Status)
			return nil
		}); err != nil {
			log.Fatal("register payment hook: ", err)
		}
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(
			cfg.RateLimit.Limit,
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		)
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(paymentService, cfg.Auth.JWTSecret, rateLimiter, metricsRegistry)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
