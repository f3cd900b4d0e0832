package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/catalog"
	"github.com/joao-fontenele/storefront/internal/config"
	"github.com/joao-fontenele/storefront/internal/fulfillment"
	"github.com/joao-fontenele/storefront/internal/messaging"
	"github.com/joao-fontenele/storefront/internal/orders"
	"github.com/joao-fontenele/storefront/internal/outbox"
	"github.com/joao-fontenele/storefront/internal/shipping"
	"github.com/joao-fontenele/storefront/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("orders service failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadOrders()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	db, err := telemetry.OpenDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	catalogRepo := catalog.NewRepository(db)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, catalogRepo, logger)

	orderService, err := orders.NewService(orders.NewOrderRepository(db), catalogRepo, logger)
	if err != nil {
		return err
	}
	orderHandler := orders.NewHandler(orderService, logger)

	labels := shipping.NewClient(shipping.Config{
		URL:     cfg.ShippingAPIURL,
		APIKey:  cfg.ShippingAPIKey,
		Timeout: cfg.ShippingTimeout,
	}, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.ShippingTimeout,
	})

	orchestrator, err := fulfillment.NewOrchestrator(fulfillment.NewRepository(db), labels, fulfillment.Config{
		ClaimTTL:  cfg.FulfillClaimTTL,
		StoreName: cfg.StoreName,
	}, logger)
	if err != nil {
		return err
	}
	fulfillHandler := fulfillment.NewHandler(orchestrator, logger)

	var job *outbox.Job
	if len(cfg.KafkaBrokers) > 0 {
		queue := messaging.NewNotificationQueue(cfg.KafkaBrokers, cfg.NotificationsTopic)
		defer func() { _ = queue.Close() }()

		relay, err := outbox.NewRelay(outbox.NewRepository(db), queue, cfg.OutboxBatchSize, cfg.OutboxMaxAttempts, logger)
		if err != nil {
			return err
		}
		job = outbox.NewJob(relay, cfg.OutboxSchedule, logger)
	} else {
		logger.Warn("KAFKA_BROKERS not set, notifications stay in the outbox")
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	api.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	api.HandleFunc("GET /orders/emails", telemetry.WithHTTPRoute(orderHandler.HandleCustomerEmails))
	api.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	api.HandleFunc("DELETE /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleDelete))
	api.HandleFunc("POST /orders/{id}/fulfill", telemetry.WithHTTPRoute(fulfillHandler.HandleFulfill))

	mux := http.NewServeMux()
	mux.Handle("/orders", verifier.Middleware(api))
	mux.Handle("/orders/", verifier.Middleware(api))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", healthz(db))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(mux, "orders", otelhttp.WithSpanNameFormatter(telemetry.SpanNameFromPattern)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ShippingTimeout + 10*time.Second,
	}

	if job != nil {
		if err := job.Start(); err != nil {
			return err
		}
		logger.Info("outbox relay scheduled", "schedule", cfg.OutboxSchedule, "topic", cfg.NotificationsTopic)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting orders service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if job != nil {
			job.Stop(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
