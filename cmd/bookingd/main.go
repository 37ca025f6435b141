package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/handlers"
	"github.com/tutorlane/bookingd/internal/notify"
	"github.com/tutorlane/bookingd/internal/outbox"
	"github.com/tutorlane/bookingd/internal/payments"
	"github.com/tutorlane/bookingd/internal/reconcile"
	"github.com/tutorlane/bookingd/internal/storage"
	"github.com/tutorlane/bookingd/libs/config"
	"github.com/tutorlane/bookingd/libs/db"
	"github.com/tutorlane/bookingd/libs/httpx"
	"github.com/tutorlane/bookingd/libs/kafkax"
	otelx "github.com/tutorlane/bookingd/libs/otel"
	"github.com/tutorlane/bookingd/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "bookingd")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	tzName := config.String("BUSINESS_TIMEZONE", "Australia/Sydney")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		logger.Error("invalid BUSINESS_TIMEZONE, falling back to UTC", "tz", tzName, "err", err)
		tzName = "UTC"
		loc = time.UTC
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	windowRepo := storage.NewAvailabilityRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	store := storage.NewStore(pool, windowRepo, bookingRepo, outboxRepo)

	sender := notify.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "bookings@tutorlane.com.au"),
	)
	notifier := notify.NewBookingNotifier(sender, config.String("ADMIN_EMAIL", ""))

	checkout := payments.NewStripeCheckout(logger, payments.StripeConfig{
		SecretKey:  config.String("STRIPE_SECRET_KEY", ""),
		SuccessURL: config.String("CHECKOUT_SUCCESS_URL", ""),
		CancelURL:  config.String("CHECKOUT_CANCEL_URL", ""),
	})

	svc := booking.NewService(store, notifier, checkout, logger, booking.Config{
		MinimumMinutes: config.Int("MIN_BOOKING_MINUTES", booking.DefaultMinimumMinutes),
		Timezone:       loc,
	})

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	reconciler := reconcile.NewWorker(pool, windowRepo, store, logger, reconcile.Config{
		Timezone:  tzName,
		BatchSize: config.Int("RECONCILE_BATCH_SIZE", 50),
	})
	go reconciler.Run(ctx, config.Duration("RECONCILE_INTERVAL", 5*time.Minute))

	bookingHandler := handlers.NewBookingHandler(svc, store, bookingRepo, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(windowRepo, loc, logger)
	webhookHandler := handlers.NewStripeWebhookHandler(svc, logger,
		config.String("STRIPE_WEBHOOK_SECRET", ""),
		time.Duration(config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300))*time.Second,
	)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/availability", availabilityHandler.List)
	mux.HandleFunc("/api/v1/availability/create", availabilityHandler.Create)
	mux.HandleFunc("/api/v1/availability/update", availabilityHandler.Update)
	mux.HandleFunc("/api/v1/availability/delete", availabilityHandler.Delete)
	mux.HandleFunc("/api/v1/times", availabilityHandler.Times)
	mux.HandleFunc("/api/v1/bookings", bookingHandler.List)
	mux.HandleFunc("/api/v1/bookings/create", bookingHandler.Create)
	mux.HandleFunc("/api/v1/bookings/checkout", bookingHandler.Checkout)
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/bookings/confirm", bookingHandler.Confirm)
	mux.HandleFunc("/api/v1/bookings/complete", bookingHandler.Complete)
	mux.HandleFunc("/api/v1/payments/stripe/webhook", webhookHandler.Handle)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 30*time.Second)),
	}
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(rateLimit, time.Minute)
		middlewares = append(middlewares, limiter.Middleware())
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}))
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
