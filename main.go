package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairwaylink/event-booking/config"
	"github.com/fairwaylink/event-booking/internal/consumer"
	"github.com/fairwaylink/event-booking/internal/handler"
	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/fairwaylink/event-booking/internal/middleware"
	"github.com/fairwaylink/event-booking/internal/payment"
	"github.com/fairwaylink/event-booking/internal/repository"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/fairwaylink/event-booking/pkg/database"
	"github.com/fairwaylink/event-booking/pkg/idempotency"
	"github.com/fairwaylink/event-booking/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logging.Init(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open database")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, consumer.PaymentQueue, consumer.PaymentBinding)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to declare payment queue")
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start consuming")
	}

	payments, err := newProvider(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure payments")
	}

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)

	// Services
	opts := service.Options{CheckoutTTL: cfg.CheckoutTTL, WaitlistOfferTTL: cfg.WaitlistOfferTTL}
	eventSvc := service.NewEventService(eventRepo, bookingRepo, publisher)
	waitlistSvc := service.NewWaitlistService(waitlistRepo, eventRepo, bookingRepo, publisher, opts)
	bookingSvc := service.NewBookingService(bookingRepo, eventRepo, waitlistSvc, payments,
		idempotency.NewRedisStore(rdb), publisher, opts)

	rateLimit, err := middleware.RateLimit(cfg.RateLimitPerMinute, rdb, cfg.TrustProxyHeaders)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure rate limiter")
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(middleware.CorrelationID())
	e.Use(middleware.RequestLogger())
	e.Use(echoMw.Recover())

	e.GET("/health", handler.Health)

	api := e.Group("/api/v1")
	public := api.Group("", rateLimit)
	admin := api.Group("/admin", middleware.AdminKey(cfg.AdminAPIKey))

	handler.NewEventHandler(eventSvc).RegisterRoutes(public, admin)
	handler.NewBookingHandler(bookingSvc, eventSvc).RegisterRoutes(public, admin)
	handler.NewWaitlistHandler(waitlistSvc, eventSvc).RegisterRoutes(public, admin)
	handler.NewPaymentHandler(bookingSvc, cfg.StripeWebhookSecret).RegisterRoutes(api)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.WithField("port", cfg.ServerPort).Info("Event booking service starting")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return consumer.NewPaymentConsumer(bookingSvc).Run(gctx, msgs)
	})

	g.Go(func() error {
		return service.NewSweeper(bookingSvc, waitlistSvc, cfg.SweepInterval).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Event booking service stopped with error")
		os.Exit(1)
	}
	logrus.Info("Event booking service stopped")
}

func newProvider(cfg *config.Config) (payment.Provider, error) {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is required")
		}
		return payment.NewStripeProvider(cfg.StripeSecretKey), nil
	case "razorpay":
		if cfg.RazorpayKey == "" || cfg.RazorpaySecret == "" {
			return nil, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
		}
		return payment.NewRazorpayProvider(cfg.RazorpayKey, cfg.RazorpaySecret), nil
	default:
		return nil, errors.New("unknown PAYMENT_PROVIDER " + cfg.PaymentProvider)
	}
}
