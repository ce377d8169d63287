package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"stayledger/internal/app/commands"
	bookingapp "stayledger/internal/app/handlers/booking"
	"stayledger/internal/app/middleware"
	"stayledger/internal/app/notify"
	appoutbox "stayledger/internal/app/outbox"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/queries"
	"stayledger/internal/app/sweeper"
	"stayledger/internal/app/uow"
	domainavailability "stayledger/internal/domain/availability"
	domaincatalog "stayledger/internal/domain/catalog"
	domainpricing "stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/events"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/broker/kafka"
	"stayledger/internal/infra/broker/logbroker"
	"stayledger/internal/infra/config"
	mongostore "stayledger/internal/infra/db/mongo"
	redisledger "stayledger/internal/infra/db/redis"
	ginserver "stayledger/internal/infra/http/gin"
	"stayledger/internal/infra/obs"
	outboxrelay "stayledger/internal/infra/outbox"
	"stayledger/internal/infra/payments"
	"stayledger/internal/infra/ratelimit"
	"stayledger/internal/infra/storage/memory"
	"stayledger/internal/infra/storage/s3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env, os.Getenv("LOG_LEVEL"))
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if err := app.loadResourceFixtures(ctx, cfg.ResourcesFixture, logger); err != nil {
		logger.Warn("resource fixtures load failed", "error", err, "path", cfg.ResourcesFixture)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, app.handlers)

	var wg sync.WaitGroup
	for name, run := range app.workers {
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "worker", name, "error", err)
			}
		}(name, run)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "ledger", cfg.LedgerBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		wg.Wait()
		os.Exit(1)
	}
	wg.Wait()
	app.deps.Notifications.Wait()
	logger.Info("HTTP server stopped")
}

// catalogWriter is implemented by both catalog stores.
type catalogWriter interface {
	Save(ctx context.Context, resource *domaincatalog.Resource) error
}

type application struct {
	handlers ginserver.Handlers
	deps     *bookingapp.Deps
	catalog  catalogWriter
	checks   map[string]obs.Check
	workers  map[string]func(context.Context) error
	closers  []func(context.Context) error
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

// persistence bundles what one storage backend provides.
type persistence struct {
	factory     uow.UoWFactory
	catalog     catalogWriter
	bookings    sweeper.Source
	idempotency middleware.IdempotencyStore
	outbox      appoutbox.Outbox
	queue       appoutbox.Queue
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		checks:  map[string]obs.Check{},
		workers: map[string]func(context.Context) error{},
	}
	metrics := obs.NewMetrics()

	initialRate, err := initialRateVersion(cfg.PlatformFeeRate)
	if err != nil {
		return nil, err
	}

	var (
		store     persistence
		mongoConn *mongostore.Client
	)
	switch cfg.Storage {
	case "mongo":
		mongoConn, err = mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		app.closers = append(app.closers, mongoConn.Close)
		app.checks["mongo"] = mongoConn.Ping
		store, err = mongoPersistence(ctx, mongoConn, cfg, initialRate)
		if err != nil {
			return nil, err
		}
	default:
		store = memoryPersistence(initialRate)
	}
	app.catalog = store.catalog

	ledger, err := buildLedger(ctx, cfg, mongoConn, app)
	if err != nil {
		return nil, err
	}
	encoder := appoutbox.JSONEventEncoder{}
	ledger.setSink(func(ctx context.Context, evs []events.DomainEvent) {
		if err := appoutbox.RecordDomainEvents(ctx, store.outbox, encoder, evs); err != nil {
			logger.ErrorContext(ctx, "calendar events not recorded", "error", err, "count", len(evs))
		}
	})

	producer, notifier, err := buildBroker(cfg, logger, app)
	if err != nil {
		return nil, err
	}

	deps := &bookingapp.Deps{
		UoWFactory: store.factory,
		Ledger:     ledger.Ledger,
		Payments:   buildPayments(cfg, logger),
		Notifications: &notify.Dispatcher{
			Notifier: notifier,
			Logger:   logger,
			Failures: metrics,
		},
		Outbox:        store.outbox,
		Encoder:       encoder,
		Metrics:       metrics,
		Logger:        logger,
		SettleTimeout: cfg.PaymentsTimeout,
	}
	if cfg.ReceiptsEnabled {
		archive, err := s3.NewReceiptArchive(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, logger)
		if err != nil {
			return nil, fmt.Errorf("receipt archive: %w", err)
		}
		deps.Receipts = archive
	}
	app.deps = deps

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	bookingapp.Register(commandBus, queryBus, deps)

	limiter := ratelimit.NewRegistry(cfg.RateLimitPerMinute, cfg.RateLimitBurst, cfg.RateLimitIdleTTL)
	app.workers["ratelimit"] = func(ctx context.Context) error {
		limiter.Run(ctx, time.Minute)
		return nil
	}

	validator := middleware.NewStructValidator()
	cmds := middleware.ChainCommands(
		commandBus,
		middleware.CommandMetrics(metrics),
		middleware.Validation(validator),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.RateLimit(limiter),
		middleware.Idempotency(store.idempotency, nil),
		middleware.Transaction(store.factory, nil),
		middleware.OutboxFlush(store.outbox),
	)
	qs := middleware.ChainQueries(
		queryBus,
		middleware.QueryMetrics(metrics),
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
	)

	sw := &sweeper.Sweeper{
		Bus:         cmds,
		Bookings:    store.bookings,
		Interval:    cfg.SweepInterval,
		Grace:       cfg.SweepGrace,
		SLAInterval: cfg.SLASweepInterval,
		ApprovalSLA: cfg.ApprovalSLA,
		Logger:      logger.With("component", "sweeper"),
		Metrics:     metrics,
	}
	app.workers["sweeper"] = sw.Run

	relay := &outboxrelay.Worker{
		Queue:       store.queue,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		ID:          "relay-" + uuid.NewString(),
		Backoff:     cfg.RetryBackoff,
		Logger:      logger.With("component", "outbox"),
	}
	app.workers["outbox"] = relay.Run

	handlers := ginserver.NewHandlers(cmds, qs, logger)
	handlers.Metrics = metrics.Handler()
	handlers.MetricsMW = metrics.HTTP()
	app.handlers = handlers
	return app, nil
}

func initialRateVersion(raw string) (domainpricing.RateVersion, error) {
	rate, err := money.ParseRate(raw)
	if err != nil {
		return domainpricing.RateVersion{}, fmt.Errorf("PLATFORM_FEE_RATE: %w", err)
	}
	return domainpricing.NewRateVersion(uuid.NewString(), rate, "bootstrap", time.Now())
}

func memoryPersistence(initialRate domainpricing.RateVersion) persistence {
	catalog := memory.NewCatalogRepository()
	bookings := memory.NewBookingRepository()
	box := memory.NewOutbox()
	return persistence{
		factory: memory.Factory{
			CatalogRepo: catalog,
			BookingRepo: bookings,
			RefundRepo:  memory.NewRefundRepository(),
			CouponRepo:  memory.NewCouponRepository(),
			RateRepo:    memory.NewRateRepository(initialRate),
		},
		catalog:     catalog,
		bookings:    bookings,
		idempotency: memory.NewIdempotencyStore(),
		outbox:      box,
		queue:       box,
	}
}

func mongoPersistence(ctx context.Context, conn *mongostore.Client, cfg config.Config, initialRate domainpricing.RateVersion) (persistence, error) {
	if err := conn.EnsureIndexes(ctx); err != nil {
		return persistence{}, fmt.Errorf("mongo indexes: %w", err)
	}
	catalog := mongostore.NewCatalogRepository(conn.DB)
	bookings := mongostore.NewBookingRepository(conn.DB)
	rates := mongostore.NewRateRepository(conn.DB)
	if err := rates.Seed(ctx, initialRate); err != nil {
		return persistence{}, fmt.Errorf("seed platform rate: %w", err)
	}
	idem := mongostore.NewIdempotencyStore(conn.DB, cfg.IdempotencyTTL)
	if err := idem.EnsureIndexes(ctx); err != nil {
		return persistence{}, fmt.Errorf("idempotency indexes: %w", err)
	}
	box := outboxrelay.NewStore(conn.DB)
	if err := box.EnsureIndexes(ctx); err != nil {
		return persistence{}, fmt.Errorf("outbox indexes: %w", err)
	}
	factory := mongostore.NewFactory(conn.DB)
	factory.CatalogRepo = catalog
	factory.BookingRepo = bookings
	factory.RateRepo = rates
	return persistence{
		factory:     factory,
		catalog:     catalog,
		bookings:    bookings,
		idempotency: idem,
		outbox:      box,
		queue:       box,
	}, nil
}

// ledgerBinding keeps the concrete ledger around so the event sink can be set
// after the outbox is known.
type ledgerBinding struct {
	domainavailability.Ledger
	setSink func(domainavailability.EventSink)
}

func buildLedger(ctx context.Context, cfg config.Config, conn *mongostore.Client, app *application) (ledgerBinding, error) {
	switch cfg.LedgerBackend {
	case "redis":
		client, err := redisledger.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return ledgerBinding{}, fmt.Errorf("connect redis: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		app.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		l := redisledger.NewLedger(client)
		if err := l.Preload(ctx); err != nil {
			return ledgerBinding{}, fmt.Errorf("preload ledger scripts: %w", err)
		}
		return ledgerBinding{Ledger: l, setSink: func(s domainavailability.EventSink) { l.Sink = s }}, nil
	case "mongo":
		l := mongostore.NewLedger(conn.DB, cfg.LedgerRetries)
		return ledgerBinding{Ledger: l, setSink: func(s domainavailability.EventSink) { l.Sink = s }}, nil
	default:
		l := memory.NewLedger()
		return ledgerBinding{Ledger: l, setSink: func(s domainavailability.EventSink) { l.Sink = s }}, nil
	}
}

func buildBroker(cfg config.Config, logger *slog.Logger, app *application) (outboxrelay.Producer, policies.Notifier, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("no kafka brokers configured, events and notifications go to the log")
		return logbroker.Producer{Logger: logger}, logbroker.Notifier{Logger: logger}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("stayledger"))
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
	notifier := &kafka.Notifier{Publisher: producer, Topic: cfg.KafkaTopicPrefix + cfg.NotifyTopic}
	return producer, notifier, nil
}

func buildPayments(cfg config.Config, logger *slog.Logger) policies.PaymentGateway {
	if cfg.PaymentsMode == "http" {
		return &payments.HTTPGateway{
			Client:   &http.Client{Timeout: cfg.PaymentsTimeout},
			Endpoint: cfg.PaymentsURL,
			APIKey:   cfg.PaymentsAPIKey,
			Logger:   logger,
		}
	}
	return payments.NewSandbox(cfg.SandboxLatency)
}
