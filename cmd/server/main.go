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

	"golang.org/x/sync/errgroup"

	"umid/internal/access"
	accesshandler "umid/internal/access/handler"
	accessmetrics "umid/internal/access/metrics"
	"umid/internal/accesslog"
	"umid/internal/accesslog/outbox"
	accesslogstore "umid/internal/accesslog/store"
	"umid/internal/identity"
	"umid/internal/platform/config"
	"umid/internal/platform/httpserver"
	"umid/internal/platform/kafka"
	"umid/internal/platform/logger"
	"umid/internal/platform/metrics"
	"umid/internal/platform/postgres"
	platformredis "umid/internal/platform/redis"
	"umid/internal/throttle"
	throttlestore "umid/internal/throttle/store"
	httptransport "umid/internal/transport/http"
	umidhandler "umid/internal/umid/handler"
	"umid/internal/umid/secrets"
	umidservice "umid/internal/umid/service"
	umidstore "umid/internal/umid/store"
	"umid/pkg/platform/circuit"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional backing services and their cleanup.
type infra struct {
	db      *sql.DB
	redis   *platformredis.Client
	kafka   *kafka.Producer
	closers []func()
}

func (i *infra) close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := metrics.New()
	health := httptransport.NewHealth()

	inf, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer inf.close()

	// Storage: PostgreSQL when configured, otherwise process-local.
	var (
		umids    umidservice.Store
		logStore accesslog.Store
		txOpts   []umidservice.Option
	)
	if inf.db != nil {
		umids = umidstore.NewPostgres(inf.db)
		logStore = accesslogstore.NewPostgres(inf.db)
		txOpts = append(txOpts, umidservice.WithTxRunner(postgres.NewTxRunner(inf.db, cfg.Database.TxTimeout)))
		health.Critical("postgres", inf.db.PingContext)
	} else {
		log.Warn("DATABASE_URL not set; using in-memory stores")
		umids = umidstore.NewInMemory()
		logStore = accesslogstore.NewInMemory()
	}

	sealer, err := secrets.NewSealer(cfg.UMID.SecretKey)
	if err != nil {
		return err
	}
	if cfg.UMID.IsDevSecretKey() {
		log.Warn("using development sealing key; set UMID_SECRET_KEY")
	}

	publisher := accesslog.NewPublisher(logStore,
		accesslog.WithLogger(log),
		accesslog.WithMetrics(accesslog.NewMetrics(reg)),
	)

	throttleMetrics := throttle.NewMetrics(reg)
	memThrottle := throttlestore.NewInMemory()
	var throttleStore throttle.Store = memThrottle
	if inf.redis != nil {
		throttleStore = throttlestore.NewFallback(
			throttlestore.NewRedis(inf.redis.Client),
			memThrottle,
			circuit.New("throttle-redis"),
			log,
			throttleMetrics,
		)
		health.Optional("redis", inf.redis.Health)
	}
	limiter, err := throttle.New(throttleStore,
		throttle.WithLogger(log),
		throttle.WithMetrics(throttleMetrics),
		throttle.WithLimits(cfg.Throttle.MaxFailures, cfg.Throttle.Window),
	)
	if err != nil {
		return err
	}

	umidSvc := umidservice.New(umids, publisher, sealer, append([]umidservice.Option{
		umidservice.WithLogger(log),
		umidservice.WithMetrics(umidservice.NewMetrics(reg)),
		umidservice.WithConfig(cfg.UMID),
	}, txOpts...)...)

	accessSvc := access.New(umids, sealer, publisher,
		access.WithLogger(log),
		access.WithMetrics(accessmetrics.New(reg)),
		access.WithThrottle(limiter),
		access.WithExpiredLookback(cfg.UMID.ExpiredLookbackSteps),
	)

	var worker *outbox.Worker
	if inf.kafka != nil {
		if inf.db == nil {
			log.Warn("kafka configured without DATABASE_URL; access-log relay disabled")
		} else {
			worker = outbox.NewWorker(
				outbox.NewPostgres(inf.db),
				inf.kafka,
				postgres.NewTxRunner(inf.db, cfg.Database.TxTimeout),
				cfg.Kafka.Topic,
				outbox.WithLogger(log),
				outbox.WithMetrics(outbox.NewMetrics(reg)),
				outbox.WithInterval(cfg.Outbox.PollInterval),
				outbox.WithBatchSize(cfg.Outbox.BatchSize),
			)
			health.Optional("kafka", inf.kafka.Health)
		}
	}

	umidHandler := umidhandler.New(umidSvc, log)
	jwtSvc := identity.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)
	router := httptransport.NewRouter(httptransport.Deps{
		Validator: identity.NewJWTServiceAdapter(jwtSvc),
		Logger:    log,
		Modules:   []httptransport.ModuleRoutes{umidHandler, accesshandler.New(accessSvc, log)},
		Admin:     []httptransport.AdminRoutes{umidHandler},
		Health:    health,
		Metrics:   reg.Handler(),
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting umid service", "addr", cfg.Server.Addr, "regulated_mode", cfg.Server.RegulatedMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// connect opens the configured backing services. Redis and Kafka are
// optional: Redis failures fall back to in-memory throttling.
func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	inf := &infra{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		inf.closers = append(inf.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			inf.close()
			return nil, err
		}
		inf.db = db
	}

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable; throttling in memory", "error", err)
	} else if client != nil {
		inf.closers = append(inf.closers, func() { _ = client.Close() })
		inf.redis = client
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			inf.close()
			return nil, err
		}
		inf.closers = append(inf.closers, producer.Close)
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			log.Warn("could not ensure access-log topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		inf.kafka = producer
	}
	return inf, nil
}
