package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/kaitrack/internal/api"
	"example.com/kaitrack/internal/auth"
	"example.com/kaitrack/internal/config"
	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/jobs"
	"example.com/kaitrack/internal/observability"
	"example.com/kaitrack/internal/outbox"
	"example.com/kaitrack/internal/persistence/memory"
	persistence "example.com/kaitrack/internal/persistence/postgres"
	"example.com/kaitrack/internal/progression"
	httptransport "example.com/kaitrack/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := observability.NewLogger(cfg.AppLogLevel, "kaitrack-api").WithField("env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := cfg.RankTable()
	if err != nil {
		log.WithError(err).Fatal("load rank table")
	}
	rewards, err := cfg.RewardTable()
	if err != nil {
		log.WithError(err).Fatal("load reward table")
	}
	evaluator, err := progression.NewEvaluator(table, cfg.Rules())
	if err != nil {
		log.WithError(err).Fatal("build progression evaluator")
	}

	var (
		repo       domain.Repository
		dispatcher *outbox.Dispatcher
	)
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("using in-memory storage; data and events are not persisted")
		repo = memory.NewRepository()
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.WithError(err).Fatal("connect to postgres")
		}
		defer pool.Close()
		repo = persistence.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(log.WithField("component", "outbox")),
			outbox.WithClaimLease(cfg.OutboxClaimLease))
		go dispatcher.Start(ctx)
	}

	seed := cfg.WheelSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	service, err := domain.NewService(repo, domain.Config{
		Evaluator:    evaluator,
		Rewards:      rewards,
		Random:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Location:     cfg.Location(),
		SpinCooldown: cfg.WheelSpinCooldown,
		Logger:       log.WithField("component", "domain"),
	})
	if err != nil {
		log.WithError(err).Fatal("build service")
	}

	scheduler := jobs.NewScheduler(service, cfg.StreakSweepCron, cfg.Location(), log.WithField("component", "jobs"))
	if err := scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("start scheduler")
	}

	handler := api.NewHandler(service, log.WithField("component", "api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, nil)
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}, httptransport.Chain(mux,
		httptransport.RequestLogger(log.WithField("component", "http")),
		httptransport.CORS(cfg.CORSAllowOrigins),
		authMiddleware.Wrap,
	))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("address", cfg.MetricsAddress).Info("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server error")
		}
	}()

	go func() {
		log.WithField("address", cfg.HTTPAddress).Info("kaitrack api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown failed")
	}
	scheduler.Stop()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
