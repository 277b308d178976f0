package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/command"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/config"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/database"
	kafkainfra "github.com/Korabi-dev/password-reset-adds/internal/infra/kafka"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/logger"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/mail"
	mongoinfra "github.com/Korabi-dev/password-reset-adds/internal/infra/mongo"
	redisinfra "github.com/Korabi-dev/password-reset-adds/internal/infra/redis"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/security"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/telemetry"
	"github.com/Korabi-dev/password-reset-adds/internal/repository/memory"
	mongorepo "github.com/Korabi-dev/password-reset-adds/internal/repository/mongo"
	postgresrepo "github.com/Korabi-dev/password-reset-adds/internal/repository/postgres"
	redisrepo "github.com/Korabi-dev/password-reset-adds/internal/repository/redis"
	"github.com/Korabi-dev/password-reset-adds/internal/transport/http/middleware"
	"github.com/Korabi-dev/password-reset-adds/internal/transport/http/routes"
	"github.com/Korabi-dev/password-reset-adds/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	mongo    *mongoinfra.Client
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
	sweeper  *usecase.ExpirySweeper
	evictor  *usecase.RateLimitEvictor
}

type stores struct {
	users  port.UserRepository
	codes  port.CodeRepository
	probes []routes.ReadinessProbe
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = tracer

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	resetMetrics, err := telemetry.NewResetMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("init reset metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: registry,
		SkipPaths:  []string{"/metrics", "/healthz", "/readyz"},
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	st, err := a.openStores(ctx)
	if err != nil {
		a.abort()
		return nil, err
	}

	rateLimitStore, err := a.openRateLimitStore(ctx)
	if err != nil {
		a.abort()
		return nil, err
	}
	if a.redis != nil {
		st.probes = append(st.probes, routes.ReadinessProbe{Name: "redis", Check: a.redis.HealthCheck})
	}

	// Initialize Kafka event publisher
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var notifier port.Notifier
	switch cfg.Mail.Driver {
	case config.MailDriverLog:
		notifier = mail.NewLogNotifier(log)
	default:
		notifier = mail.NewSMTPNotifier(cfg.Mail)
	}

	changer := command.NewRunner(cfg.PasswordCommand, logger.Component(log, "password_command"))
	policy := security.NewPasswordPolicy(security.PasswordPolicySettings{
		MinLength: cfg.PasswordPolicy.MinLength,
		MaxLength: cfg.PasswordPolicy.MaxLength,
		MinScore:  cfg.PasswordPolicy.MinScore,
	})

	resetService := usecase.NewResetService(cfg, st.users, st.codes, notifier, changer, policy, eventPublisher, resetMetrics, log)
	userService := usecase.NewUserService(st.users, eventPublisher, log)

	a.sweeper = usecase.NewExpirySweeper(st.codes, cfg.Reset.Retention(), cfg.Reset.SweepInterval, resetMetrics, logger.Component(log, "expiry_sweeper"))
	a.evictor = usecase.NewRateLimitEvictor(rateLimitStore, cfg.RateLimit.Window, cfg.RateLimit.SweepInterval, logger.Component(log, "rate_limit_evictor"))

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, resetMetrics, log),
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Services: routes.ServiceSet{
			Resets: resetService,
			Users:  userService,
		},
		Probes: st.probes,
	})

	return a, nil
}

func (a *Application) openStores(ctx context.Context) (*stores, error) {
	cfg := a.cfg
	st := &stores{}

	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		client, err := mongoinfra.NewClient(ctx, cfg.Mongo, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		a.mongo = client
		if err := mongorepo.EnsureIndexes(ctx, client.Database()); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		repos := mongorepo.NewRepositories(client.Database())
		st.users, st.codes = repos.Users, repos.Codes
		st.probes = append(st.probes, routes.ReadinessProbe{Name: "mongo", Check: client.HealthCheck})
	default:
		if cfg.Postgres.AutoMigrate {
			if err := postgresrepo.MigrateUp(cfg.Postgres.DSN()); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.pool = pool
		repos := postgresrepo.NewRepositories(pool)
		st.users, st.codes = repos.Users, repos.Codes
		st.probes = append(st.probes, routes.ReadinessProbe{Name: "postgres", Check: pool.Ping})
	}

	if cfg.Codes.Backend == config.BackendRedis {
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		st.codes = redisrepo.NewCodeRepository(client.Client(), client.KeyPrefix(), cfg.Reset.Retention())
		a.logger.Info("reset codes stored in redis")
	}

	return st, nil
}

func (a *Application) openRateLimitStore(ctx context.Context) (port.RateLimitStore, error) {
	if a.cfg.RateLimit.Backend != config.BackendRedis {
		return memory.NewRateLimitStore(), nil
	}
	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return redisrepo.NewRateLimitRepository(client.Client(), client.KeyPrefix()), nil
}

func (a *Application) redisClient(ctx context.Context) (*redisinfra.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client, err := redisinfra.NewClient(ctx, a.cfg.Redis, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.redis = client
	return client, nil
}

func (a *Application) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.closeStores(ctx)
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown tracer", zap.Error(err))
	}
}

func (a *Application) closeStores(ctx context.Context) {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			a.logger.Warn("close mongo", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		a.sweeper.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		a.evictor.Run(workerCtx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting password reset API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("store", a.cfg.Store.Driver),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErrCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown server: %w", err)
	}

	stopWorkers()
	workers.Wait()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if err := a.tracer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("shutdown tracer", zap.Error(err))
	}
	a.closeStores(shutdownCtx)

	a.logger.Info("password reset API stopped")
	return runErr
}
